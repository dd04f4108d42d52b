package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRequireAPIKey(t *testing.T) {
	store := testAPIKeyStore(t)
	rawKey, _, err := store.Create("moderator")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc", http.StatusUnauthorized},
		{"invalid key", "Bearer fo_nope", http.StatusUnauthorized},
		{"valid key", "Bearer " + rawKey, http.StatusOK},
	}

	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := RequireAPIKey(store, inner)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("DELETE", "/api/comments/1", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, r)

			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestRequireAPIKeyRateLimits(t *testing.T) {
	store := testAPIKeyStore(t)
	rawKey, _, err := store.Create("moderator")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := RequireAPIKey(store, inner)

	send := func(key string) int {
		r := httptest.NewRequest("DELETE", "/api/comments/1", nil)
		r.RemoteAddr = "10.0.0.1:4000"
		r.Header.Set("Authorization", "Bearer "+key)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)
		return w.Code
	}

	for i := 0; i < rateLimitMaxFail; i++ {
		if code := send("fo_wrong"); code != http.StatusUnauthorized {
			t.Fatalf("attempt %d: status = %d, want 401", i, code)
		}
	}

	if code := send(rawKey); code != http.StatusTooManyRequests {
		t.Errorf("status after failures = %d, want 429", code)
	}
}

func TestRateLimiterWindowExpires(t *testing.T) {
	rl := newRateLimiter()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	for i := 0; i < rateLimitMaxFail; i++ {
		rl.recordFailure("1.2.3.4")
	}
	if !rl.limited("1.2.3.4") {
		t.Fatal("expected limit to apply")
	}
	if rl.limited("5.6.7.8") {
		t.Error("other IPs should not be limited")
	}

	now = now.Add(rateLimitWindow + time.Second)
	if rl.limited("1.2.3.4") {
		t.Error("limit should expire after the window")
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		addr string
		want string
	}{
		{"192.168.1.5:1234", "192.168.1.5"},
		{"[::1]:8080", "[::1]"},
		{"noport", "noport"},
	}

	for _, tt := range tests {
		r := httptest.NewRequest("GET", "/", nil)
		r.RemoteAddr = tt.addr
		if got := clientIP(r); got != tt.want {
			t.Errorf("clientIP(%q) = %q, want %q", tt.addr, got, tt.want)
		}
	}
}
