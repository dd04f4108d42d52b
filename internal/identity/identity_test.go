package identity

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestGetOrCreateTwiceReturnsSameToken(t *testing.T) {
	path := filepath.Join(t.TempDir(), "identity.yaml")

	first, err := NewAssigner(NewFileStorage(path)).GetOrCreate()
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	if first.Token == "" || !first.Persistent {
		t.Fatalf("first = %+v, want persistent token", first)
	}

	// A fresh assigner over the same storage simulates the next visit.
	second, err := NewAssigner(NewFileStorage(path)).GetOrCreate()
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if second.Token != first.Token {
		t.Errorf("token changed: %q -> %q", first.Token, second.Token)
	}
}

func TestGetOrCreateMemoizes(t *testing.T) {
	a := NewAssigner(NewFileStorage(filepath.Join(t.TempDir(), "identity.yaml")))

	first, err := a.GetOrCreate()
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	second, err := a.GetOrCreate()
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if first != second {
		t.Errorf("identities differ: %+v vs %+v", first, second)
	}
}

func TestGetOrCreateStoresUnderFixedKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "identity.yaml")

	id, err := NewAssigner(NewFileStorage(path)).GetOrCreate()
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if want := "commentUserId: " + id.Token; !strings.Contains(string(data), want) {
		t.Errorf("file = %q, want it to contain %q", data, want)
	}
}

func TestGetOrCreateKeepsOtherKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "identity.yaml")
	if err := os.WriteFile(path, []byte("theme: dark\n"), 0o600); err != nil {
		t.Fatalf("seed: %v", err)
	}

	if _, err := NewAssigner(NewFileStorage(path)).GetOrCreate(); err != nil {
		t.Fatalf("get: %v", err)
	}

	theme, err := NewFileStorage(path).Load("theme")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if theme != "dark" {
		t.Errorf("theme = %q, want preserved", theme)
	}
}

type brokenStorage struct {
	loadErr, saveErr error
	saved            int
}

func (b *brokenStorage) Load(string) (string, error) { return "", b.loadErr }
func (b *brokenStorage) Save(string, string) error {
	b.saved++
	return b.saveErr
}

func TestGetOrCreateDegradesWhenStorageFails(t *testing.T) {
	tests := []struct {
		name    string
		storage Storage
	}{
		{"read fails", &brokenStorage{loadErr: errors.New("permission denied")}},
		{"write fails", &brokenStorage{saveErr: errors.New("disk full")}},
		{"no storage", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewAssigner(tt.storage)
			id, err := a.GetOrCreate()

			var unavailable *UnavailableError
			if !errors.As(err, &unavailable) {
				t.Fatalf("err = %v, want *UnavailableError", err)
			}
			if id.Token == "" {
				t.Error("expected an ephemeral token")
			}
			if id.Persistent {
				t.Error("expected non-persistent identity")
			}

			again, againErr := a.GetOrCreate()
			if again.Token != id.Token {
				t.Error("ephemeral identity should be stable within the session")
			}
			if !errors.As(againErr, &unavailable) {
				t.Errorf("second err = %v, want *UnavailableError again", againErr)
			}
		})
	}
}

func TestEphemeralIdentityRegeneratesPerSession(t *testing.T) {
	storage := &brokenStorage{loadErr: errors.New("no storage")}

	a, _ := NewAssigner(storage).GetOrCreate()
	b, _ := NewAssigner(storage).GetOrCreate()
	if a.Token == b.Token {
		t.Error("expected a new ephemeral token for a new session")
	}
}

func TestGeneratorFailureIsFatal(t *testing.T) {
	a := NewAssigner(NewFileStorage(filepath.Join(t.TempDir(), "identity.yaml")))
	a.newID = func() (string, error) { return "", errors.New("entropy exhausted") }

	_, err := a.GetOrCreate()
	var unavailable *UnavailableError
	if err == nil || errors.As(err, &unavailable) {
		t.Fatalf("err = %v, want generator error", err)
	}
}

func TestFileStorageCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "identity.yaml")
	if err := os.WriteFile(path, []byte("- not\n- a map\n"), 0o600); err != nil {
		t.Fatalf("seed: %v", err)
	}

	id, err := NewAssigner(NewFileStorage(path)).GetOrCreate()
	var unavailable *UnavailableError
	if !errors.As(err, &unavailable) {
		t.Fatalf("err = %v, want *UnavailableError", err)
	}
	if id.Token == "" {
		t.Error("expected ephemeral token")
	}
}

func TestHint(t *testing.T) {
	id := Identity{Token: "3f0c9a1e-77b2-4c55-9c1d-2a0d6f3e9b10"}
	if got := id.Hint(); got != "3f0c9a1e..." {
		t.Errorf("hint = %q", got)
	}
	if got := (Identity{Token: "short"}).Hint(); got != "short" {
		t.Errorf("hint = %q", got)
	}
	if got := (Identity{Token: "ééééééééé"}).Hint(); got != "éééééééé..." {
		t.Errorf("multi-byte hint = %q, want 8 characters", got)
	}
}

func TestDefaultPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	p, err := DefaultPath()
	if err != nil {
		t.Fatalf("default path: %v", err)
	}
	if p != filepath.Join(home, ".config", "folio", "identity.yaml") {
		t.Errorf("path = %q", p)
	}
}
