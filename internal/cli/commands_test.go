package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/evcraddock/folio/internal/comment"
	"github.com/evcraddock/folio/internal/db"
	"github.com/evcraddock/folio/internal/realtime"
	"github.com/evcraddock/folio/internal/submit"
	"github.com/evcraddock/folio/internal/web"
)

// testBoard starts a comment server on a temp database and points the CLI
// at it. It returns the database path and the server's hub.
func testBoard(t *testing.T) (string, *realtime.Hub) {
	t.Helper()
	isolateEnv(t)

	path := filepath.Join(t.TempDir(), "board.db")
	d, err := db.Open(path)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() {
		if err := d.Close(); err != nil {
			t.Errorf("close db: %v", err)
		}
	})

	hub := realtime.NewHub(realtime.DefaultBuffer)
	t.Cleanup(hub.Close)

	ts := httptest.NewServer(web.NewServer(d, hub, web.Config{PingInterval: time.Second}))
	t.Cleanup(ts.Close)

	t.Setenv("FOLIO_SERVER_URL", ts.URL)
	return path, hub
}

func TestPostAndList(t *testing.T) {
	testBoard(t)

	out, err := executeCommand("post", "--yes", "--name", "Ana", "Halo", "semua")
	if err != nil {
		t.Fatalf("post: %v (%s)", err, out)
	}
	if !strings.Contains(out, "[A] Ana") {
		t.Errorf("post output = %q", out)
	}

	out, err = executeCommand("comments", "--format", "json")
	if err != nil {
		t.Fatalf("comments: %v", err)
	}

	var got []comment.Comment
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode: %v (%s)", err, out)
	}
	if len(got) != 1 {
		t.Fatalf("got %d comments, want 1", len(got))
	}
	if got[0].Body != "Halo semua" {
		t.Errorf("body = %q, want %q", got[0].Body, "Halo semua")
	}
	if got[0].SessionID == "" {
		t.Error("expected the device identity on the comment")
	}

	who, err := executeCommand("whoami", "--full")
	if err != nil {
		t.Fatalf("whoami: %v", err)
	}
	if !strings.Contains(who, got[0].SessionID) {
		t.Errorf("whoami = %q, want identity %q", who, got[0].SessionID)
	}
}

func TestPostEmptyNameNeverCreates(t *testing.T) {
	testBoard(t)

	if _, err := executeCommand("post", "--yes", "no name given"); err == nil {
		t.Fatal("expected validation error")
	}

	out, err := executeCommand("comments", "--format", "json")
	if err != nil {
		t.Fatalf("comments: %v", err)
	}
	if strings.TrimSpace(out) != "[]" {
		t.Errorf("comments = %q, want none", out)
	}
}

func TestPostDeclinedSendsNothing(t *testing.T) {
	testBoard(t)

	var out bytes.Buffer
	err := runPost(context.Background(), &out,
		newTermNotifier(strings.NewReader("n\n"), &out),
		submit.Form{Name: "Ana", Body: "maybe later"})
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	if !strings.Contains(out.String(), "Comment not sent.") {
		t.Errorf("output = %q, want the declined notice", out.String())
	}
	if strings.Contains(out.String(), "\nCancel\n") {
		t.Errorf("output = %q, should not echo the cancel button label", out.String())
	}

	got, err := newAPIClient().FetchAll(context.Background())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %d comments after decline, want 0", len(got))
	}
}

func TestWhoamiEphemeralNoticeIsTranslated(t *testing.T) {
	home := isolateEnv(t)
	// A directory where the identity file belongs makes storage unreadable.
	if err := os.MkdirAll(filepath.Join(home, ".config", "folio", "identity.yaml"), 0o700); err != nil {
		t.Fatalf("setup: %v", err)
	}

	tests := []struct {
		lang string
		want string
	}{
		{"en-US", "(not saved; a new identity is used next time)"},
		{"id-ID", "(tidak tersimpan; identitas baru dipakai lain kali)"},
	}

	for _, tt := range tests {
		t.Run(tt.lang, func(t *testing.T) {
			out, err := executeCommand("whoami", "--lang", tt.lang)
			if err != nil {
				t.Fatalf("whoami: %v", err)
			}
			if !strings.Contains(out, tt.want) {
				t.Errorf("whoami = %q, want %q", out, tt.want)
			}
		})
	}
}

func TestPostServerDown(t *testing.T) {
	isolateEnv(t)
	t.Setenv("FOLIO_SERVER_URL", "http://127.0.0.1:1")

	if _, err := executeCommand("post", "--yes", "--name", "Ana", "hello"); err == nil {
		t.Fatal("expected submit error")
	}
}

func TestModerationWithKey(t *testing.T) {
	dbPath, _ := testBoard(t)

	if _, err := executeCommand("post", "--yes", "--name", "Ana", "original"); err != nil {
		t.Fatalf("post: %v", err)
	}

	if _, err := executeCommand("edit", "1", "--comment", "edited"); err == nil {
		t.Fatal("expected edit without key to fail")
	}

	out, err := executeCommand("keys", "create", "moderator", "--db", dbPath, "--format", "json")
	if err != nil {
		t.Fatalf("keys create: %v", err)
	}
	var created struct {
		Key string `json:"key"`
	}
	if err := json.Unmarshal([]byte(out), &created); err != nil {
		t.Fatalf("decode key: %v (%s)", err, out)
	}
	t.Setenv("FOLIO_API_KEY", created.Key)

	out, err = executeCommand("edit", "1", "--comment", "edited")
	if err != nil {
		t.Fatalf("edit: %v", err)
	}
	if !strings.Contains(out, "edited") {
		t.Errorf("edit output = %q", out)
	}

	out, err = executeCommand("keys", "list", "--db", dbPath)
	if err != nil {
		t.Fatalf("keys list: %v", err)
	}
	if !strings.Contains(out, "moderator") || strings.Contains(out, "never") {
		t.Errorf("keys list should show a used key:\n%s", out)
	}

	if _, err := executeCommand("rm", "1"); err != nil {
		t.Fatalf("rm: %v", err)
	}
	if _, err := executeCommand("rm", "1"); err == nil {
		t.Error("expected second rm to fail")
	}

	if _, err := executeCommand("keys", "revoke", "1", "--db", dbPath); err != nil {
		t.Fatalf("keys revoke: %v", err)
	}
	if _, err := executeCommand("keys", "revoke", "1", "--db", dbPath); err == nil {
		t.Error("expected revoking a missing key to fail")
	}
}

// syncBuffer is a bytes.Buffer safe for one writer and one reader.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func waitForOutput(t *testing.T, out *syncBuffer, want string) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !strings.Contains(out.String(), want) {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %q in:\n%s", want, out.String())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func waitForSubscriber(t *testing.T, hub *realtime.Hub) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for hub.Subscribers() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("watch never subscribed")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func countID(comments []comment.Comment, id int64) int {
	n := 0
	for _, c := range comments {
		if c.ID == id {
			n++
		}
	}
	return n
}

func TestWatchSessionMergesOwnCommentOnce(t *testing.T) {
	_, hub := testBoard(t)
	ctx := context.Background()

	s, err := newWatchSession(newAPIClient(), newAssigner(), true, submit.AutoConfirm{})
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	t.Cleanup(s.close)

	if err := s.board.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	waitForSubscriber(t, hub)

	s.ctrl.SetForm(submit.Form{Name: "Ana", Body: "my own comment"})
	created, err := s.ctrl.Submit(ctx)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	list := s.board.List()
	if n := countID(list.Snapshot(), created.ID); n != 1 {
		t.Fatalf("after reconcile: comment %d appears %d times, want 1", created.ID, n)
	}

	// The feed is ordered, so once this later insert shows up the echo of
	// our own comment has been applied too.
	later, err := newAPIClient().Create(ctx, "Budi", "someone else", "other")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	deadline := time.Now().Add(3 * time.Second)
	for countID(list.Snapshot(), later.ID) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("live insert never arrived")
		}
		time.Sleep(10 * time.Millisecond)
	}

	got := list.Snapshot()
	if n := countID(got, created.ID); n != 1 {
		t.Errorf("after live insert: comment %d appears %d times, want 1", created.ID, n)
	}
	if len(got) != 2 {
		t.Errorf("len = %d, want 2", len(got))
	}

	id, err := newAssigner().GetOrCreate()
	if err != nil {
		t.Fatalf("identity: %v", err)
	}
	if created.SessionID != id.Token {
		t.Errorf("session id = %q, want the device identity %q", created.SessionID, id.Token)
	}
}

func TestWatchPostsTypedLines(t *testing.T) {
	_, hub := testBoard(t)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	in, typed := io.Pipe()
	t.Cleanup(func() { _ = typed.Close() })

	var out syncBuffer
	done := make(chan error, 1)
	go func() { done <- runWatch(ctx, watchOptions{in: in, out: &out, name: "Ana"}) }()

	waitForOutput(t, &out, "Type a comment and press Enter")
	waitForSubscriber(t, hub)

	if _, err := io.WriteString(typed, "\nHalo dari watch\n"); err != nil {
		t.Fatalf("type: %v", err)
	}
	waitForOutput(t, &out, "✓ Success!")
	waitForOutput(t, &out, "[A] Ana")

	got, err := newAPIClient().FetchAll(context.Background())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(got) != 1 || got[0].Body != "Halo dari watch" {
		t.Fatalf("stored = %+v, want the one typed comment", got)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("watch: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("watch did not stop")
	}
}

func TestWatchFollowsNewComments(t *testing.T) {
	_, hub := testBoard(t)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	var out syncBuffer
	done := make(chan error, 1)
	go func() { done <- runWatch(ctx, watchOptions{out: &out}) }()

	waitForOutput(t, &out, "No comments yet.")
	waitForSubscriber(t, hub)

	if _, err := newAPIClient().Create(context.Background(), "Budi", "live one", "sess"); err != nil {
		t.Fatalf("create: %v", err)
	}
	waitForOutput(t, &out, "[B] Budi")

	hub.Close()
	waitForOutput(t, &out, "Live updates stopped.")

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("watch: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("watch did not stop")
	}
}
