package realtime

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/evcraddock/folio/internal/comment"
)

func TestSubscribeReceivesEvents(t *testing.T) {
	hub, url := testFeed(t)

	events := make(chan Event, 8)
	sub, err := Subscribe(context.Background(), url, Handlers{
		OnInsert: func(c comment.Comment) { events <- Insert{Comment: c} },
		OnUpdate: func(c comment.Comment) { events <- Update{Comment: c} },
		OnDelete: func(id int64) { events <- Delete{ID: id} },
	})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	t.Cleanup(func() { _ = sub.Close() })
	waitForSubscribers(t, hub, 1)

	created := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	hub.Publish(Insert{Comment: comment.Comment{ID: 1, Name: "Alice", Body: "Hello", CreatedAt: created}})
	hub.Publish(Update{Comment: comment.Comment{ID: 1, Name: "Alice", Body: "Edited", CreatedAt: created}})
	hub.Publish(Delete{ID: 1})

	want := []Kind{KindInsert, KindUpdate, KindDelete}
	for i, kind := range want {
		select {
		case ev := <-events:
			if ev.Kind() != kind {
				t.Errorf("event %d kind = %s, want %s", i, ev.Kind(), kind)
			}
			if ev.CommentID() != 1 {
				t.Errorf("event %d id = %d, want 1", i, ev.CommentID())
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for event %d", i)
		}
	}
}

func TestSubscriptionCloseReleasesChannel(t *testing.T) {
	hub, url := testFeed(t)

	sub, err := Subscribe(context.Background(), url, Handlers{})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	waitForSubscribers(t, hub, 1)

	if err := sub.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := sub.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}

	select {
	case <-sub.Done():
	default:
		t.Fatal("expected Done closed after Close")
	}
	if sub.Err() != nil {
		t.Errorf("err = %v, want nil after caller close", sub.Err())
	}
	waitForSubscribers(t, hub, 0)
}

func TestSubscriptionEndsWithContext(t *testing.T) {
	hub, url := testFeed(t)

	ctx, cancel := context.WithCancel(context.Background())
	sub, err := Subscribe(ctx, url, Handlers{})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	waitForSubscribers(t, hub, 1)

	cancel()

	select {
	case <-sub.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("subscription still running after cancel")
	}
}

func TestSubscriptionReportsTransportLoss(t *testing.T) {
	hub, url := testFeed(t)

	sub, err := Subscribe(context.Background(), url, Handlers{})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	t.Cleanup(func() { _ = sub.Close() })
	waitForSubscribers(t, hub, 1)

	hub.Close()

	select {
	case <-sub.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("subscription still running after server closed feed")
	}
	if sub.Err() == nil {
		t.Error("expected transport error after server close")
	}
}

func TestSubscribeDialFailure(t *testing.T) {
	_, err := Subscribe(context.Background(), "ws://127.0.0.1:1/api/comments/changes", Handlers{})
	if err == nil {
		t.Fatal("expected dial error")
	}
	if !strings.Contains(err.Error(), "connecting to change feed") {
		t.Errorf("err = %v", err)
	}
}

func TestSubscribeSkipsMalformedEvents(t *testing.T) {
	hub, url := testFeed(t)

	got := make(chan int64, 2)
	sub, err := Subscribe(context.Background(), url, Handlers{
		OnDelete: func(id int64) { got <- id },
	})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	t.Cleanup(func() { _ = sub.Close() })
	waitForSubscribers(t, hub, 1)

	// An insert with no created_at is rejected at the boundary.
	hub.Publish(Insert{Comment: comment.Comment{ID: 5}})
	hub.Publish(Delete{ID: 6})

	select {
	case id := <-got:
		if id != 6 {
			t.Errorf("id = %d, want 6", id)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for delete")
	}
}

func testFeed(t *testing.T) (*Hub, string) {
	t.Helper()
	hub := NewHub(8)
	srv := httptest.NewServer(hub.Handler(time.Second))
	t.Cleanup(func() {
		hub.Close()
		srv.Close()
	})
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func waitForSubscribers(t *testing.T, hub *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.Subscribers() != n {
		if time.Now().After(deadline) {
			t.Fatalf("subscribers = %d, want %d", hub.Subscribers(), n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}
