package board

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/evcraddock/folio/internal/comment"
	"github.com/evcraddock/folio/internal/realtime"
)

// ErrNotWatching is returned by Stale when no subscription is open.
var ErrNotWatching = errors.New("board is not watching for changes")

// Fetcher performs the bulk read that seeds the list.
type Fetcher interface {
	FetchAll(ctx context.Context) ([]comment.Comment, error)
}

// SubscribeFunc opens a push channel; realtime.Subscribe satisfies it.
type SubscribeFunc func(ctx context.Context, url string, h realtime.Handlers) (*realtime.Subscription, error)

// Board owns the in-memory list for one session together with its push
// channel subscription.
type Board struct {
	fetcher   Fetcher
	feedURL   string
	subscribe SubscribeFunc
	list      *List

	mu      sync.Mutex
	loading int // fetches in flight
	pending []realtime.Event
	sub     *realtime.Subscription
}

// New creates a board that reads through fetcher and listens on feedURL.
func New(fetcher Fetcher, feedURL string) *Board {
	return &Board{
		fetcher:   fetcher,
		feedURL:   feedURL,
		subscribe: realtime.Subscribe,
		list:      NewList(),
	}
}

// List returns the board's comment list.
func (b *Board) List() *List {
	return b.list
}

// Start opens the push channel and then seeds the list. Events that arrive
// while the seed fetch is in flight are replayed on top of it. A failed
// fetch is returned but leaves the subscription running.
func (b *Board) Start(ctx context.Context) error {
	if err := b.Watch(ctx); err != nil {
		return err
	}
	return b.Load(ctx)
}

// Load fetches every comment and replaces the list. On failure the list is
// left exactly as it was. Loads may overlap; events queued since the first
// of them began are replayed once the last one finishes.
func (b *Board) Load(ctx context.Context) error {
	b.mu.Lock()
	b.loading++
	b.mu.Unlock()

	comments, err := b.fetcher.FetchAll(ctx)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.loading--
	if err == nil {
		b.list.Replace(comments)
	}
	if b.loading == 0 {
		for _, ev := range b.pending {
			b.list.Apply(ev)
		}
		b.pending = nil
	}

	if err != nil {
		slog.Warn("loading comments; keeping previous list", "count", b.list.Len(), "err", err)
		return err
	}
	slog.Debug("comments loaded", "count", len(comments))
	return nil
}

// Watch opens the push channel. Calling it while already watching is a no-op.
func (b *Board) Watch(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.sub != nil {
		select {
		case <-b.sub.Done():
		default:
			return nil
		}
	}

	sub, err := b.subscribe(ctx, b.feedURL, realtime.Handlers{
		OnInsert: func(c comment.Comment) { b.apply(realtime.Insert{Comment: c}) },
		OnUpdate: func(c comment.Comment) { b.apply(realtime.Update{Comment: c}) },
		OnDelete: func(id int64) { b.apply(realtime.Delete{ID: id}) },
	})
	if err != nil {
		return fmt.Errorf("watching comments: %w", err)
	}
	b.sub = sub
	return nil
}

// Stale is closed when the push channel drops. From then on the list only
// changes through Load or Reconcile.
func (b *Board) Stale() (<-chan struct{}, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sub == nil {
		return nil, ErrNotWatching
	}
	return b.sub.Done(), nil
}

// Reconcile merges a comment this session created itself, using the copy
// returned by the store. The matching insert event, if it arrives, is
// absorbed by ID.
func (b *Board) Reconcile(c comment.Comment) {
	b.apply(realtime.Insert{Comment: c})
}

// Close releases the push channel.
func (b *Board) Close() error {
	b.mu.Lock()
	sub := b.sub
	b.sub = nil
	b.mu.Unlock()

	if sub == nil {
		return nil
	}
	if err := sub.Close(); err != nil {
		return fmt.Errorf("closing change feed: %w", err)
	}
	return nil
}

func (b *Board) apply(ev realtime.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.loading > 0 {
		b.pending = append(b.pending, ev)
		return
	}
	b.list.Apply(ev)
}
