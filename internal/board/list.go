// Package board keeps a session's view of the comment board: an ordered
// in-memory list seeded by a bulk fetch and kept current by the push channel.
package board

import (
	"sync"

	"github.com/evcraddock/folio/internal/comment"
	"github.com/evcraddock/folio/internal/realtime"
)

// List is the in-memory comment list. It is always ordered newest first and
// holds at most one entry per ID. Every mutation is a whole-list
// read-modify-write under one lock.
type List struct {
	mu      sync.RWMutex
	items   []comment.Comment
	changed chan struct{}
}

// NewList returns an empty list.
func NewList() *List {
	return &List{changed: make(chan struct{}, 1)}
}

// Changed receives a value after one or more mutations. Notifications are
// coalesced; read Snapshot for the current state.
func (l *List) Changed() <-chan struct{} {
	return l.changed
}

// Snapshot returns a copy of the list.
func (l *List) Snapshot() []comment.Comment {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]comment.Comment, len(l.items))
	copy(out, l.items)
	return out
}

// Len returns the number of comments.
func (l *List) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.items)
}

// Replace discards the current contents and seeds the list from a fetch.
func (l *List) Replace(comments []comment.Comment) {
	items := make([]comment.Comment, 0, len(comments))
	seen := make(map[int64]int, len(comments))
	for _, c := range comments {
		if i, ok := seen[c.ID]; ok {
			items[i] = c
			continue
		}
		seen[c.ID] = len(items)
		items = append(items, c)
	}
	comment.SortNewestFirst(items)

	l.mu.Lock()
	l.items = items
	l.mu.Unlock()
	l.notify()
}

// Insert merges a new comment and re-sorts. Events may arrive out of
// creation order, so the head position is never assumed.
func (l *List) Insert(c comment.Comment) {
	l.upsert(c)
}

// Update replaces the comment with the same ID and re-sorts. An update for
// an ID not yet seen is merged like an insert.
func (l *List) Update(c comment.Comment) {
	l.upsert(c)
}

// Delete removes the comment with the given ID. The remaining order is
// untouched. It reports whether anything was removed.
func (l *List) Delete(id int64) bool {
	l.mu.Lock()
	removed := false
	kept := l.items[:0]
	for _, c := range l.items {
		if c.ID == id {
			removed = true
			continue
		}
		kept = append(kept, c)
	}
	l.items = kept
	l.mu.Unlock()

	if removed {
		l.notify()
	}
	return removed
}

// Apply routes a change event to Insert, Update or Delete.
func (l *List) Apply(ev realtime.Event) {
	l.Handlers().Dispatch(ev)
}

// Handlers adapts the list to a push channel subscription.
func (l *List) Handlers() realtime.Handlers {
	return realtime.Handlers{
		OnInsert: l.Insert,
		OnUpdate: l.Update,
		OnDelete: func(id int64) { l.Delete(id) },
	}
}

func (l *List) upsert(c comment.Comment) {
	l.mu.Lock()
	replaced := false
	for i := range l.items {
		if l.items[i].ID == c.ID {
			l.items[i] = c
			replaced = true
			break
		}
	}
	if !replaced {
		l.items = append(l.items, c)
	}
	comment.SortNewestFirst(l.items)
	l.mu.Unlock()
	l.notify()
}

func (l *List) notify() {
	select {
	case l.changed <- struct{}{}:
	default:
	}
}
