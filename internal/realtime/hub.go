package realtime

import (
	"log/slog"
	"sync"
)

// DefaultBuffer is the per-subscriber queue length used by NewHub when
// given a non-positive size.
const DefaultBuffer = 64

// Hub fans change events out to every connected subscriber. A subscriber
// whose queue is full is dropped instead of blocking the publisher.
type Hub struct {
	mu     sync.Mutex
	subs   map[*subscriber]struct{}
	buffer int
	closed bool
}

type subscriber struct {
	ch chan []byte
}

// NewHub creates a hub with the given per-subscriber buffer.
func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Hub{
		subs:   make(map[*subscriber]struct{}),
		buffer: buffer,
	}
}

// Publish sends an event to all subscribers without blocking.
func (h *Hub) Publish(ev Event) {
	msg, err := Encode(ev)
	if err != nil {
		slog.Error("encoding change event", "kind", ev.Kind(), "id", ev.CommentID(), "err", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for s := range h.subs {
		select {
		case s.ch <- msg:
		default:
			slog.Warn("dropping slow change subscriber", "kind", ev.Kind(), "id", ev.CommentID())
			delete(h.subs, s)
			close(s.ch)
		}
	}
}

// Subscribers returns the number of connected subscribers.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close disconnects every subscriber. Later subscriptions are refused.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for s := range h.subs {
		delete(h.subs, s)
		close(s.ch)
	}
}

// subscribe registers a new subscriber, or returns nil once the hub is closed.
func (h *Hub) subscribe() *subscriber {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}
	s := &subscriber{ch: make(chan []byte, h.buffer)}
	h.subs[s] = struct{}{}
	return s
}

func (h *Hub) unsubscribe(s *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.subs[s]; ok {
		delete(h.subs, s)
		close(s.ch)
	}
}
