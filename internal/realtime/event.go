// Package realtime carries comment table changes from the server to
// connected clients over a WebSocket push channel.
package realtime

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/evcraddock/folio/internal/comment"
)

// Table is the only table the push channel reports on.
const Table = "comments"

// Kind tags a change event.
type Kind string

// Event kinds, as sent on the wire.
const (
	KindInsert Kind = "INSERT"
	KindUpdate Kind = "UPDATE"
	KindDelete Kind = "DELETE"
)

// ErrMalformed is returned by Decode for payloads that fail validation.
var ErrMalformed = errors.New("malformed change event")

// Event is one change on the comment table. It is one of Insert, Update or
// Delete.
type Event interface {
	Kind() Kind
	CommentID() int64
	isEvent()
}

// Insert reports a newly created comment.
type Insert struct {
	Comment comment.Comment
}

// Update reports the new state of an existing comment.
type Update struct {
	Comment comment.Comment
}

// Delete reports the removal of a comment.
type Delete struct {
	ID int64
}

func (Insert) Kind() Kind { return KindInsert }
func (Update) Kind() Kind { return KindUpdate }
func (Delete) Kind() Kind { return KindDelete }

func (e Insert) CommentID() int64 { return e.Comment.ID }
func (e Update) CommentID() int64 { return e.Comment.ID }
func (e Delete) CommentID() int64 { return e.ID }

func (Insert) isEvent() {}
func (Update) isEvent() {}
func (Delete) isEvent() {}

type rowKey struct {
	ID int64 `json:"id"`
}

// payload is the wire form: {"eventType", "table", "new", "old"}.
type payload struct {
	EventType Kind             `json:"eventType"`
	Table     string           `json:"table"`
	New       *comment.Comment `json:"new,omitempty"`
	Old       *rowKey          `json:"old,omitempty"`
}

// Encode serializes an event to its wire form.
func Encode(ev Event) ([]byte, error) {
	p := payload{EventType: ev.Kind(), Table: Table}
	switch e := ev.(type) {
	case Insert:
		c := e.Comment
		p.New = &c
	case Update:
		c := e.Comment
		p.New = &c
		p.Old = &rowKey{ID: c.ID}
	case Delete:
		p.Old = &rowKey{ID: e.ID}
	default:
		return nil, fmt.Errorf("encoding event: unknown type %T", ev)
	}
	return json.Marshal(p)
}

// Decode parses and validates a wire payload.
func Decode(data []byte) (Event, error) {
	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if p.Table != Table {
		return nil, fmt.Errorf("%w: unexpected table %q", ErrMalformed, p.Table)
	}

	switch p.EventType {
	case KindInsert, KindUpdate:
		if p.New == nil {
			return nil, fmt.Errorf("%w: %s without new row", ErrMalformed, p.EventType)
		}
		if p.New.ID == 0 {
			return nil, fmt.Errorf("%w: %s row has no id", ErrMalformed, p.EventType)
		}
		if p.New.CreatedAt.IsZero() {
			return nil, fmt.Errorf("%w: %s row %d has no created_at", ErrMalformed, p.EventType, p.New.ID)
		}
		if p.EventType == KindInsert {
			return Insert{Comment: *p.New}, nil
		}
		return Update{Comment: *p.New}, nil
	case KindDelete:
		if p.Old == nil || p.Old.ID == 0 {
			return nil, fmt.Errorf("%w: DELETE without old id", ErrMalformed)
		}
		return Delete{ID: p.Old.ID}, nil
	default:
		return nil, fmt.Errorf("%w: unknown event type %q", ErrMalformed, p.EventType)
	}
}

// Handlers receive decoded events. Nil handlers are skipped.
type Handlers struct {
	OnInsert func(comment.Comment)
	OnUpdate func(comment.Comment)
	OnDelete func(id int64)
}

// Dispatch routes an event to the matching handler.
func (h Handlers) Dispatch(ev Event) {
	switch e := ev.(type) {
	case Insert:
		if h.OnInsert != nil {
			h.OnInsert(e.Comment)
		}
	case Update:
		if h.OnUpdate != nil {
			h.OnUpdate(e.Comment)
		}
	case Delete:
		if h.OnDelete != nil {
			h.OnDelete(e.ID)
		}
	}
}
