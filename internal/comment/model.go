// Package comment provides the comment domain model and data access.
package comment

import (
	"sort"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// Comment is one entry on the board. ID and CreatedAt are assigned by the
// store; SessionID is the submitting client's pseudonymous identity.
type Comment struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	Body      string     `json:"comment"`
	SessionID string     `json:"user_id_session"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

const idHintLen = 8

// IDHint returns the partial session identifier shown next to a comment,
// or "" when the comment carries no session.
func (c Comment) IDHint() string {
	if c.SessionID == "" {
		return ""
	}
	if utf8.RuneCountInString(c.SessionID) <= idHintLen {
		return c.SessionID
	}
	return string([]rune(c.SessionID)[:idHintLen]) + "..."
}

// Initial returns the upper-cased first letter of the name, or "?".
func (c Comment) Initial() string {
	name := strings.TrimSpace(c.Name)
	if name == "" {
		return "?"
	}
	r, _ := utf8.DecodeRuneInString(name)
	return string(unicode.ToUpper(r))
}

// Newer reports whether a sorts before b: later CreatedAt first, higher ID
// breaking ties.
func Newer(a, b Comment) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}

// SortNewestFirst orders comments by CreatedAt descending in place.
func SortNewestFirst(comments []Comment) {
	sort.SliceStable(comments, func(i, j int) bool {
		return Newer(comments[i], comments[j])
	})
}
