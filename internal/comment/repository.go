package comment

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"
)

// Field limits enforced on write.
const (
	MaxNameLen = 100
	MaxBodyLen = 2000
)

var (
	// ErrInvalid marks a write rejected by validation.
	ErrInvalid = errors.New("invalid comment")
	// ErrNotFound is returned when no comment has the requested ID.
	ErrNotFound = errors.New("comment not found")
)

const selectColumns = `id, name, comment, user_id_session, created_at, updated_at`

// Repository provides CRUD operations for comments.
type Repository struct {
	db  *sql.DB
	now func() time.Time
}

// NewRepository creates a comment repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db, now: time.Now}
}

// Patch holds the fields an update may change. Nil fields are left alone.
type Patch struct {
	Name *string `json:"name,omitempty"`
	Body *string `json:"comment,omitempty"`
}

// Add inserts a new comment. The store assigns ID and CreatedAt.
func (r *Repository) Add(name, body, sessionID string) (*Comment, error) {
	name, body = strings.TrimSpace(name), strings.TrimSpace(body)
	if err := validate(name, body); err != nil {
		return nil, err
	}

	result, err := r.db.Exec(
		"INSERT INTO comments (name, comment, user_id_session, created_at) VALUES (?, ?, ?, ?)",
		name, body, strings.TrimSpace(sessionID), r.now().UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("inserting comment: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting insert id: %w", err)
	}

	return r.Get(id)
}

// Get returns a single comment by ID.
func (r *Repository) Get(id int64) (*Comment, error) {
	row := r.db.QueryRow(fmt.Sprintf("SELECT %s FROM comments WHERE id = ?", selectColumns), id)

	c, err := scanComment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("comment %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying comment %d: %w", id, err)
	}
	return c, nil
}

// List returns all comments, newest first.
func (r *Repository) List() (comments []*Comment, err error) {
	rows, err := r.db.Query(
		fmt.Sprintf("SELECT %s FROM comments ORDER BY created_at DESC, id DESC", selectColumns),
	)
	if err != nil {
		return nil, fmt.Errorf("listing comments: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("closing rows", "err", closeErr)
		}
	}()

	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning comment: %w", err)
		}
		comments = append(comments, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating comments: %w", err)
	}

	return comments, nil
}

// Update applies a patch to an existing comment and returns the result.
// CreatedAt never changes.
func (r *Repository) Update(id int64, p Patch) (*Comment, error) {
	current, err := r.Get(id)
	if err != nil {
		return nil, err
	}

	name, body := current.Name, current.Body
	if p.Name != nil {
		name = strings.TrimSpace(*p.Name)
	}
	if p.Body != nil {
		body = strings.TrimSpace(*p.Body)
	}
	if err := validate(name, body); err != nil {
		return nil, err
	}

	result, err := r.db.Exec(
		"UPDATE comments SET name = ?, comment = ?, updated_at = ? WHERE id = ?",
		name, body, r.now().UTC(), id,
	)
	if err != nil {
		return nil, fmt.Errorf("updating comment: %w", err)
	}
	if err := requireAffected(result, id); err != nil {
		return nil, err
	}

	return r.Get(id)
}

// Delete removes a comment by ID.
func (r *Repository) Delete(id int64) error {
	result, err := r.db.Exec("DELETE FROM comments WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting comment: %w", err)
	}
	return requireAffected(result, id)
}

func requireAffected(result sql.Result, id int64) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("comment %d: %w", id, ErrNotFound)
	}
	return nil
}

// validate expects already-trimmed input.
func validate(name, body string) error {
	switch {
	case name == "":
		return fmt.Errorf("%w: name is required", ErrInvalid)
	case body == "":
		return fmt.Errorf("%w: comment is required", ErrInvalid)
	case utf8.RuneCountInString(name) > MaxNameLen:
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalid, MaxNameLen)
	case utf8.RuneCountInString(body) > MaxBodyLen:
		return fmt.Errorf("%w: comment exceeds %d characters", ErrInvalid, MaxBodyLen)
	}
	return nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanComment(s scanner) (*Comment, error) {
	var c Comment
	if err := s.Scan(&c.ID, &c.Name, &c.Body, &c.SessionID, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	c.CreatedAt = c.CreatedAt.UTC()
	return &c, nil
}
