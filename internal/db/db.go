// Package db opens the comment board's SQLite store and keeps its schema
// current.
package db

import (
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// DefaultBusyTimeout is how long a writer waits on a locked database.
const DefaultBusyTimeout = 5 * time.Second

// DefaultPath returns the default database path: ~/.config/folio/comments.db
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".config", "folio", "comments.db"), nil
}

type options struct {
	busyTimeout  time.Duration
	maxOpenConns int
}

// Option tunes how Open connects.
type Option func(*options)

// WithBusyTimeout sets how long a statement waits for a lock before
// failing with SQLITE_BUSY. Non-positive values keep the default.
func WithBusyTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.busyTimeout = d
		}
	}
}

// WithMaxOpenConns caps the connection pool. Zero means unlimited.
func WithMaxOpenConns(n int) Option {
	return func(o *options) { o.maxOpenConns = n }
}

// dsn builds a go-sqlite3 connection string. The pragmas ride on the DSN
// so every pooled connection gets them, not only the first.
func dsn(path string, o options) string {
	q := url.Values{}
	q.Set("_journal_mode", "WAL")
	q.Set("_foreign_keys", "on")
	q.Set("_busy_timeout", strconv.FormatInt(o.busyTimeout.Milliseconds(), 10))
	return "file:" + path + "?" + q.Encode()
}

// Open opens (or creates) the comment database at path, migrates it and
// verifies the comment and api key tables have every column the board
// reads.
func Open(path string, opts ...Option) (*sql.DB, error) {
	o := options{busyTimeout: DefaultBusyTimeout}
	for _, opt := range opts {
		opt(&o)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating database directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite3", dsn(path, o))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(o.maxOpenConns)

	if err := prepare(db); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("%w (also failed to close: %v)", err, closeErr)
		}
		return nil, err
	}
	return db, nil
}

func prepare(db *sql.DB) error {
	if err := db.Ping(); err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	if err := migrate(db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	if err := checkSchema(db); err != nil {
		return err
	}
	return nil
}
