package db

import (
	"database/sql"
	"fmt"
	"log/slog"
	"sort"
	"strings"
)

// migrations is an ordered list of SQL statements to run.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS comments (
		id              INTEGER  PRIMARY KEY AUTOINCREMENT,
		name            TEXT     NOT NULL,
		comment         TEXT     NOT NULL,
		user_id_session TEXT     NOT NULL DEFAULT '',
		created_at      DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_comments_created_at ON comments (created_at DESC, id DESC)`,
	`CREATE TABLE IF NOT EXISTS api_keys (
		id           INTEGER  PRIMARY KEY AUTOINCREMENT,
		name         TEXT     NOT NULL,
		key_prefix   TEXT     NOT NULL,
		key_hash     TEXT     NOT NULL UNIQUE,
		created_at   DATETIME DEFAULT CURRENT_TIMESTAMP,
		last_used_at DATETIME
	)`,
}

// migrate runs all migrations in order.
func migrate(db *sql.DB) error {
	for i, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}

	// Column additions (idempotent, checks if column exists first)
	columnMigrations := []struct {
		table, column, definition string
	}{
		{"comments", "updated_at", "DATETIME"},
	}

	for _, cm := range columnMigrations {
		if err := addColumnIfNotExists(db, cm.table, cm.column, cm.definition); err != nil {
			return fmt.Errorf("adding %s.%s: %w", cm.table, cm.column, err)
		}
	}

	return nil
}

// addColumnIfNotExists adds a column to a table if it doesn't already exist.
func addColumnIfNotExists(db *sql.DB, table, column, definition string) error {
	cols, err := columns(db, table)
	if err != nil {
		return err
	}
	if cols[column] {
		return nil
	}
	_, err = db.Exec(fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, definition))
	return err
}

// requiredColumns lists what the comment repository and api key store read.
var requiredColumns = map[string][]string{
	"comments": {"id", "name", "comment", "user_id_session", "created_at", "updated_at"},
	"api_keys": {"id", "name", "key_prefix", "key_hash", "created_at", "last_used_at"},
}

// SchemaError reports a table that is missing columns the board needs,
// usually a database file written by something else.
type SchemaError struct {
	Table   string
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("table %s is missing columns %s", e.Table, strings.Join(e.Missing, ", "))
}

// checkSchema verifies every required column is present.
func checkSchema(db *sql.DB) error {
	tables := make([]string, 0, len(requiredColumns))
	for table := range requiredColumns {
		tables = append(tables, table)
	}
	sort.Strings(tables)

	for _, table := range tables {
		cols, err := columns(db, table)
		if err != nil {
			return err
		}
		var missing []string
		for _, want := range requiredColumns[table] {
			if !cols[want] {
				missing = append(missing, want)
			}
		}
		if len(missing) > 0 {
			return &SchemaError{Table: table, Missing: missing}
		}
	}
	return nil
}

// columns returns the set of column names in table.
func columns(db *sql.DB, table string) (map[string]bool, error) {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return nil, fmt.Errorf("checking table info: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			slog.Warn("closing rows", "err", cerr)
		}
	}()

	cols := map[string]bool{}
	for rows.Next() {
		var cid int
		var name, colType string
		var notNull, pk int
		var dfltValue interface{}
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dfltValue, &pk); err != nil {
			return nil, fmt.Errorf("scanning column info: %w", err)
		}
		cols[name] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating columns: %w", err)
	}
	return cols, nil
}
