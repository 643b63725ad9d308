// Package store persists interactions, user settings, and training facts to
// a local SQLite database.
package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3" // registers the "sqlite3" driver
)

// DB wraps a SQLite connection configured for single-writer WAL access.
// SetMaxOpenConns(1) makes the pool itself the serialization point for
// writes, matching the "single serialized sink per repository" ownership
// rule without an app-level mutex.
type DB struct {
	conn *sql.DB
}

// Open opens (creating if absent) the SQLite database at path, applies the
// WAL/busy-timeout pragmas, and runs idempotent migrations.
func Open(path string) (*DB, error) {
	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	conn.SetMaxOpenConns(1)

	if err = applyPragmas(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}
	if err = runMigrations(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &DB{conn: conn}, nil
}

func applyPragmas(conn *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	}
	for _, p := range pragmas {
		if _, err := conn.Exec(p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}

// runMigrations creates the base schema if absent, then adds any columns
// and indexes introduced since, checked via PRAGMA table_info so re-running
// this on an already-current database is a no-op.
func runMigrations(conn *sql.DB) error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS interactions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			created_at TEXT NOT NULL,
			original_transcription TEXT NOT NULL,
			llm_response TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS user_settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS training_facts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			text TEXT NOT NULL,
			created_at TEXT NOT NULL
		)`,
	}
	for _, stmt := range schema {
		if _, err := conn.Exec(stmt); err != nil {
			return err
		}
	}

	columns := []struct {
		table, column, ddl string
	}{
		{"interactions", "corrected_response", "ALTER TABLE interactions ADD COLUMN corrected_response TEXT"},
		{"interactions", "exclude_from_profile", "ALTER TABLE interactions ADD COLUMN exclude_from_profile INTEGER NOT NULL DEFAULT 0"},
		{"interactions", "weight", "ALTER TABLE interactions ADD COLUMN weight REAL"},
		{"interactions", "speaker_id", "ALTER TABLE interactions ADD COLUMN speaker_id TEXT"},
		{"interactions", "session_id", "ALTER TABLE interactions ADD COLUMN session_id TEXT"},
	}
	for _, c := range columns {
		has, err := hasColumn(conn, c.table, c.column)
		if err != nil {
			return err
		}
		if !has {
			if _, err = conn.Exec(c.ddl); err != nil {
				return fmt.Errorf("add column %s.%s: %w", c.table, c.column, err)
			}
		}
	}

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_interactions_created_at ON interactions(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_interactions_weight ON interactions(weight)`,
		`CREATE INDEX IF NOT EXISTS idx_interactions_session_id ON interactions(session_id)`,
	}
	for _, idx := range indexes {
		if _, err := conn.Exec(idx); err != nil {
			return err
		}
	}
	return nil
}

func hasColumn(conn *sql.DB, table, column string) (bool, error) {
	rows, err := conn.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid       int
			name      string
			colType   string
			notNull   int
			dfltValue sql.NullString
			pk        int
		)
		if err = rows.Scan(&cid, &name, &colType, &notNull, &dfltValue, &pk); err != nil {
			return false, err
		}
		if name == column {
			return true, nil
		}
	}
	return false, rows.Err()
}

// Close closes the underlying connection.
func (d *DB) Close() error {
	return d.conn.Close()
}
