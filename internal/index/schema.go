// Package index keeps the chart snapshot in SQLite together with a
// normalised role_placements projection used for role lookup and search.
// Full-text search uses FTS5 when built with the sqlite_fts5 tag.
package index

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const coreSchemaSQL = `
CREATE TABLE IF NOT EXISTS chart_snapshot (
	id       INTEGER PRIMARY KEY CHECK (id = 1),
	body     TEXT     NOT NULL,
	checksum TEXT     NOT NULL DEFAULT '',
	saved_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS role_placements (
	role_key        TEXT PRIMARY KEY,
	role            TEXT    NOT NULL,
	department_id   TEXT    NOT NULL,
	department_name TEXT    NOT NULL,
	level_id        TEXT    NOT NULL,
	level_number    INTEGER NOT NULL,
	position        INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_placements_level ON role_placements(department_id, level_id);
`

// DB wraps a sql.DB with snapshot and placement operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("index: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: ping: %w", err)
	}
	if _, err := conn.Exec(coreSchemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: apply core schema: %w", err)
	}
	if err := initFTS(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: apply fts schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
