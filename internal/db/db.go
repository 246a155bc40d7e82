// Package db provides the SQLite connection and schema for buildlight.
package db

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// DB wraps the SQLite database connection
type DB struct {
	*sql.DB
}

// Open opens the database and initializes the schema
func Open(dbPath string) (*DB, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &DB{db}, nil
}

// initSchema creates all required tables
func initSchema(db *sql.DB) error {
	// Light ledger - append-only history of coordinator decisions and device calls.
	// Audit only; the desired-state cache is never rebuilt from it.
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS light_ledger (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			event_type TEXT NOT NULL,
			timestamp INTEGER NOT NULL,
			light_id TEXT NOT NULL,
			state TEXT,
			cycle_id TEXT,
			error TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_ledger_light_ts ON light_ledger(light_id, timestamp);
		CREATE INDEX IF NOT EXISTS idx_ledger_type_ts ON light_ledger(event_type, timestamp);
	`)
	if err != nil {
		return fmt.Errorf("failed to create light_ledger table: %w", err)
	}

	return nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.DB.Close()
}
