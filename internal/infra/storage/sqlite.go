// Package storage persists games to disk: a SQLite database for the
// game index and the archived event ledger, plus per-game JSON
// documents for the hot state snapshots.
package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// InitSQLite opens the local SQLite database and creates the schemas
// for the game index and the archived event ledger.
func InitSQLite(dbPath string) (*sql.DB, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	if err := createSchemas(db); err != nil {
		return nil, fmt.Errorf("failed to create schemas: %w", err)
	}

	return db, nil
}

func createSchemas(db *sql.DB) error {
	schemas := []string{
		`CREATE TABLE IF NOT EXISTS games (
			game_id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			last_saved DATETIME,
			is_active BOOLEAN NOT NULL DEFAULT 0
		);`,
		`CREATE TABLE IF NOT EXISTS archived_events (
			id TEXT PRIMARY KEY,
			game_id TEXT NOT NULL,
			timestamp DATETIME NOT NULL,
			agent_id TEXT NOT NULL,
			action_type TEXT NOT NULL,
			summary TEXT NOT NULL,
			is_public BOOLEAN NOT NULL DEFAULT 1,
			resolution_status TEXT NOT NULL,
			parent_event_id TEXT,
			payload TEXT NOT NULL,
			FOREIGN KEY (game_id) REFERENCES games(game_id)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_archived_game_id ON archived_events(game_id);`,
		`CREATE INDEX IF NOT EXISTS idx_archived_agent_id ON archived_events(agent_id);`,
		`CREATE INDEX IF NOT EXISTS idx_archived_timestamp ON archived_events(timestamp);`,
	}

	for _, query := range schemas {
		if _, err := db.Exec(query); err != nil {
			return err
		}
	}

	return nil
}
