package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrGameNotFound is returned for game ids not in the index.
var ErrGameNotFound = errors.New("storage: game not found")

// GameRecord is one row of the game index.
type GameRecord struct {
	ID        string     `json:"game_id"`
	Name      string     `json:"name"`
	CreatedAt time.Time  `json:"created_at"`
	LastSaved *time.Time `json:"last_saved,omitempty"`
	IsActive  bool       `json:"is_active"`
}

// GameManager is the multi-game index: listing, creating, activating
// and deleting saved games. At most one game is active at a time.
type GameManager struct {
	db   *sql.DB
	root string
}

func NewGameManager(db *sql.DB, snapshotRoot string) *GameManager {
	return &GameManager{db: db, root: snapshotRoot}
}

// Create registers a new game and returns its record.
func (m *GameManager) Create(name string) (GameRecord, error) {
	rec := GameRecord{
		ID:        "game_" + strings.ReplaceAll(uuid.New().String(), "-", "")[:8],
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
	_, err := m.db.Exec(
		`INSERT INTO games (game_id, name, created_at, is_active) VALUES (?, ?, ?, 0)`,
		rec.ID, rec.Name, rec.CreatedAt,
	)
	if err != nil {
		return GameRecord{}, fmt.Errorf("failed to create game: %w", err)
	}
	return rec, nil
}

// List returns every saved game, newest first.
func (m *GameManager) List() ([]GameRecord, error) {
	rows, err := m.db.Query(`SELECT game_id, name, created_at, last_saved, is_active FROM games ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list games: %w", err)
	}
	defer rows.Close()

	var games []GameRecord
	for rows.Next() {
		var rec GameRecord
		var lastSaved sql.NullTime
		if err := rows.Scan(&rec.ID, &rec.Name, &rec.CreatedAt, &lastSaved, &rec.IsActive); err != nil {
			return nil, err
		}
		if lastSaved.Valid {
			rec.LastSaved = &lastSaved.Time
		}
		games = append(games, rec)
	}
	return games, rows.Err()
}

// Get returns one game record.
func (m *GameManager) Get(id string) (GameRecord, error) {
	var rec GameRecord
	var lastSaved sql.NullTime
	err := m.db.QueryRow(
		`SELECT game_id, name, created_at, last_saved, is_active FROM games WHERE game_id = ?`, id,
	).Scan(&rec.ID, &rec.Name, &rec.CreatedAt, &lastSaved, &rec.IsActive)
	if err == sql.ErrNoRows {
		return GameRecord{}, fmt.Errorf("%w: %s", ErrGameNotFound, id)
	}
	if err != nil {
		return GameRecord{}, err
	}
	if lastSaved.Valid {
		rec.LastSaved = &lastSaved.Time
	}
	return rec, nil
}

// SetActive marks one game active and every other game inactive.
func (m *GameManager) SetActive(id string) error {
	if _, err := m.Get(id); err != nil {
		return err
	}
	tx, err := m.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.Exec(`UPDATE games SET is_active = 0`); err != nil {
		return err
	}
	if _, err := tx.Exec(`UPDATE games SET is_active = 1 WHERE game_id = ?`, id); err != nil {
		return err
	}
	return tx.Commit()
}

// Active returns the active game, if any.
func (m *GameManager) Active() (GameRecord, bool, error) {
	rows, err := m.List()
	if err != nil {
		return GameRecord{}, false, err
	}
	for _, rec := range rows {
		if rec.IsActive {
			return rec, true, nil
		}
	}
	return GameRecord{}, false, nil
}

// Touch records a successful save.
func (m *GameManager) Touch(id string, at time.Time) error {
	res, err := m.db.Exec(`UPDATE games SET last_saved = ? WHERE game_id = ?`, at, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrGameNotFound, id)
	}
	return nil
}

// Delete removes a game from the index along with its archived
// events and snapshot documents.
func (m *GameManager) Delete(id string) error {
	if _, err := m.Get(id); err != nil {
		return err
	}
	tx, err := m.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.Exec(`DELETE FROM archived_events WHERE game_id = ?`, id); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM games WHERE game_id = ?`, id); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	return NewSnapshotStore(m.root, id).Delete()
}
