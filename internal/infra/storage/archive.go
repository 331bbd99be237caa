package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/ziv044/PM1/internal/world"
)

// EventArchive is the cold ledger for one game. The resolver evicts
// terminal events from the live window into it; the full event JSON
// rides along so nothing is lost to the column projection.
type EventArchive struct {
	db     *sql.DB
	gameID string
}

func NewEventArchive(db *sql.DB, gameID string) *EventArchive {
	return &EventArchive{db: db, gameID: gameID}
}

// ArchiveEvents appends evicted events to the ledger. Events already
// archived under the same id are skipped, so re-archiving after a
// crash replay is harmless.
func (a *EventArchive) ArchiveEvents(events []world.Event) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := a.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin archive transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT OR IGNORE INTO archived_events
			(id, game_id, timestamp, agent_id, action_type, summary, is_public, resolution_status, parent_event_id, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare archive insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range events {
		payload, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("failed to marshal event %s: %w", e.ID, err)
		}
		if _, err := stmt.Exec(
			e.ID, a.gameID, e.Timestamp, e.AgentID, e.ActionType, e.Summary,
			e.IsPublic, e.ResolutionStatus, e.ParentEventID, string(payload),
		); err != nil {
			return fmt.Errorf("failed to archive event %s: %w", e.ID, err)
		}
	}

	return tx.Commit()
}

func (a *EventArchive) getMany(query string, args ...interface{}) ([]world.Event, error) {
	rows, err := a.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []world.Event
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var e world.Event
		if err := json.Unmarshal([]byte(payload), &e); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// Recent returns the newest archived events, newest first.
func (a *EventArchive) Recent(limit int) ([]world.Event, error) {
	query := `SELECT payload FROM archived_events WHERE game_id = ? ORDER BY timestamp DESC LIMIT ?`
	return a.getMany(query, a.gameID, limit)
}

// ByAgent returns one actor's archived events, oldest first.
func (a *EventArchive) ByAgent(agentID string) ([]world.Event, error) {
	query := `SELECT payload FROM archived_events WHERE game_id = ? AND agent_id = ? ORDER BY timestamp ASC`
	return a.getMany(query, a.gameID, agentID)
}

// Count returns how many events this game has archived.
func (a *EventArchive) Count() (int, error) {
	var n int
	err := a.db.QueryRow(`SELECT COUNT(*) FROM archived_events WHERE game_id = ?`, a.gameID).Scan(&n)
	return n, err
}
