// Package ledger keeps an append-only history of light updates for auditing.
package ledger

import (
	"database/sql"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/buildlight/internal/coordinator"
	"github.com/dokzlo13/buildlight/internal/status"
)

// Entry represents a single event in the ledger
type Entry struct {
	ID        int64
	EventType coordinator.EventKind
	Timestamp time.Time
	LightID   string
	State     status.LightState
	CycleID   string
	Error     string
}

// Ledger provides append-only event logging
type Ledger struct {
	db  *sql.DB
	now func() time.Time
}

// New creates a new Ledger using the provided database connection
func New(db *sql.DB) *Ledger {
	return &Ledger{db: db, now: time.Now}
}

// Append adds a new event to the ledger
func (l *Ledger) Append(ev coordinator.Event) error {
	var errText sql.NullString
	if ev.Err != nil {
		errText = sql.NullString{String: ev.Err.Error(), Valid: true}
	}

	_, err := l.db.Exec(`
		INSERT INTO light_ledger (event_type, timestamp, light_id, state, cycle_id, error)
		VALUES (?, ?, ?, ?, ?, ?)
	`, string(ev.Kind), l.now().UTC().Unix(), ev.LightID, string(ev.State), ev.CycleID, errText)

	return err
}

// Record implements coordinator.Recorder. Write failures are logged, never returned.
func (l *Ledger) Record(ev coordinator.Event) {
	if err := l.Append(ev); err != nil {
		log.Warn().Err(err).Str("event", string(ev.Kind)).Str("light", ev.LightID).Msg("Failed to append to ledger")
	}
}

// GetByLight returns the most recent entries for a light
func (l *Ledger) GetByLight(lightID string, limit int) ([]*Entry, error) {
	rows, err := l.db.Query(`
		SELECT id, event_type, timestamp, light_id, state, cycle_id, error
		FROM light_ledger
		WHERE light_id = ?
		ORDER BY id DESC
		LIMIT ?
	`, lightID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return l.scanEntries(rows)
}

// GetByType returns entries filtered by event type
func (l *Ledger) GetByType(eventType coordinator.EventKind, limit int) ([]*Entry, error) {
	rows, err := l.db.Query(`
		SELECT id, event_type, timestamp, light_id, state, cycle_id, error
		FROM light_ledger
		WHERE event_type = ?
		ORDER BY id DESC
		LIMIT ?
	`, string(eventType), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return l.scanEntries(rows)
}

// DeleteOlderThan removes entries older than the specified duration (retention policy)
func (l *Ledger) DeleteOlderThan(retention time.Duration) (int64, error) {
	cutoff := l.now().Add(-retention).Unix()
	result, err := l.db.Exec(`
		DELETE FROM light_ledger WHERE timestamp < ?
	`, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (l *Ledger) scanEntries(rows *sql.Rows) ([]*Entry, error) {
	var entries []*Entry
	for rows.Next() {
		var entry Entry
		var state, cycleID, errText sql.NullString
		var timestamp int64

		err := rows.Scan(
			&entry.ID, &entry.EventType, &timestamp, &entry.LightID, &state, &cycleID, &errText,
		)
		if err != nil {
			return nil, err
		}

		entry.Timestamp = time.Unix(timestamp, 0).UTC()
		if state.Valid {
			entry.State = status.LightState(state.String)
		}
		if cycleID.Valid {
			entry.CycleID = cycleID.String
		}
		if errText.Valid {
			entry.Error = errText.String
		}

		entries = append(entries, &entry)
	}

	return entries, rows.Err()
}
