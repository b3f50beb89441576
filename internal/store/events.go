package store

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Event records a notable relationship transition: a reconnection after a
// cooling period, or a tier promotion/demotion with its reason.
type Event struct {
	ID        string
	AccountID string
	Kind      string // reconnection, promotion, demotion
	Detail    string
	CreatedAt int64
}

// AddEvent appends an event and returns its generated id.
func (db *DB) AddEvent(accountID, kind, detail string) (string, error) {
	id := uuid.NewString()
	now := time.Now().UnixMilli()
	_, err := db.Exec(`
		INSERT INTO events (id, account_id, kind, detail, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, id, accountID, kind, detail, now)
	if err != nil {
		return "", fmt.Errorf("add event: %w", err)
	}
	return id, nil
}

// RecentEvents returns the most recent events, newest first. Notification
// consumers poll this rather than subscribing to the engine.
func (db *DB) RecentEvents(limit int) ([]Event, error) {
	rows, err := db.Query(`
		SELECT id, account_id, kind, detail, created_at
		FROM events ORDER BY created_at DESC, id LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.AccountID, &e.Kind, &e.Detail, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
