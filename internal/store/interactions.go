package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// maxContentSize caps stored interaction content. Likes and follows carry no
// text anyway; long posts are truncated, the head is enough for scoring.
const maxContentSize = 4 * 1024

// Interaction is one observed interaction between two accounts.
// Rows are append-only: never mutated or deleted after insert.
type Interaction struct {
	ID          int64
	FromAccount string
	ToAccount   string
	Kind        string // mention, reply, like, follow, quote
	Content     string
	PostRef     string
	ObservedAt  int64 // unix millis
	CreatedAt   int64
}

// AddInteraction appends an interaction. Duplicate delivery of the same
// interaction (same from/to/kind/post_ref/observed_at) is a no-op; the
// returned bool reports whether a new row was inserted.
func (db *DB) AddInteraction(in *Interaction) (bool, error) {
	if len(in.Content) > maxContentSize {
		in.Content = in.Content[:maxContentSize]
	}

	now := time.Now().UnixMilli()
	res, err := db.Exec(`
		INSERT INTO interactions (from_account, to_account, kind, content, post_ref, observed_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (from_account, to_account, kind, post_ref, observed_at) DO NOTHING
	`, in.FromAccount, in.ToAccount, in.Kind, in.Content, in.PostRef, in.ObservedAt, now)
	if err != nil {
		return false, fmt.Errorf("add interaction: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("add interaction rows: %w", err)
	}
	if n == 0 {
		return false, nil
	}

	id, _ := res.LastInsertId()
	in.ID = id
	in.CreatedAt = now
	return true, nil
}

// GetInteractions returns every interaction involving the account, oldest
// first. Ordering by observed_at (id breaks ties) is the source of truth
// for history replay.
func (db *DB) GetInteractions(account string) ([]Interaction, error) {
	rows, err := db.Query(`
		SELECT id, from_account, to_account, kind, content, post_ref, observed_at, created_at
		FROM interactions
		WHERE from_account = ? OR to_account = ?
		ORDER BY observed_at, id
	`, account, account)
	if err != nil {
		return nil, fmt.Errorf("get interactions: %w", err)
	}
	defer rows.Close()
	return scanInteractions(rows)
}

// GetRecentInteractions returns the most recent interactions involving the
// account, newest first.
func (db *DB) GetRecentInteractions(account string, limit int) ([]Interaction, error) {
	rows, err := db.Query(`
		SELECT id, from_account, to_account, kind, content, post_ref, observed_at, created_at
		FROM interactions
		WHERE from_account = ? OR to_account = ?
		ORDER BY observed_at DESC, id DESC
		LIMIT ?
	`, account, account, limit)
	if err != nil {
		return nil, fmt.Errorf("get recent interactions: %w", err)
	}
	defer rows.Close()
	return scanInteractions(rows)
}

// CountInteractions returns how many interactions involve the account.
func (db *DB) CountInteractions(account string) (int, error) {
	var count int
	err := db.QueryRow(`
		SELECT COUNT(*) FROM interactions
		WHERE from_account = ? OR to_account = ?
	`, account, account).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count interactions: %w", err)
	}
	return count, nil
}

// DistinctAccountsSince returns the accounts (other than self) that appear in
// interactions observed at or after the given time. Used to target batch
// profile refreshes at recently active accounts only.
func (db *DB) DistinctAccountsSince(self string, since int64) ([]string, error) {
	rows, err := db.Query(`
		SELECT DISTINCT from_account FROM interactions
		WHERE observed_at >= ? AND from_account != ?
		UNION
		SELECT DISTINCT to_account FROM interactions
		WHERE observed_at >= ? AND to_account != ?
	`, since, self, since, self)
	if err != nil {
		return nil, fmt.Errorf("distinct accounts: %w", err)
	}
	defer rows.Close()

	var accounts []string
	for rows.Next() {
		var a string
		if err := rows.Scan(&a); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		if strings.TrimSpace(a) == "" {
			continue
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// AllAccounts returns every account (other than self) present in the
// interaction log. Used by full rebuilds.
func (db *DB) AllAccounts(self string) ([]string, error) {
	return db.DistinctAccountsSince(self, 0)
}

func scanInteractions(rows *sql.Rows) ([]Interaction, error) {
	var out []Interaction
	for rows.Next() {
		var in Interaction
		if err := rows.Scan(&in.ID, &in.FromAccount, &in.ToAccount, &in.Kind,
			&in.Content, &in.PostRef, &in.ObservedAt, &in.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan interaction: %w", err)
		}
		out = append(out, in)
	}
	return out, rows.Err()
}
