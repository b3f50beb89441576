package store

import (
	"fmt"
	"time"
)

// SnapshotTiers returns the tier recorded per account at the last export.
// An empty map means no export has happened yet.
func (db *DB) SnapshotTiers() (map[string]int, error) {
	rows, err := db.Query("SELECT account_id, tier FROM export_snapshots")
	if err != nil {
		return nil, fmt.Errorf("snapshot tiers: %w", err)
	}
	defer rows.Close()

	tiers := make(map[string]int)
	for rows.Next() {
		var account string
		var tier int
		if err := rows.Scan(&account, &tier); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		tiers[account] = tier
	}
	return tiers, rows.Err()
}

// ReplaceSnapshot atomically replaces the export snapshot with the current
// tier per account.
func (db *DB) ReplaceSnapshot(tiers map[string]int) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin snapshot: %w", err)
	}

	if _, err := tx.Exec("DELETE FROM export_snapshots"); err != nil {
		tx.Rollback()
		return fmt.Errorf("clear snapshot: %w", err)
	}

	now := time.Now().UnixMilli()
	for account, tier := range tiers {
		if _, err := tx.Exec(
			"INSERT INTO export_snapshots (account_id, tier, taken_at) VALUES (?, ?, ?)",
			account, tier, now,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("insert snapshot %s: %w", account, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit snapshot: %w", err)
	}
	return nil
}
