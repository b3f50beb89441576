package store

import (
	"fmt"
)

type migration struct {
	Version     int
	Description string
	SQL         string
}

var migrations = []migration{
	{
		Version:     1,
		Description: "interactions: append-only record of observed interactions",
		SQL: `
CREATE TABLE interactions (
    id           INTEGER PRIMARY KEY,
    from_account TEXT NOT NULL,
    to_account   TEXT NOT NULL,
    kind         TEXT NOT NULL CHECK (kind IN ('mention', 'reply', 'like', 'follow', 'quote')),
    content      TEXT NOT NULL DEFAULT '',
    post_ref     TEXT NOT NULL DEFAULT '',
    observed_at  INTEGER NOT NULL,
    created_at   INTEGER NOT NULL,

    UNIQUE (from_account, to_account, kind, post_ref, observed_at)
);

CREATE INDEX idx_interactions_from     ON interactions(from_account, observed_at);
CREATE INDEX idx_interactions_to       ON interactions(to_account, observed_at);
CREATE INDEX idx_interactions_observed ON interactions(observed_at);
`,
	},
	{
		Version:     2,
		Description: "account_profiles: derived relationship state per account",
		SQL: `
CREATE TABLE account_profiles (
    account_id           TEXT PRIMARY KEY,
    classification       TEXT NOT NULL DEFAULT 'stranger'
                         CHECK (classification IN ('stranger', 'bot', 'spammer', 'quality', 'inner_circle')),
    tier                 INTEGER NOT NULL DEFAULT 0 CHECK (tier BETWEEN 0 AND 4),
    first_interaction_at INTEGER,
    last_interaction_at  INTEGER,
    total_interactions   INTEGER NOT NULL DEFAULT 0,
    avg_depth_score      REAL NOT NULL DEFAULT 0.0,
    mutual_ratio         REAL NOT NULL DEFAULT 0.0,
    topics               TEXT NOT NULL DEFAULT '[]',
    tone                 TEXT NOT NULL DEFAULT 'neutral',
    backstory            TEXT,
    memorable_moments    TEXT NOT NULL DEFAULT '[]',
    relationship_arc     TEXT,
    cooling              INTEGER NOT NULL DEFAULT 0,
    flagged_at           INTEGER,
    last_analyzed_at     INTEGER,
    created_at           INTEGER NOT NULL,
    updated_at           INTEGER NOT NULL
);

CREATE INDEX idx_profiles_tier     ON account_profiles(tier);
CREATE INDEX idx_profiles_class    ON account_profiles(classification);
CREATE INDEX idx_profiles_last     ON account_profiles(last_interaction_at);
CREATE INDEX idx_profiles_analyzed ON account_profiles(last_analyzed_at);
`,
	},
	{
		Version:     3,
		Description: "export_snapshots: tier per account at last export, for rising diff",
		SQL: `
CREATE TABLE export_snapshots (
    account_id TEXT PRIMARY KEY,
    tier       INTEGER NOT NULL,
    taken_at   INTEGER NOT NULL
);
`,
	},
	{
		Version:     4,
		Description: "events: reconnection and tier-change audit log",
		SQL: `
CREATE TABLE events (
    id         TEXT PRIMARY KEY,
    account_id TEXT NOT NULL,
    kind       TEXT NOT NULL CHECK (kind IN ('reconnection', 'promotion', 'demotion')),
    detail     TEXT NOT NULL DEFAULT '',
    created_at INTEGER NOT NULL
);

CREATE INDEX idx_events_account ON events(account_id);
CREATE INDEX idx_events_created ON events(created_at DESC);
`,
	},
}

func (db *DB) migrate() error {
	// Create schema_versions table if it doesn't exist
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_versions (
			version     INTEGER PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at  INTEGER NOT NULL DEFAULT (strftime('%s', 'now') * 1000)
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_versions: %w", err)
	}

	for _, m := range migrations {
		var count int
		err := db.QueryRow("SELECT COUNT(*) FROM schema_versions WHERE version = ?", m.Version).Scan(&count)
		if err != nil {
			return fmt.Errorf("check migration %d: %w", m.Version, err)
		}
		if count > 0 {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.Version, err)
		}

		if _, err := tx.Exec(m.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, err)
		}

		if _, err := tx.Exec(
			"INSERT INTO schema_versions (version, description) VALUES (?, ?)",
			m.Version, m.Description,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}

	return nil
}

// SchemaVersion returns the current schema version.
func (db *DB) SchemaVersion() (int, error) {
	var version int
	err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_versions").Scan(&version)
	return version, err
}
