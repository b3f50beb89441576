package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Profile is the derived relationship state for one account. It is fully
// rebuildable from the interaction log: quantitative fields come from the
// metrics aggregator, text fields from the narrative generator.
type Profile struct {
	AccountID          string
	Classification     string
	Tier               int
	FirstInteractionAt *int64
	LastInteractionAt  *int64
	TotalInteractions  int
	AvgDepthScore      float64
	MutualRatio        float64
	Topics             []string
	Tone               string
	Backstory          string
	MemorableMoments   []Moment
	RelationshipArc    string
	Cooling            bool
	FlaggedAt          *int64
	LastAnalyzedAt     *int64
	CreatedAt          int64
	UpdatedAt          int64
}

// Moment is a reference to a memorable interaction, kept verbatim so the
// context assembler can quote it without another lookup.
type Moment struct {
	InteractionID int64   `json:"interaction_id"`
	Content       string  `json:"content"`
	ObservedAt    int64   `json:"observed_at"`
	Score         float64 `json:"score"`
}

const profileColumns = `account_id, classification, tier, first_interaction_at, last_interaction_at,
	total_interactions, avg_depth_score, mutual_ratio, topics, tone,
	backstory, memorable_moments, relationship_arc, cooling, flagged_at,
	last_analyzed_at, created_at, updated_at`

// GetProfile returns the profile for an account, or nil if none exists.
func (db *DB) GetProfile(accountID string) (*Profile, error) {
	row := db.QueryRow(`
		SELECT `+profileColumns+`
		FROM account_profiles WHERE account_id = ?
	`, accountID)

	p, err := scanProfile(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get profile %s: %w", accountID, err)
	}
	return p, nil
}

// UpsertProfile inserts or fully replaces a profile row.
func (db *DB) UpsertProfile(p *Profile) error {
	now := time.Now().UnixMilli()
	if p.CreatedAt == 0 {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	topics, err := json.Marshal(emptyIfNil(p.Topics))
	if err != nil {
		return fmt.Errorf("marshal topics: %w", err)
	}
	moments, err := json.Marshal(p.MemorableMoments)
	if err != nil {
		return fmt.Errorf("marshal moments: %w", err)
	}
	if p.MemorableMoments == nil {
		moments = []byte("[]")
	}

	_, err = db.Exec(`
		INSERT INTO account_profiles (`+profileColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (account_id) DO UPDATE SET
			classification = excluded.classification,
			tier = excluded.tier,
			first_interaction_at = excluded.first_interaction_at,
			last_interaction_at = excluded.last_interaction_at,
			total_interactions = excluded.total_interactions,
			avg_depth_score = excluded.avg_depth_score,
			mutual_ratio = excluded.mutual_ratio,
			topics = excluded.topics,
			tone = excluded.tone,
			backstory = excluded.backstory,
			memorable_moments = excluded.memorable_moments,
			relationship_arc = excluded.relationship_arc,
			cooling = excluded.cooling,
			flagged_at = excluded.flagged_at,
			last_analyzed_at = excluded.last_analyzed_at,
			updated_at = excluded.updated_at
	`, p.AccountID, p.Classification, p.Tier, p.FirstInteractionAt, p.LastInteractionAt,
		p.TotalInteractions, p.AvgDepthScore, p.MutualRatio, string(topics), p.Tone,
		nullIfEmpty(p.Backstory), string(moments), nullIfEmpty(p.RelationshipArc),
		boolToInt(p.Cooling), p.FlaggedAt, p.LastAnalyzedAt, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert profile %s: %w", p.AccountID, err)
	}
	return nil
}

// ListProfiles returns all profiles at or above the given tier, highest
// tier first, then by interaction volume.
func (db *DB) ListProfiles(minTier int) ([]Profile, error) {
	rows, err := db.Query(`
		SELECT `+profileColumns+`
		FROM account_profiles
		WHERE tier >= ?
		ORDER BY tier DESC, total_interactions DESC
	`, minTier)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	defer rows.Close()
	return scanProfiles(rows)
}

// ProfilesNeedingNarrative returns tier >= minTier profiles that have never
// been analyzed or whose last analysis is older than the cutoff, busiest
// accounts first.
func (db *DB) ProfilesNeedingNarrative(minTier int, cutoff int64, limit int) ([]Profile, error) {
	rows, err := db.Query(`
		SELECT `+profileColumns+`
		FROM account_profiles
		WHERE tier >= ?
		  AND (last_analyzed_at IS NULL OR last_analyzed_at < ?)
		ORDER BY total_interactions DESC
		LIMIT ?
	`, minTier, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("profiles needing narrative: %w", err)
	}
	defer rows.Close()
	return scanProfiles(rows)
}

// ResetDerivedProfiles clears every profile field that the pipeline can
// recompute, keeping only manual state (classification and tier-4 pins).
// Used by the replay recovery path.
func (db *DB) ResetDerivedProfiles() error {
	_, err := db.Exec(`
		UPDATE account_profiles SET
			first_interaction_at = NULL,
			last_interaction_at = NULL,
			total_interactions = 0,
			avg_depth_score = 0.0,
			mutual_ratio = 0.0,
			topics = '[]',
			tone = 'neutral',
			cooling = 0,
			flagged_at = NULL
	`)
	if err != nil {
		return fmt.Errorf("reset derived profiles: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(row rowScanner) (*Profile, error) {
	var p Profile
	var topics, moments string
	var backstory, arc sql.NullString
	var first, last, flagged, analyzed sql.NullInt64
	var cooling int

	err := row.Scan(&p.AccountID, &p.Classification, &p.Tier, &first, &last,
		&p.TotalInteractions, &p.AvgDepthScore, &p.MutualRatio, &topics, &p.Tone,
		&backstory, &moments, &arc, &cooling, &flagged,
		&analyzed, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}

	p.FirstInteractionAt = int64Ptr(first)
	p.LastInteractionAt = int64Ptr(last)
	p.FlaggedAt = int64Ptr(flagged)
	p.LastAnalyzedAt = int64Ptr(analyzed)
	p.Backstory = backstory.String
	p.RelationshipArc = arc.String
	p.Cooling = cooling != 0

	if err := json.Unmarshal([]byte(topics), &p.Topics); err != nil {
		p.Topics = nil
	}
	if err := json.Unmarshal([]byte(moments), &p.MemorableMoments); err != nil {
		p.MemorableMoments = nil
	}
	return &p, nil
}

func scanProfiles(rows *sql.Rows) ([]Profile, error) {
	var out []Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func int64Ptr(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
