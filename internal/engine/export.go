package engine

import (
	"time"

	"github.com/moltworks/rapport/internal/store"
	"github.com/moltworks/rapport/internal/tier"
)

// Export is the public-facing projection of the profile store, grouped by
// tier for the website renderer.
type Export struct {
	InnerCircle   []ExportEntry `json:"inner_circle"`
	FriendsRivals []ExportEntry `json:"friends_or_rivals"`
	Known         []ExportEntry `json:"known"`
	Rising        []ExportEntry `json:"rising"`
	Cooling       []ExportEntry `json:"cooling"`
	TotalProfiles int           `json:"total_profiles"`
	GeneratedAt   string        `json:"generated_at"`
}

// ExportEntry is one account's public card.
type ExportEntry struct {
	Name              string   `json:"name"`
	Tier              int      `json:"tier"`
	TierName          string   `json:"tier_name"`
	Classification    string   `json:"classification"`
	TotalInteractions int      `json:"total_interactions"`
	Backstory         string   `json:"backstory"`
	RelationshipArc   string   `json:"relationship_arc"`
	Topics            []string `json:"topics"`
	Tone              string   `json:"tone"`
	MemorableQuote    string   `json:"memorable_quote"`
	Avatar            string   `json:"avatar"`
	Link              string   `json:"link"`
	Cooling           bool     `json:"cooling"`
}

const (
	maxKnownEntries   = 8
	maxCoolingEntries = 5
)

// Export projects the profile store into the grouped public structure.
// Pure read aside from the snapshot bookkeeping: "rising" is computed by
// diffing current tiers against the previous export's snapshot, then the
// snapshot is replaced. Nothing on the profiles themselves changes.
func (e *Engine) Export() (*Export, error) {
	profiles, err := e.db.ListProfiles(0)
	if err != nil {
		return nil, err
	}

	previous, err := e.db.SnapshotTiers()
	if err != nil {
		return nil, err
	}

	out := &Export{
		TotalProfiles: len(profiles),
		GeneratedAt:   e.now().UTC().Format(time.RFC3339),
	}

	current := make(map[string]int, len(profiles))
	for _, p := range profiles {
		current[p.AccountID] = p.Tier
		entry := e.exportEntry(&p)

		switch tier.Tier(p.Tier) {
		case tier.InnerCircle:
			out.InnerCircle = append(out.InnerCircle, entry)
		case tier.FriendRival:
			out.FriendsRivals = append(out.FriendsRivals, entry)
		case tier.Known:
			if len(out.Known) < maxKnownEntries {
				out.Known = append(out.Known, entry)
			}
		}

		// Rising: tier increased since the last export. First export has
		// no baseline, so nothing rises.
		if len(previous) > 0 && p.Tier > previous[p.AccountID] {
			out.Rising = append(out.Rising, entry)
		}

		if p.Cooling && tier.Tier(p.Tier) >= tier.Known && len(out.Cooling) < maxCoolingEntries {
			out.Cooling = append(out.Cooling, entry)
		}
	}

	if err := e.db.ReplaceSnapshot(current); err != nil {
		return nil, err
	}
	return out, nil
}

func (e *Engine) exportEntry(p *store.Profile) ExportEntry {
	entry := ExportEntry{
		Name:              p.AccountID,
		Tier:              p.Tier,
		TierName:          tier.Tier(p.Tier).String(),
		Classification:    p.Classification,
		TotalInteractions: p.TotalInteractions,
		Backstory:         p.Backstory,
		RelationshipArc:   p.RelationshipArc,
		Topics:            p.Topics,
		Tone:              p.Tone,
		Avatar:            avatarFor(tier.Classification(p.Classification)),
		Link:              e.cfg.ProfileLinkBase + "/" + p.AccountID,
		Cooling:           p.Cooling,
	}
	if len(p.MemorableMoments) > 0 {
		quote := p.MemorableMoments[0].Content
		if len(quote) > 100 {
			quote = quote[:100]
		}
		entry.MemorableQuote = quote
	}
	return entry
}

// avatarFor picks the emoji shown next to an account on the website.
func avatarFor(c tier.Classification) string {
	switch c {
	case tier.ClassInnerCircle:
		return "⭐"
	case tier.ClassQuality:
		return "✓"
	case tier.ClassBot:
		return "🤖"
	case tier.ClassSpammer:
		return "📋"
	default:
		return "•"
	}
}
