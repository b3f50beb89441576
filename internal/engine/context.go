package engine

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/moltworks/rapport/internal/store"
	"github.com/moltworks/rapport/internal/tier"
)

// contextSnippets is how many recent message snippets a tier-2 context
// block quotes.
const contextSnippets = 2

// Context assembles the tier-appropriate context block for reply
// generation. Read-only and fast: no LLM calls ever happen here. It never
// fails for a well-formed account id; the worst case is the stranger line.
func (e *Engine) Context(account string) string {
	prof, err := e.db.GetProfile(account)
	if err != nil {
		log.Printf("context: %s: %v", account, err)
		prof = nil
	}
	if prof == nil {
		return fmt.Sprintf("Unknown account @%s. No prior interactions. Treat as a stranger.", account)
	}

	t := tier.Tier(prof.Tier)

	// Tier 3+ without a generated backstory degrades to the tier-2 shape
	// rather than failing; enrichment simply hasn't caught up yet.
	if t >= tier.FriendRival && prof.Backstory == "" {
		t = tier.Known
	}

	switch t {
	case tier.Stranger, tier.Acquaintance:
		return e.basicContext(prof)
	case tier.Known:
		return e.mediumContext(prof)
	default:
		return e.fullContext(prof)
	}
}

// basicContext: classification label and interaction count only.
func (e *Engine) basicContext(p *store.Profile) string {
	return fmt.Sprintf("@%s - %s (Tier %d). Classification: %s. %d interactions.",
		p.AccountID, tier.Tier(p.Tier), p.Tier, p.Classification, p.TotalInteractions)
}

// mediumContext adds topics, tone, and the most recent message snippets.
func (e *Engine) mediumContext(p *store.Profile) string {
	var b strings.Builder
	fmt.Fprintf(&b, "RELATIONSHIP CONTEXT FOR @%s:\n", p.AccountID)
	fmt.Fprintf(&b, "- Status: %s (Tier %d)\n", tier.Tier(p.Tier), p.Tier)
	fmt.Fprintf(&b, "- Classification: %s\n", p.Classification)
	fmt.Fprintf(&b, "- Interactions: %d\n", p.TotalInteractions)
	fmt.Fprintf(&b, "- Topics: %s\n", topicsLine(p.Topics))
	fmt.Fprintf(&b, "- Tone: %s\n", p.Tone)
	if p.RelationshipArc != "" {
		fmt.Fprintf(&b, "- Arc: %s\n", p.RelationshipArc)
	}

	for _, s := range e.recentSnippets(p.AccountID, contextSnippets) {
		fmt.Fprintf(&b, "Recent: %q\n", s)
	}
	return strings.TrimRight(b.String(), "\n")
}

// fullContext adds the backstory, arc, and memorable moments verbatim.
func (e *Engine) fullContext(p *store.Profile) string {
	firstMet := "unknown"
	if p.FirstInteractionAt != nil {
		firstMet = time.UnixMilli(*p.FirstInteractionAt).Format("2006-01-02")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "RELATIONSHIP CONTEXT FOR @%s:\n", p.AccountID)
	fmt.Fprintf(&b, "- Status: %s (Tier %d)\n", tier.Tier(p.Tier), p.Tier)
	fmt.Fprintf(&b, "- First met: %s\n", firstMet)
	fmt.Fprintf(&b, "- Total interactions: %d\n", p.TotalInteractions)
	fmt.Fprintf(&b, "- Classification: %s\n", p.Classification)
	fmt.Fprintf(&b, "- Topics discussed: %s\n", topicsLine(p.Topics))
	fmt.Fprintf(&b, "- Detected tone: %s\n", p.Tone)
	fmt.Fprintf(&b, "- Message quality: %.1f/1.0\n", p.AvgDepthScore)

	if p.RelationshipArc != "" {
		fmt.Fprintf(&b, "\nRelationship arc: %s\n", p.RelationshipArc)
	}
	fmt.Fprintf(&b, "\nBackstory:\n%s\n", p.Backstory)

	if len(p.MemorableMoments) > 0 {
		b.WriteString("\nMemorable moments:\n")
		for i, m := range p.MemorableMoments {
			if i == 3 {
				break
			}
			fmt.Fprintf(&b, "- %q\n", m.Content)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// recentSnippets returns the newest inbound message snippets for an
// account, newest first.
func (e *Engine) recentSnippets(account string, n int) []string {
	recent, err := e.db.GetRecentInteractions(account, 20)
	if err != nil {
		return nil
	}

	var snippets []string
	for _, in := range recent {
		if in.FromAccount != account {
			continue
		}
		content := strings.TrimSpace(in.Content)
		if content == "" {
			continue
		}
		if len(content) > 120 {
			content = content[:120]
		}
		snippets = append(snippets, content)
		if len(snippets) == n {
			break
		}
	}
	return snippets
}

func topicsLine(topics []string) string {
	if len(topics) == 0 {
		return "general"
	}
	return strings.Join(topics, ", ")
}
