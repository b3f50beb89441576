package engine

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/moltworks/rapport/internal/llm"
	"github.com/moltworks/rapport/internal/store"
	"github.com/moltworks/rapport/internal/tier"
)

const (
	// Bounded history windows fed to the narrative prompt.
	theirMessageWindow = 15
	ourMessageWindow   = 10
	promptQuoteLen     = 200

	// Generated text shorter than this is treated as a failed generation
	// and the previous backstory is retained.
	minBackstoryLen = 50

	momentKeep = 3
)

// narrativeWorker drains the enrichment queue one account at a time.
// A single dedicated worker isolates slow LLM calls from the metrics and
// tier phases, which never wait on this goroutine.
func (e *Engine) narrativeWorker() {
	defer e.wg.Done()
	for {
		select {
		case account := <-e.narrativeCh:
			if err := e.Enrich(account); err != nil {
				log.Printf("narrative: %s: %v", account, err)
			}
		case <-e.stopCh:
			return
		}
	}
}

// scheduleNarrative queues an account for asynchronous enrichment.
// Never blocks: if the queue is full the account is skipped and will be
// picked up by the scheduled refresh pass instead.
func (e *Engine) scheduleNarrative(account string) {
	select {
	case e.narrativeCh <- account:
	default:
		log.Printf("narrative: queue full, deferring %s to scheduled pass", account)
	}
}

// Enrich regenerates the narrative fields for one account: backstory,
// relationship arc, and memorable moments. Best-effort: any failure
// leaves the previous text untouched and is logged, never surfaced to
// context callers.
func (e *Engine) Enrich(account string) error {
	prof, err := e.db.GetProfile(account)
	if err != nil {
		return err
	}
	if prof == nil {
		return fmt.Errorf("no profile for %s", account)
	}

	history, err := e.db.GetInteractions(account)
	if err != nil {
		return err
	}

	// Moments are deterministic; refresh them even when the LLM is down.
	moments := SelectMoments(e.cfg.SelfAccount, account, history, momentKeep)

	facts := e.profileFacts(prof)
	theirText, ourText := e.messageWindows(account, history)

	generated := false
	if e.llm != nil {
		timeout := time.Duration(e.cfg.NarrativeTimeoutSec) * time.Second

		backstory, err := e.complete(timeout, llm.BackstoryPrompt(e.cfg.SelfAccount, facts, theirText, ourText))
		if err != nil {
			log.Printf("narrative: backstory for %s failed, keeping previous: %v", account, err)
		} else if len(backstory) < minBackstoryLen {
			log.Printf("narrative: backstory for %s too short (%d chars), keeping previous", account, len(backstory))
		} else {
			prof.Backstory = backstory
			generated = true
		}

		arc, err := e.complete(timeout, llm.ArcPrompt(e.cfg.SelfAccount, facts))
		if err != nil {
			log.Printf("narrative: arc for %s failed, keeping previous: %v", account, err)
		} else if arc != "" {
			prof.RelationshipArc = strings.Trim(arc, `"`)
			generated = true
		}
	}

	mu := e.lockAccount(account)
	mu.Lock()
	defer mu.Unlock()

	// Re-read under the lock; the metrics pipeline may have moved on.
	current, err := e.db.GetProfile(account)
	if err != nil {
		return err
	}
	if current == nil {
		current = prof
	}

	current.MemorableMoments = moments
	if generated {
		current.Backstory = prof.Backstory
		current.RelationshipArc = prof.RelationshipArc
		now := e.now().UnixMilli()
		current.LastAnalyzedAt = &now
	}
	return e.db.UpsertProfile(current)
}

// EnrichDue runs the scheduled narrative pass: tier 2+ accounts whose
// last analysis is older than the refresh interval, busiest first,
// bounded by the configured batch size.
func (e *Engine) EnrichDue() (int, error) {
	cutoff := e.now().Add(-time.Duration(e.cfg.RefreshIntervalHours) * time.Hour).UnixMilli()
	due, err := e.db.ProfilesNeedingNarrative(int(tier.Known), cutoff, e.cfg.EnrichBatchSize)
	if err != nil {
		return 0, err
	}

	enriched := 0
	for _, p := range due {
		if err := e.Enrich(p.AccountID); err != nil {
			log.Printf("narrative: scheduled pass %s: %v", p.AccountID, err)
			continue
		}
		enriched++
	}
	return enriched, nil
}

// complete runs one bounded LLM call. The timeout means a stuck model
// fails this pass and gets retried on the next scheduled one; it never
// holds the profile lock.
func (e *Engine) complete(timeout time.Duration, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	resp, err := e.llm.Complete(ctx, prompt)
	if err != nil {
		return "", err
	}
	if resp == nil {
		return "", fmt.Errorf("empty response")
	}
	return strings.TrimSpace(resp.Content), nil
}

func (e *Engine) profileFacts(p *store.Profile) llm.ProfileFacts {
	firstMet := "unknown"
	if p.FirstInteractionAt != nil {
		firstMet = time.UnixMilli(*p.FirstInteractionAt).Format("2006-01-02")
	}
	topics := strings.Join(p.Topics, ", ")
	if topics == "" {
		topics = "general"
	}
	return llm.ProfileFacts{
		Account:        p.AccountID,
		TierName:       tier.Tier(p.Tier).String(),
		Tier:           p.Tier,
		Classification: p.Classification,
		Interactions:   p.TotalInteractions,
		FirstMet:       firstMet,
		Topics:         topics,
		Tone:           p.Tone,
		AvgDepth:       p.AvgDepthScore,
	}
}

// messageWindows splits recent direct messages by author: what they said
// to the agent and what the agent said back. Filtered first, windowed
// after, so a flood from one side cannot push out the other.
func (e *Engine) messageWindows(account string, history []store.Interaction) (theirText, ourText string) {
	self := e.cfg.SelfAccount
	var theirs, ours []string

	for _, in := range history {
		content := strings.TrimSpace(in.Content)
		if content == "" {
			continue
		}
		if len(content) > promptQuoteLen {
			content = content[:promptQuoteLen]
		}
		date := time.UnixMilli(in.ObservedAt).Format("2006-01-02")

		switch {
		case in.FromAccount == account && in.ToAccount == self:
			theirs = append(theirs, fmt.Sprintf("[%s] @%s: %s", date, account, content))
		case in.FromAccount == self && in.ToAccount == account:
			ours = append(ours, fmt.Sprintf("[%s] %s: %s", date, self, content))
		}
	}

	if len(theirs) > theirMessageWindow {
		theirs = theirs[len(theirs)-theirMessageWindow:]
	}
	if len(ours) > ourMessageWindow {
		ours = ours[len(ours)-ourMessageWindow:]
	}
	return strings.Join(theirs, "\n"), strings.Join(ours, "\n")
}
