// Package engine orchestrates the relationship pipeline: interaction
// recording, metric aggregation, tier classification, narrative
// enrichment, and inactivity decay.
package engine

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/moltworks/rapport/internal/config"
	"github.com/moltworks/rapport/internal/llm"
	"github.com/moltworks/rapport/internal/metrics"
	"github.com/moltworks/rapport/internal/store"
	"github.com/moltworks/rapport/internal/tier"
)

// Engine owns the profile store and drives all mutations through the
// aggregate → classify pipeline. Profiles are disjoint units of work;
// per-account writes are serialized with a keyed mutex, no global lock.
type Engine struct {
	db  *store.DB
	llm llm.Client
	cfg *config.Config

	// now is injectable so decay tests can move the clock.
	now func() time.Time

	narrativeCh chan string
	stopCh      chan struct{}
	wg          sync.WaitGroup
	stopOnce    sync.Once

	mu        sync.Mutex
	accountMu map[string]*sync.Mutex
}

// New creates an Engine. client may be nil: the deterministic pipeline
// works without an LLM, narratives just never get generated.
func New(db *store.DB, client llm.Client, cfg *config.Config) *Engine {
	e := &Engine{
		db:          db,
		llm:         client,
		cfg:         cfg,
		now:         time.Now,
		narrativeCh: make(chan string, 256),
		stopCh:      make(chan struct{}),
		accountMu:   make(map[string]*sync.Mutex),
	}
	e.wg.Add(1)
	go e.narrativeWorker()
	return e
}

// SetClock overrides the engine clock. Tests only.
func (e *Engine) SetClock(now func() time.Time) {
	e.now = now
}

// Stop shuts down the engine's background goroutines.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() { close(e.stopCh) })
	e.wg.Wait()
}

// lockAccount returns the mutex guarding one account's profile.
func (e *Engine) lockAccount(account string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	m, ok := e.accountMu[account]
	if !ok {
		m = &sync.Mutex{}
		e.accountMu[account] = m
	}
	return m
}

// RecordResult reports what happened when an interaction was recorded.
type RecordResult struct {
	Inserted    bool   // false means duplicate delivery, no-op
	Account     string // the profiled counterpart, "" if none
	Reconnected bool
	OldTier     tier.Tier
	NewTier     tier.Tier
}

// RecordInteraction appends an observed interaction and runs the metrics
// and tier pipeline for the counterpart account. Idempotent against
// duplicate delivery: a repeated dedup key changes nothing. An
// interaction record is always accepted; malformed content just scores
// zero downstream.
func (e *Engine) RecordInteraction(ctx context.Context, in *store.Interaction) (*RecordResult, error) {
	if err := validateKind(in.Kind); err != nil {
		return nil, err
	}
	if in.FromAccount == "" || in.ToAccount == "" {
		return nil, fmt.Errorf("record interaction: from and to accounts required")
	}
	if in.ObservedAt == 0 {
		in.ObservedAt = e.now().UnixMilli()
	}

	res := &RecordResult{Account: e.counterpart(in)}

	inserted, err := e.db.AddInteraction(in)
	if err != nil {
		return nil, err
	}
	res.Inserted = inserted

	// Self-referential traffic is stored but never profiled.
	if res.Account == "" {
		return res, nil
	}

	mu := e.lockAccount(res.Account)
	mu.Lock()
	defer mu.Unlock()

	if inserted {
		reconnected, err := e.checkReconnection(res.Account, in.ObservedAt)
		if err != nil {
			return nil, err
		}
		res.Reconnected = reconnected
	}

	oldTier, newTier, err := e.refreshLocked(res.Account, true)
	if err != nil {
		return nil, err
	}
	res.OldTier, res.NewTier = oldTier, newTier

	if newTier > oldTier {
		e.scheduleNarrative(res.Account)
	}
	return res, nil
}

// checkReconnection detects a dormant account re-engaging: either the
// cooling flag is set, or the gap since the last interaction exceeds the
// flag threshold for its tier. Emits a reconnection event and clears the
// flag; the tier itself is left for the classifier to re-evaluate.
func (e *Engine) checkReconnection(account string, observedAt int64) (bool, error) {
	prof, err := e.db.GetProfile(account)
	if err != nil {
		return false, err
	}
	if prof == nil || prof.LastInteractionAt == nil {
		return false, nil
	}

	gapDays := int((observedAt - *prof.LastInteractionAt) / int64(24*time.Hour/time.Millisecond))
	th := tier.Decay(tier.Tier(prof.Tier))
	dormant := prof.Cooling || (th.FlagDays > 0 && gapDays >= th.FlagDays)
	if !dormant {
		return false, nil
	}

	detail := fmt.Sprintf("back after %d days at tier %d", gapDays, prof.Tier)
	if _, err := e.db.AddEvent(account, "reconnection", detail); err != nil {
		log.Printf("reconnection event for %s: %v", account, err)
	}
	log.Printf("reconnection: %s %s", account, detail)
	return true, nil
}

// RefreshAccount recomputes one account's profile from its full
// interaction history. This is both the normal recompute path and the
// recovery path: replaying the log always reproduces the quantitative
// fields exactly.
func (e *Engine) RefreshAccount(account string) error {
	mu := e.lockAccount(account)
	mu.Lock()
	defer mu.Unlock()
	_, _, err := e.refreshLocked(account, false)
	return err
}

// refreshLocked runs aggregate → classify → upsert for one account. The
// caller must hold the account lock. clearCooling is set on the live
// interaction path, where fresh activity resets the cooling flag.
func (e *Engine) refreshLocked(account string, clearCooling bool) (tier.Tier, tier.Tier, error) {
	history, err := e.db.GetInteractions(account)
	if err != nil {
		return 0, 0, err
	}

	prof, err := e.db.GetProfile(account)
	if err != nil {
		return 0, 0, err
	}
	if prof == nil {
		prof = &store.Profile{
			AccountID:      account,
			Classification: string(tier.ClassStranger),
			Tone:           "neutral",
		}
	}

	rollup := metrics.Aggregate(account, metrics.TopicsPolicy(e.cfg.TopicsPolicy), e.cfg.TopicsWindow, history)

	oldTier := tier.Tier(prof.Tier)
	class := tier.Classification(prof.Classification)
	result := tier.Classify(oldTier, class, rollup)

	prof.Tier = int(result.Tier)
	prof.TotalInteractions = rollup.TotalInteractions
	prof.AvgDepthScore = rollup.AvgDepthScore
	prof.MutualRatio = rollup.MutualRatio
	prof.Topics = rollup.Topics
	prof.Tone = rollup.Tone
	if rollup.FirstAt != 0 {
		prof.FirstInteractionAt = &rollup.FirstAt
	}
	if rollup.LastAt != 0 {
		prof.LastInteractionAt = &rollup.LastAt
	}
	if clearCooling {
		prof.Cooling = false
		prof.FlaggedAt = nil
	}

	if result.Tier != oldTier {
		kind := "promotion"
		if result.Tier < oldTier {
			kind = "demotion"
		}
		log.Printf("tier change: %s %d -> %d (%s)", account, oldTier, result.Tier, result.Reason)
		if _, err := e.db.AddEvent(account, kind, result.Reason); err != nil {
			log.Printf("tier change event for %s: %v", account, err)
		}
	}

	if err := e.db.UpsertProfile(prof); err != nil {
		return 0, 0, err
	}
	return oldTier, result.Tier, nil
}

// RefreshAll recomputes every account active since the given time (zero
// means all accounts) with a bounded worker pool. Accounts are disjoint,
// so workers never contend on the same profile.
func (e *Engine) RefreshAll(since int64) (int, error) {
	accounts, err := e.db.DistinctAccountsSince(e.cfg.SelfAccount, since)
	if err != nil {
		return 0, err
	}

	workers := e.cfg.RefreshWorkers
	if workers < 1 {
		workers = 1
	}

	work := make(chan string)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for account := range work {
				if err := e.RefreshAccount(account); err != nil {
					log.Printf("refresh %s: %v", account, err)
				}
			}
		}()
	}
	for _, a := range accounts {
		work <- a
	}
	close(work)
	wg.Wait()

	return len(accounts), nil
}

// SetClassification relabels an account and immediately re-evaluates its
// tier. Tier is a pure function of (classification, metrics), so a
// relabel can move an account several tiers in one step.
func (e *Engine) SetClassification(account string, class tier.Classification) error {
	mu := e.lockAccount(account)
	mu.Lock()
	defer mu.Unlock()

	prof, err := e.db.GetProfile(account)
	if err != nil {
		return err
	}
	if prof == nil {
		prof = &store.Profile{AccountID: account, Tone: "neutral"}
	}
	prof.Classification = string(class)
	if err := e.db.UpsertProfile(prof); err != nil {
		return err
	}

	_, _, err = e.refreshLocked(account, false)
	return err
}

// Pin manually assigns an account to the inner circle. This is the only
// way tier 4 is ever set; the classifier and the decay monitor both treat
// it as pinned afterwards.
func (e *Engine) Pin(account string) error {
	mu := e.lockAccount(account)
	mu.Lock()
	defer mu.Unlock()

	prof, err := e.db.GetProfile(account)
	if err != nil {
		return err
	}
	if prof == nil {
		prof = &store.Profile{AccountID: account, Tone: "neutral"}
	}
	prof.Tier = int(tier.InnerCircle)
	prof.Classification = string(tier.ClassInnerCircle)
	if err := e.db.UpsertProfile(prof); err != nil {
		return err
	}
	log.Printf("tier change: %s pinned to inner circle (manual assignment)", account)
	e.scheduleNarrative(account)
	return nil
}

// Rebuild clears all derived profile fields and replays the full
// interaction log. Store corruption of a profile row is recovered here;
// the interaction log is the sole source of truth.
func (e *Engine) Rebuild() (int, error) {
	if err := e.db.ResetDerivedProfiles(); err != nil {
		return 0, err
	}
	return e.RefreshAll(0)
}

// counterpart resolves which side of the interaction gets profiled.
// Returns "" when the agent talks to itself.
func (e *Engine) counterpart(in *store.Interaction) string {
	self := e.cfg.SelfAccount
	switch {
	case in.FromAccount == self && in.ToAccount != self:
		return in.ToAccount
	case in.ToAccount == self && in.FromAccount != self:
		return in.FromAccount
	case in.FromAccount != self:
		// Observed third-party interaction mentioning the agent's feed;
		// profile the author.
		return in.FromAccount
	default:
		return ""
	}
}

func validateKind(kind string) error {
	switch kind {
	case "mention", "reply", "like", "follow", "quote":
		return nil
	default:
		return fmt.Errorf("unknown interaction kind %q", kind)
	}
}
