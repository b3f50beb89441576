package engine

import (
	"fmt"
	"log"
	"time"

	"github.com/moltworks/rapport/internal/tier"
)

// SweepResult summarizes one decay pass.
type SweepResult struct {
	Flagged []string
	Demoted []string
}

// DecaySweep walks every tier 1+ profile and applies the inactivity
// policy: past the flag threshold the account is marked cooling, past the
// demote threshold it drops exactly one tier. Inner circle only ever
// flags; strangers have nothing to lose. Runs on wall-clock schedule,
// independent of interaction volume.
func (e *Engine) DecaySweep() (*SweepResult, error) {
	now := e.now()
	res := &SweepResult{}

	profiles, err := e.db.ListProfiles(int(tier.Acquaintance))
	if err != nil {
		return nil, err
	}

	for _, p := range profiles {
		if p.LastInteractionAt == nil {
			continue
		}

		mu := e.lockAccount(p.AccountID)
		mu.Lock()

		// Re-read under the lock; an interaction may have landed since
		// the list was taken.
		prof, err := e.db.GetProfile(p.AccountID)
		if err != nil || prof == nil || prof.LastInteractionAt == nil {
			mu.Unlock()
			continue
		}

		cur := tier.Tier(prof.Tier)
		days := int(now.Sub(time.UnixMilli(*prof.LastInteractionAt)).Hours() / 24)
		th := tier.Decay(cur)

		switch {
		case th.DemoteDays > 0 && days >= th.DemoteDays:
			next := tier.Demote(cur, tier.Classification(prof.Classification))
			prof.Tier = int(next)
			prof.Cooling = false
			prof.FlaggedAt = nil
			if err := e.db.UpsertProfile(prof); err != nil {
				log.Printf("decay: demote %s: %v", prof.AccountID, err)
				mu.Unlock()
				continue
			}
			reason := fmt.Sprintf("inactive %d days >= demote threshold %d", days, th.DemoteDays)
			log.Printf("tier change: %s %d -> %d (%s)", prof.AccountID, cur, next, reason)
			if _, err := e.db.AddEvent(prof.AccountID, "demotion", reason); err != nil {
				log.Printf("decay: demotion event %s: %v", prof.AccountID, err)
			}
			res.Demoted = append(res.Demoted, prof.AccountID)

		case th.FlagDays > 0 && days >= th.FlagDays && !prof.Cooling:
			flagged := now.UnixMilli()
			prof.Cooling = true
			prof.FlaggedAt = &flagged
			if err := e.db.UpsertProfile(prof); err != nil {
				log.Printf("decay: flag %s: %v", prof.AccountID, err)
				mu.Unlock()
				continue
			}
			log.Printf("decay: %s cooling (inactive %d days >= flag threshold %d, tier %d)",
				prof.AccountID, days, th.FlagDays, cur)
			res.Flagged = append(res.Flagged, prof.AccountID)
		}

		mu.Unlock()
	}

	log.Printf("decay sweep: %d cooling, %d demoted", len(res.Flagged), len(res.Demoted))
	return res, nil
}
