package engine

import (
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// StartSchedulers runs the decay sweep and the narrative refresh pass on
// their configured cron cadences. Both are keyed on wall-clock time, not
// on interaction volume or any shared cycle counter. The decay sweep also
// runs once immediately so a long-stopped process catches up on startup.
func (e *Engine) StartSchedulers() (*cron.Cron, error) {
	if _, err := e.DecaySweep(); err != nil {
		log.Printf("startup decay sweep: %v", err)
	}

	c := cron.New(cron.WithLocation(time.UTC))

	if _, err := c.AddFunc(e.cfg.DecayCronSpec, func() {
		if _, err := e.DecaySweep(); err != nil {
			log.Printf("decay sweep: %v", err)
		}
	}); err != nil {
		return nil, fmt.Errorf("schedule decay sweep: %w", err)
	}

	if _, err := c.AddFunc(e.cfg.EnrichCronSpec, func() {
		n, err := e.EnrichDue()
		if err != nil {
			log.Printf("narrative refresh: %v", err)
			return
		}
		if n > 0 {
			log.Printf("narrative refresh: enriched %d accounts", n)
		}
	}); err != nil {
		return nil, fmt.Errorf("schedule narrative refresh: %w", err)
	}

	c.Start()
	log.Printf("schedulers started: decay %q, narrative %q", e.cfg.DecayCronSpec, e.cfg.EnrichCronSpec)
	return c, nil
}
