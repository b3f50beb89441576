package cli

import (
	"fmt"

	"github.com/moltworks/rapport/internal/config"
	"github.com/moltworks/rapport/internal/engine"
	"github.com/moltworks/rapport/internal/llm"
	"github.com/spf13/cobra"
)

func runEnrich(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	client, err := llm.NewClient(cfg)
	if err != nil {
		return fmt.Errorf("enrich needs a configured LLM: %w", err)
	}

	db, err := openDB(cfg)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	eng := engine.New(db, client, cfg)
	defer eng.Stop()

	if enrichAccount != "" {
		if err := eng.Enrich(enrichAccount); err != nil {
			return err
		}
		fmt.Printf("enriched %s\n", enrichAccount)
		return nil
	}

	n, err := eng.EnrichDue()
	if err != nil {
		return err
	}
	fmt.Printf("enriched %d accounts\n", n)
	return nil
}
