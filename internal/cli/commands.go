package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/moltworks/rapport/internal/config"
	"github.com/moltworks/rapport/internal/engine"
	"github.com/moltworks/rapport/internal/store"
	"github.com/spf13/cobra"
)

// withEngine opens the store and builds an engine without an LLM client.
// CLI commands that need narratives (enrich) wire the client themselves.
func withEngine(fn func(*config.Config, *store.DB, *engine.Engine) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	db, err := openDB(cfg)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	eng := engine.New(db, nil, cfg)
	defer eng.Stop()

	return fn(cfg, db, eng)
}

// --- record command ---

var (
	recordKind    string
	recordContent string
	recordPostRef string
	recordTo      string
)

var recordCmd = &cobra.Command{
	Use:   "record [from-account]",
	Short: "Record an observed interaction",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(func(cfg *config.Config, db *store.DB, eng *engine.Engine) error {
			to := recordTo
			if to == "" {
				to = cfg.SelfAccount
			}
			res, err := eng.RecordInteraction(context.Background(), &store.Interaction{
				FromAccount: args[0],
				ToAccount:   to,
				Kind:        recordKind,
				Content:     recordContent,
				PostRef:     recordPostRef,
				ObservedAt:  time.Now().UnixMilli(),
			})
			if err != nil {
				return err
			}
			if !res.Inserted {
				fmt.Println("duplicate delivery, nothing recorded")
				return nil
			}
			fmt.Printf("recorded: %s tier %d", res.Account, res.NewTier)
			if res.Reconnected {
				fmt.Print(" (reconnection)")
			}
			fmt.Println()
			return nil
		})
	},
}

// --- context command ---

var contextCmd = &cobra.Command{
	Use:   "context [account]",
	Short: "Show the reply-generation context block for an account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(func(cfg *config.Config, db *store.DB, eng *engine.Engine) error {
			fmt.Println(eng.Context(args[0]))
			return nil
		})
	},
}

// --- export command ---

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Print the tier-grouped website export as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(func(cfg *config.Config, db *store.DB, eng *engine.Engine) error {
			export, err := eng.Export()
			if err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(export)
		})
	},
}

// --- sweep command ---

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run the inactivity decay sweep once",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(func(cfg *config.Config, db *store.DB, eng *engine.Engine) error {
			res, err := eng.DecaySweep()
			if err != nil {
				return err
			}
			fmt.Printf("flagged %d, demoted %d\n", len(res.Flagged), len(res.Demoted))
			return nil
		})
	},
}

// --- enrich command ---

var enrichAccount string

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Run a narrative enrichment pass",
	Long:  "Regenerates backstories for accounts due a refresh, or for one account with --account.",
	RunE:  runEnrich,
}

// --- profile command ---

var profileCmd = &cobra.Command{
	Use:   "profile [account]",
	Short: "Show the stored profile for an account as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(func(cfg *config.Config, db *store.DB, eng *engine.Engine) error {
			prof, err := db.GetProfile(args[0])
			if err != nil {
				return err
			}
			if prof == nil {
				return fmt.Errorf("no profile for %s", args[0])
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(prof)
		})
	},
}

// --- rebuild command ---

var rebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Rebuild all profiles by replaying the interaction log",
	Long: "Clears every derived profile field and replays the full interaction\n" +
		"history. Recovery path: the interaction log is the sole source of truth.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(func(cfg *config.Config, db *store.DB, eng *engine.Engine) error {
			n, err := eng.Rebuild()
			if err != nil {
				return err
			}
			fmt.Printf("rebuilt %d profiles\n", n)
			return nil
		})
	},
}

func init() {
	recordCmd.Flags().StringVarP(&recordKind, "kind", "k", "mention", "Interaction kind (mention, reply, like, follow, quote)")
	recordCmd.Flags().StringVarP(&recordContent, "content", "c", "", "Message content")
	recordCmd.Flags().StringVar(&recordPostRef, "post", "", "Post reference id")
	recordCmd.Flags().StringVar(&recordTo, "to", "", "Target account (defaults to the agent itself)")

	enrichCmd.Flags().StringVar(&enrichAccount, "account", "", "Enrich a single account instead of the due batch")
}
