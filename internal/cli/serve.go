package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/moltworks/rapport/internal/config"
	"github.com/moltworks/rapport/internal/engine"
	"github.com/moltworks/rapport/internal/llm"
	"github.com/moltworks/rapport/internal/server"
	"github.com/moltworks/rapport/internal/store"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server and background schedulers",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	db, err := openDB(cfg)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	// The deterministic pipeline runs regardless; a missing LLM only
	// disables narrative generation.
	llmClient, err := llm.NewClient(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: LLM not configured (%v), narratives disabled\n", err)
		llmClient = nil
	} else {
		fmt.Fprintf(os.Stderr, "  llm: %s (%s)\n", cfg.LLMProvider, cfg.LLMModel)
	}

	eng := engine.New(db, llmClient, cfg)
	defer eng.Stop()

	sched, err := eng.StartSchedulers()
	if err != nil {
		return fmt.Errorf("start schedulers: %w", err)
	}
	defer func() { <-sched.Stop().Done() }()

	srv := server.New(db, eng, VersionString())
	addr := cfg.ListenAddr()

	httpServer := &http.Server{
		Addr:    addr,
		Handler: srv,
	}

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		fmt.Fprintf(os.Stderr, "rapport serving on %s\n", addr)
		fmt.Fprintf(os.Stderr, "  db: %s\n", db.Path)
		fmt.Fprintf(os.Stderr, "  self: %s\n", cfg.SelfAccount)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Fprintf(os.Stderr, "server error: %v\n", err)
			os.Exit(1)
		}
	}()

	<-done
	fmt.Fprintln(os.Stderr, "\nshutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return httpServer.Shutdown(ctx)
}

// openDB resolves the database path from config and opens the store.
func openDB(cfg *config.Config) (*store.DB, error) {
	path := cfg.DBPath
	if path == "" {
		var err error
		path, err = store.DefaultDBPath()
		if err != nil {
			return nil, err
		}
	}
	return store.Open(path)
}
