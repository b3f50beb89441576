package config

import (
	"fmt"

	"github.com/caarlos0/env/v6"
)

// Config holds all rapport configuration, populated from the environment.
type Config struct {
	// HTTP server
	Bind string `env:"RAPPORT_BIND" envDefault:"127.0.0.1"`
	Port int    `env:"RAPPORT_PORT" envDefault:"38500"`

	// Database path; empty means store.DefaultDBPath()
	DBPath string `env:"RAPPORT_DB_PATH"`

	// SelfAccount is the agent's own handle. Interactions are profiled
	// against the other party; the agent itself never gets a profile.
	SelfAccount string `env:"RAPPORT_SELF_ACCOUNT" envDefault:"MaxAnvil"`

	// LLM settings for narrative generation
	LLMProvider         string `env:"RAPPORT_LLM_PROVIDER" envDefault:"ollama"` // "ollama" or "openai"
	LLMModel            string `env:"RAPPORT_LLM_MODEL" envDefault:"llama3:70b"`
	OllamaURL           string `env:"RAPPORT_OLLAMA_URL" envDefault:"http://localhost:11434"`
	OpenAIAPIKey        string `env:"OPENAI_API_KEY"`
	OpenAIBaseURL       string `env:"OPENAI_BASE_URL"`
	NarrativeTimeoutSec int    `env:"RAPPORT_NARRATIVE_TIMEOUT" envDefault:"90"`

	// Narrative refresh interval in hours for tier 2+ accounts
	RefreshIntervalHours int `env:"RAPPORT_REFRESH_HOURS" envDefault:"24"`
	// Max accounts enriched per scheduled pass
	EnrichBatchSize int `env:"RAPPORT_ENRICH_BATCH" envDefault:"30"`

	// Topics policy: "cumulative" (union over all history) or "window"
	// (only the most recent TopicsWindow interactions contribute).
	TopicsPolicy string `env:"RAPPORT_TOPICS_POLICY" envDefault:"cumulative"`
	TopicsWindow int    `env:"RAPPORT_TOPICS_WINDOW" envDefault:"50"`

	// Worker pool size for batch profile refresh
	RefreshWorkers int `env:"RAPPORT_REFRESH_WORKERS" envDefault:"4"`

	// Base URL for public profile links in the website export
	ProfileLinkBase string `env:"RAPPORT_PROFILE_LINK_BASE" envDefault:"https://moltx.io"`

	// Cron spec for the daily decay sweep (wall clock, not activity cycles)
	DecayCronSpec string `env:"RAPPORT_DECAY_CRON" envDefault:"0 6 * * *"`
	// Cron spec for the scheduled narrative refresh pass
	EnrichCronSpec string `env:"RAPPORT_ENRICH_CRON" envDefault:"30 6 * * *"`
}

// Load parses configuration from the environment.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// Default returns a Config with all defaults and nothing read from the
// environment. Used in tests.
func Default() *Config {
	return &Config{
		Bind:                 "127.0.0.1",
		Port:                 38500,
		SelfAccount:          "MaxAnvil",
		LLMProvider:          "ollama",
		LLMModel:             "llama3:70b",
		OllamaURL:            "http://localhost:11434",
		NarrativeTimeoutSec:  90,
		RefreshIntervalHours: 24,
		EnrichBatchSize:      30,
		TopicsPolicy:         "cumulative",
		TopicsWindow:         50,
		RefreshWorkers:       4,
		ProfileLinkBase:      "https://moltx.io",
		DecayCronSpec:        "0 6 * * *",
		EnrichCronSpec:       "30 6 * * *",
	}
}

// ListenAddr returns the bind:port address string.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Bind, c.Port)
}
