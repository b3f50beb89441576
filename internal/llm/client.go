package llm

import (
	"context"
	"fmt"

	"github.com/moltworks/rapport/internal/config"
)

// Client is the interface for LLM providers. Narrative generation treats
// the model as an opaque text-in/text-out function.
type Client interface {
	Complete(ctx context.Context, prompt string) (*Response, error)
}

// Response holds the result of an LLM completion.
type Response struct {
	Content    string
	Provider   string
	TokensUsed int
}

// NewClient creates an LLM client based on the config provider setting.
func NewClient(cfg *config.Config) (Client, error) {
	switch cfg.LLMProvider {
	case "ollama":
		url := cfg.OllamaURL
		if url == "" {
			url = "http://localhost:11434"
		}
		model := cfg.LLMModel
		if model == "" {
			model = "llama3:70b"
		}
		return NewOllama(url, model), nil
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("openai provider requires OPENAI_API_KEY")
		}
		model := cfg.LLMModel
		if model == "" {
			model = "gpt-4o-mini"
		}
		return NewOpenAI(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, model), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider: %q", cfg.LLMProvider)
	}
}
