package llm

import (
	"context"
	"fmt"
)

type GenerationParams struct {
	Temperature *float32 `json:"temperature"`
	TopP        *float32 `json:"top_p"`
	MaxTokens   *int     `json:"max_tokens"`
	Stop        []string `json:"stop"`
}

// Client defines the generation surface the agents depend on. The system
// prompt carries the agent persona and assembled context; prompt carries the
// user message.
type Client interface {
	Generate(ctx context.Context, system, prompt string, params GenerationParams) (string, error)
}

// ProviderError wraps a backend failure with the provider name so callers can
// log which backend failed without parsing error text.
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("llm provider %s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Config selects and parameterizes a backend.
type Config struct {
	Provider string // "openai", "ollama", or "" to disable
	Model    string
	APIKey   string
	BaseURL  string
}

// New builds the configured backend. A nil Client with a nil error means no
// provider is configured; agents fall back to template responses.
func New(cfg Config) (Client, error) {
	switch cfg.Provider {
	case "openai":
		return NewOpenAIClient(cfg)
	case "ollama":
		return NewOllamaClient(cfg)
	case "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}
