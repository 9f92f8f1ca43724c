package llm

import (
	"fmt"
	"log/slog"
	"os"
)

// NewFromEnv selects a provider from LLM_PROVIDER (anthropic|openai, default
// anthropic) and wraps it with transient-retry handling.
func NewFromEnv(log *slog.Logger) (Generator, error) {
	var inner Generator
	switch provider := os.Getenv("LLM_PROVIDER"); provider {
	case "", "anthropic":
		model := os.Getenv("ANTHROPIC_MODEL")
		if model == "" {
			model = "claude-sonnet-4-20250514"
		}
		inner = NewAnthropicGenerator(model, 8192)
	case "openai":
		gen, err := NewOpenAIGenerator(os.Getenv("OPENAI_API_KEY"), os.Getenv("OPENAI_MODEL"))
		if err != nil {
			return nil, err
		}
		inner = gen
	default:
		return nil, fmt.Errorf("unknown LLM_PROVIDER %q", provider)
	}

	return &RetryingGenerator{Inner: inner, MaxRetries: 3, Log: log}, nil
}
