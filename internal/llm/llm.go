// Package llm wraps the chat-completion providers behind a single Generator.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoProvider means no provider is configured; callers run without a model.
	ErrNoProvider = errors.New("no llm provider configured")
	// ErrEmptyCompletion is returned when a provider answers with no text.
	ErrEmptyCompletion = errors.New("llm returned an empty completion")
)

// Generator produces a single completion for a system and user prompt.
type Generator interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
	Model() string
}

type Config struct {
	Provider    string
	APIKey      string
	Model       string
	BaseURL     string
	Region      string
	Temperature float32
	MaxTokens   int
}

// New builds the Generator named by cfg.Provider.
func New(ctx context.Context, cfg Config) (Generator, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", "openai":
		if cfg.APIKey == "" {
			return nil, ErrNoProvider
		}
		return NewOpenAI(cfg), nil
	case "gemini":
		if cfg.APIKey == "" {
			return nil, ErrNoProvider
		}
		return NewGemini(ctx, cfg)
	case "bedrock":
		return NewBedrock(ctx, cfg)
	case "none":
		return nil, ErrNoProvider
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}
