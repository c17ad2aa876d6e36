// Package provider builds the text oracle for a configured backend.
package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/sweetpotato0/ewa-agent/agent"
	"github.com/sweetpotato0/ewa-agent/config"
	"github.com/sweetpotato0/ewa-agent/contrib/provider/claude"
	"github.com/sweetpotato0/ewa-agent/contrib/provider/gemini"
	"github.com/sweetpotato0/ewa-agent/contrib/provider/openai"
	"github.com/sweetpotato0/ewa-agent/errors"
)

// Client is an oracle that may hold resources.
type Client interface {
	agent.LLMClient
	Model() string
}

// New returns the oracle for s.Provider. Every backend runs at the
// configured temperature, which defaults to 0.
func New(ctx context.Context, s config.LLMSettings) (Client, func() error, error) {
	noop := func() error { return nil }
	switch strings.ToLower(s.Provider) {
	case config.ProviderOllama:
		baseURL := s.BaseURL
		if baseURL == "" {
			baseURL = config.OllamaBaseURL
		}
		key := s.APIKey
		if key == "" {
			key = config.ProviderOllama
		}
		return openai.New(&openai.Config{APIKey: key, BaseURL: baseURL, Model: s.Model, MaxTokens: s.MaxTokens, Temperature: s.Temperature}), noop, nil
	case config.ProviderOpenAI:
		return openai.New(&openai.Config{APIKey: s.APIKey, BaseURL: s.BaseURL, Model: s.Model, MaxTokens: s.MaxTokens, Temperature: s.Temperature}), noop, nil
	case config.ProviderAnthropic:
		return claude.New(&claude.Config{APIKey: s.APIKey, BaseURL: s.BaseURL, Model: s.Model, MaxTokens: s.MaxTokens, Temperature: s.Temperature}), noop, nil
	case config.ProviderGemini:
		p, err := gemini.New(ctx, &gemini.Config{APIKey: s.APIKey, Model: s.Model, MaxTokens: int32(s.MaxTokens), Temperature: float32(s.Temperature)})
		if err != nil {
			return nil, nil, err
		}
		return p, p.Close, nil
	default:
		return nil, nil, fmt.Errorf("%w: %q", errors.ErrUnknownProvider, s.Provider)
	}
}
