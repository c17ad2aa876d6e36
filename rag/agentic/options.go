package agentic

import (
	"strings"
	"time"

	"github.com/sweetpotato0/ewa-agent/pkg/metrics"
	"github.com/sweetpotato0/ewa-agent/prompt"
)

// Defaults of the agent loop.
const (
	DefaultToolName         = "get_findings"
	DefaultMaxRetries       = 2
	DefaultK                = 8
	DefaultFetchK           = 12
	DefaultFallbackK        = 5
	DefaultContextCharLimit = 800
	DefaultPreviewChars     = 300
)

// TokenCounter counts tokens of a prompt context. Optional.
type TokenCounter interface {
	CountTokens(text string) int
}

// Config controls behaviour of the agent loop and its stages.
type Config struct {
	Name       string // Logical name for tracing/logging
	ToolName   string // The one tool the decision stage may pick
	MaxRetries int    // Retries allowed after the first iteration
	DefaultK   int    // k used by the tool when none was requested
	FetchK     int    // Fixed candidate pool for diversity reranking, never scaled by k
	FallbackK  int    // k of the fallback decision

	ContextCharLimit int // Per-chunk content limit inside the generation context
	PreviewChars     int // Answer preview length recorded in the trace

	// ReflectionFallback is the verdict used when the reflection reply cannot
	// be parsed. true keeps answers flowing; false forces a retry.
	ReflectionFallback bool

	prompts      *prompt.Manager
	tokens       TokenCounter
	metrics      *metrics.Metrics
	sink         TraceSink
	now          func() time.Time
	strictAction bool
}

// Option customises the agent configuration.
type Option func(*Config)

// WithName sets the logical name used in logs and spans.
func WithName(name string) Option {
	return func(cfg *Config) {
		if strings.TrimSpace(name) != "" {
			cfg.Name = name
		}
	}
}

// WithMaxRetries caps how many retries follow a rejected answer. 0 disables retries.
func WithMaxRetries(n int) Option {
	return func(cfg *Config) {
		if n >= 0 {
			cfg.MaxRetries = n
		}
	}
}

// WithDefaultK overrides the k the tool uses when the decision did not set one.
func WithDefaultK(k int) Option {
	return func(cfg *Config) {
		if k > 0 {
			cfg.DefaultK = k
		}
	}
}

// WithFetchK overrides the candidate pool fetched before reranking. The pool
// (default 12) is passed to the store as is, whatever k the decision asks for.
func WithFetchK(k int) Option {
	return func(cfg *Config) {
		if k > 0 {
			cfg.FetchK = k
		}
	}
}

// WithFallbackK overrides k of the fallback decision.
func WithFallbackK(k int) Option {
	return func(cfg *Config) {
		if k > 0 {
			cfg.FallbackK = k
		}
	}
}

// WithContextCharLimit caps each chunk inside the generation context.
func WithContextCharLimit(n int) Option {
	return func(cfg *Config) {
		if n > 0 {
			cfg.ContextCharLimit = n
		}
	}
}

// WithPreviewChars sets the answer preview length stored in traces.
func WithPreviewChars(n int) Option {
	return func(cfg *Config) {
		if n > 0 {
			cfg.PreviewChars = n
		}
	}
}

// WithReflectionFallback sets the verdict used for unparseable reflections.
func WithReflectionFallback(approved bool) Option {
	return func(cfg *Config) {
		cfg.ReflectionFallback = approved
	}
}

// WithPrompts replaces the stage templates. The manager must hold the
// decision, generation, reflection and evaluation templates.
func WithPrompts(m *prompt.Manager) Option {
	return func(cfg *Config) {
		if m != nil {
			cfg.prompts = m
		}
	}
}

// WithTokenCounter records context token counts in traces.
func WithTokenCounter(tc TokenCounter) Option {
	return func(cfg *Config) {
		cfg.tokens = tc
	}
}

// WithMetrics records run metrics on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(cfg *Config) {
		cfg.metrics = m
	}
}

// WithTraceSink appends every completed trace to sink.
func WithTraceSink(sink TraceSink) Option {
	return func(cfg *Config) {
		cfg.sink = sink
	}
}

// WithClock overrides the time source. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(cfg *Config) {
		if now != nil {
			cfg.now = now
		}
	}
}

// WithStrictAction rejects decisions naming a tool other than the configured
// one by falling back to the default decision.
func WithStrictAction(strict bool) Option {
	return func(cfg *Config) {
		cfg.strictAction = strict
	}
}

func defaultConfig() *Config {
	return &Config{
		Name:               "ewa-agent",
		ToolName:           DefaultToolName,
		MaxRetries:         DefaultMaxRetries,
		DefaultK:           DefaultK,
		FetchK:             DefaultFetchK,
		FallbackK:          DefaultFallbackK,
		ContextCharLimit:   DefaultContextCharLimit,
		PreviewChars:       DefaultPreviewChars,
		ReflectionFallback: true,
		prompts:            prompt.Defaults(),
		now:                time.Now,
	}
}

func applyOptions(cfg *Config, opts []Option) *Config {
	if cfg == nil {
		cfg = defaultConfig()
	}
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}
	return cfg
}
