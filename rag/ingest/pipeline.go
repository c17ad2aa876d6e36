// Package ingest turns an EarlyWatch Alert report file into indexed chunks.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sweetpotato0/ewa-agent/errors"
	"github.com/sweetpotato0/ewa-agent/pkg/logging"
	"github.com/sweetpotato0/ewa-agent/pkg/metrics"
	"github.com/sweetpotato0/ewa-agent/pkg/telemetry"
	"github.com/sweetpotato0/ewa-agent/rag/document"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// Indexer stores prepared chunks. *retriever.Retriever satisfies it.
type Indexer interface {
	Index(ctx context.Context, chunks ...document.Chunk) error
}

// Defaults for oversize chunk splitting.
const (
	DefaultMaxChunkChars = 4000
	DefaultChunkOverlap  = 200
)

// Config configures a Pipeline.
type Config struct {
	Identity         document.Identity
	PageFlushChars   int
	MaxChunkChars    int
	ChunkOverlap     int
	HTMLPageSelector string
	// Replace clears the index before new chunks are added.
	Replace bool

	clearer func(context.Context) error
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// Option customizes the pipeline.
type Option func(*Config)

// WithIdentity overrides the identity stamped on every chunk.
func WithIdentity(id document.Identity) Option {
	return func(c *Config) {
		if id.Document != "" {
			c.Identity.Document = id.Document
		}
		if id.System != "" {
			c.Identity.System = id.System
		}
		if id.Database != "" {
			c.Identity.Database = id.Database
		}
	}
}

// WithPageFlushChars sets the buffer size closing a chunk at a page end.
func WithPageFlushChars(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.PageFlushChars = n
		}
	}
}

// WithMaxChunkChars sets the split threshold; 0 disables splitting.
func WithMaxChunkChars(n, overlap int) Option {
	return func(c *Config) {
		if n >= 0 {
			c.MaxChunkChars = n
		}
		if overlap >= 0 {
			c.ChunkOverlap = overlap
		}
	}
}

// WithHTMLPageSelector splits HTML exports into pages on matching elements.
func WithHTMLPageSelector(sel string) Option {
	return func(c *Config) {
		c.HTMLPageSelector = sel
	}
}

// WithReplace clears the index through clear before indexing.
func WithReplace(clear func(context.Context) error) Option {
	return func(c *Config) {
		c.Replace = clear != nil
		c.clearer = clear
	}
}

// WithMetrics records indexed chunk counts.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Config) {
		c.metrics = m
	}
}

// WithLogger overrides the pipeline logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) {
		if l != nil {
			c.logger = l
		}
	}
}

func defaultConfig() *Config {
	return &Config{
		Identity:       document.DefaultIdentity(),
		PageFlushChars: DefaultPageFlushChars,
		MaxChunkChars:  DefaultMaxChunkChars,
		ChunkOverlap:   DefaultChunkOverlap,
		logger:         logging.WithComponent("ingest"),
	}
}

// Pipeline loads, splits and indexes one report.
type Pipeline struct {
	indexer Indexer
	cfg     *Config
}

// Result summarizes one ingestion.
type Result struct {
	Path     string        `json:"path"`
	Pages    int           `json:"pages"`
	Chunks   int           `json:"chunks"`
	Duration time.Duration `json:"duration"`
}

// NewPipeline creates a pipeline writing to indexer.
func NewPipeline(indexer Indexer, opts ...Option) *Pipeline {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return &Pipeline{indexer: indexer, cfg: cfg}
}

// Prepare loads path and returns enriched chunks without indexing them.
func (p *Pipeline) Prepare(path string) ([]Page, []document.Chunk, error) {
	pages, err := Load(path, p.cfg.HTMLPageSelector)
	if err != nil {
		return nil, nil, err
	}
	chunks, err := p.Chunk(pages)
	return pages, chunks, err
}

// Chunk turns loaded pages into enriched chunks.
func (p *Pipeline) Chunk(pages []Page) ([]document.Chunk, error) {
	chunks := ParseSections(pages, p.cfg.PageFlushChars)
	chunks, err := SplitOversized(chunks, p.cfg.MaxChunkChars, p.cfg.ChunkOverlap)
	if err != nil {
		return nil, err
	}
	return Enrich(chunks, p.cfg.Identity), nil
}

// Run prepares the report at path and indexes its chunks.
func (p *Pipeline) Run(ctx context.Context, path string) (res *Result, err error) {
	ctx, span := otel.Tracer("ewa-agent/ingest").Start(ctx, "ingest.run")
	defer func() { telemetry.End(span, err) }()
	start := time.Now()

	pages, chunks, err := p.Prepare(path)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: %s has no extractable text", errors.ErrNoDocuments, path)
	}
	if p.cfg.Replace {
		if err := p.cfg.clearer(ctx); err != nil {
			return nil, fmt.Errorf("clear index: %w", err)
		}
	}
	if err := p.indexer.Index(ctx, chunks...); err != nil {
		return nil, fmt.Errorf("index chunks: %w", err)
	}
	if p.cfg.metrics != nil {
		p.cfg.metrics.IngestedTotal.Add(float64(len(chunks)))
	}

	res = &Result{Path: path, Pages: len(pages), Chunks: len(chunks), Duration: time.Since(start)}
	span.SetAttributes(attribute.Int("ingest.pages", res.Pages), attribute.Int("ingest.chunks", res.Chunks))
	p.cfg.logger.Info("report indexed",
		"path", path,
		"pages", res.Pages,
		"chunks", res.Chunks,
		"duration", res.Duration)
	return res, nil
}
