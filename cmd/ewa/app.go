package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/sweetpotato0/ewa-agent/agent"
	"github.com/sweetpotato0/ewa-agent/config"
	embopenai "github.com/sweetpotato0/ewa-agent/contrib/embedder/openai"
	"github.com/sweetpotato0/ewa-agent/contrib/provider"
	"github.com/sweetpotato0/ewa-agent/contrib/tokenizer/tiktoken"
	"github.com/sweetpotato0/ewa-agent/contrib/vector/badger"
	"github.com/sweetpotato0/ewa-agent/contrib/vector/inmemory"
	"github.com/sweetpotato0/ewa-agent/contrib/vector/pg"
	"github.com/sweetpotato0/ewa-agent/errors"
	"github.com/sweetpotato0/ewa-agent/middleware"
	"github.com/sweetpotato0/ewa-agent/middleware/errorhandler"
	"github.com/sweetpotato0/ewa-agent/middleware/limiter"
	"github.com/sweetpotato0/ewa-agent/middleware/logger"
	"github.com/sweetpotato0/ewa-agent/middleware/timeout"
	"github.com/sweetpotato0/ewa-agent/middleware/tracing"
	"github.com/sweetpotato0/ewa-agent/middleware/validator"
	"github.com/sweetpotato0/ewa-agent/pkg/logging"
	"github.com/sweetpotato0/ewa-agent/pkg/metrics"
	"github.com/sweetpotato0/ewa-agent/rag/agentic"
	"github.com/sweetpotato0/ewa-agent/rag/embedder"
	"github.com/sweetpotato0/ewa-agent/rag/ingest"
	"github.com/sweetpotato0/ewa-agent/rag/reranker"
	"github.com/sweetpotato0/ewa-agent/rag/retriever"
	"github.com/sweetpotato0/ewa-agent/rag/tokenizer"
	"github.com/sweetpotato0/ewa-agent/tracelog"
	"github.com/sweetpotato0/ewa-agent/tracelog/store"
	"github.com/sweetpotato0/ewa-agent/vector"
)

// app holds the wired components for one command invocation.
type app struct {
	settings  *config.Settings
	metrics   *metrics.Metrics
	retriever *retriever.Retriever
	pipeline  *ingest.Pipeline
	agent     *agentic.Agent
	sink      tracelog.Sink
	logger    *slog.Logger

	closers []func(context.Context) error
}

// newApp opens the index. withAgent also connects the oracle and trace sink.
func newApp(ctx context.Context, s *config.Settings, withAgent bool) (a *app, err error) {
	a = &app{
		settings: s,
		metrics:  metrics.Default(),
		logger:   logging.WithComponent("app"),
	}
	defer func() {
		if err != nil {
			a.Close(context.Background())
		}
	}()

	vs, err := a.openStore(ctx)
	if err != nil {
		return nil, err
	}
	emb := embopenai.New(s.Embedding.APIKey, s.Embedding.BaseURL, s.Embedding.Model, s.Embedding.Dimension)
	var rer reranker.Reranker
	if s.Reranker == config.RerankCosine {
		rer = reranker.NewCosineReranker()
	}
	a.retriever = retriever.New(vs, embedder.NewCached(emb, 0), rer)
	a.pipeline = a.newPipeline(true)
	if !withAgent {
		return a, nil
	}

	llm, closeLLM, err := provider.New(ctx, s.LLM)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func(context.Context) error { return closeLLM() })

	sink, closeSink, err := store.Open(ctx, s.TraceBackend, s.TracePath)
	if err != nil {
		return nil, err
	}
	a.sink = sink
	a.closers = append(a.closers, closeSink)
	if s.TraceMirror != "" && s.TraceBackend != config.TraceFile {
		sink = tracelog.MultiSink{sink, tracelog.NewFileSink(s.TraceMirror)}
	}

	a.agent, err = agentic.New(agentic.Clients{Default: a.wrapOracle(llm)}, a.retriever,
		agentic.WithMaxRetries(s.MaxRetries),
		agentic.WithReflectionFallback(s.ReflectionApproves()),
		agentic.WithTokenCounter(tokenizer.Fallback(tiktoken.New(llm.Model()))),
		agentic.WithMetrics(a.metrics),
		agentic.WithTraceSink(sink),
	)
	if err != nil {
		return nil, err
	}
	a.logger.Info("agent ready",
		"provider", s.LLM.Provider,
		"model", llm.Model(),
		"vector_backend", s.VectorBackend,
		"trace_backend", s.TraceBackend)
	return a, nil
}

// newPipeline builds the report pipeline. replace clears the index first,
// so the index holds one report at a time.
func (a *app) newPipeline(replace bool) *ingest.Pipeline {
	opts := []ingest.Option{
		ingest.WithIdentity(a.settings.Identity),
		ingest.WithMetrics(a.metrics),
	}
	if replace {
		opts = append(opts, ingest.WithReplace(a.retriever.Clear))
	}
	return ingest.NewPipeline(a.retriever, opts...)
}

func (a *app) openStore(ctx context.Context) (vector.VectorStore, error) {
	s := a.settings
	switch s.VectorBackend {
	case config.VectorBadger:
		st, err := badger.Open(badger.Config{Path: s.IndexPath, Logger: logging.WithComponent("badger")})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func(context.Context) error { return st.Close() })
		return st, nil
	case config.VectorPG:
		p := s.Postgres
		st, err := pg.NewPGVectorStore(ctx, &pg.PGVectorConfig{
			Host:      p.Host,
			Port:      p.Port,
			User:      p.User,
			Password:  p.Password,
			DBName:    p.DBName,
			SSLMode:   p.SSLMode,
			Dimension: s.Embedding.Dimension,
			TableName: p.Table,
			IndexType: "HNSW",
		})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func(context.Context) error { return st.Close() })
		return st, nil
	case config.VectorMemory:
		return inmemory.NewInMemoryVectorStore(), nil
	default:
		return nil, fmt.Errorf("%w: vector backend %q", errors.ErrUnknownProvider, s.VectorBackend)
	}
}

// wrapOracle runs every oracle call through the middleware chain, outermost first.
func (a *app) wrapOracle(llm provider.Client) agent.LLMClient {
	return middleware.Wrap(llm,
		tracing.New(llm.Model()),
		logger.NewCallLogger(logging.WithComponent("oracle")),
		errorhandler.NewOracleErrorTagger(),
		validator.NewPromptValidator(),
		limiter.NewConcurrencyLimiter(a.settings.LLM.MaxConcurrency),
		timeout.New(a.settings.LLM.Timeout),
	)
}

// history reads recent traces from the configured sink.
func (a *app) history(ctx context.Context, limit int) ([]agentic.Trace, error) {
	raws, err := store.Recent(ctx, a.sink, limit)
	if err != nil {
		return nil, err
	}
	traces := make([]agentic.Trace, 0, len(raws))
	for _, raw := range raws {
		var t agentic.Trace
		if err := json.Unmarshal(raw, &t); err != nil {
			a.logger.Warn("skipping unreadable trace", "error", err)
			continue
		}
		traces = append(traces, t)
	}
	return traces, nil
}

// Close releases backends in reverse order of opening.
func (a *app) Close(ctx context.Context) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			a.logger.Warn("close failed", "error", err)
		}
	}
	a.closers = nil
}
