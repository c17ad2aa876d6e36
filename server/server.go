// Package server exposes the agent over HTTP.
package server

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sweetpotato0/ewa-agent/pkg/logging"
	"github.com/sweetpotato0/ewa-agent/pkg/metrics"
	"github.com/sweetpotato0/ewa-agent/rag/agentic"
	"github.com/sweetpotato0/ewa-agent/rag/ingest"
	"github.com/sweetpotato0/ewa-agent/runner"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// Ingester indexes an uploaded report. *ingest.Pipeline satisfies it.
type Ingester interface {
	Run(ctx context.Context, path string) (*ingest.Result, error)
}

// Index reports how many chunks are searchable. *retriever.Retriever satisfies it.
type Index interface {
	Count(ctx context.Context) (int, error)
}

// History lists the most recent run traces, newest first.
type History func(ctx context.Context, limit int) ([]agentic.Trace, error)

// Config controls the HTTP front end.
type Config struct {
	Addr           string
	ServiceName    string
	MaxUploadBytes int64
	UploadDir      string
	ShutdownGrace  time.Duration

	history History
	mounts  map[string]http.Handler
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// Option customizes the server.
type Option func(*Config)

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(c *Config) {
		if addr != "" {
			c.Addr = addr
		}
	}
}

// WithMaxUploadBytes caps report uploads.
func WithMaxUploadBytes(n int64) Option {
	return func(c *Config) {
		if n > 0 {
			c.MaxUploadBytes = n
		}
	}
}

// WithUploadDir sets where uploads are staged before ingestion.
func WithUploadDir(dir string) Option {
	return func(c *Config) {
		c.UploadDir = dir
	}
}

// WithHistory enables GET /v1/runs.
func WithHistory(h History) Option {
	return func(c *Config) {
		c.history = h
	}
}

// WithHandler mounts h under path for every method, e.g. an MCP endpoint.
func WithHandler(path string, h http.Handler) Option {
	return func(c *Config) {
		if c.mounts == nil {
			c.mounts = make(map[string]http.Handler)
		}
		c.mounts[path] = h
	}
}

// WithMetrics serves m on /metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Config) {
		c.metrics = m
	}
}

// WithLogger overrides the request logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) {
		if l != nil {
			c.logger = l
		}
	}
}

func defaultConfig() *Config {
	return &Config{
		Addr:           ":8080",
		ServiceName:    "ewa-agent",
		MaxUploadBytes: 50 << 20,
		ShutdownGrace:  10 * time.Second,
		logger:         logging.WithComponent("http"),
	}
}

// Server serves the question answering API.
type Server struct {
	cfg      *Config
	agent    runner.Asker
	ingester Ingester
	index    Index
	router   *gin.Engine
}

// New builds the router. ingester and index may be nil, which disables
// uploads and the empty-index check.
func New(ag runner.Asker, ingester Ingester, index Index, opts ...Option) *Server {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	s := &Server{cfg: cfg, agent: ag, ingester: ingester, index: index}
	s.router = s.routes()
	return s
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(s.cfg.ServiceName))
	r.Use(s.requestLogger())

	r.GET("/healthz", s.health)
	r.GET("/metrics", gin.WrapH(s.cfg.metrics.Handler()))

	v1 := r.Group("/v1")
	v1.POST("/ask", s.ask)
	v1.POST("/reports", s.uploadReport)
	v1.GET("/runs", s.runs)

	for path, h := range s.cfg.mounts {
		r.Any(path, gin.WrapH(h))
	}
	return r
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves until ctx ends, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.cfg.logger.Info("http server listening", "addr", s.cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if stderrors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		level := slog.LevelInfo
		if c.Writer.Status() >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		s.cfg.logger.Log(c.Request.Context(), level, "http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start))
	}
}
