package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/sweetpotato0/ewa-agent/pkg/env"
	"github.com/sweetpotato0/ewa-agent/rag/document"
)

// Oracle providers.
const (
	ProviderOllama    = "ollama"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
)

// Vector index backends.
const (
	VectorBadger = "badger"
	VectorPG     = "pg"
	VectorMemory = "memory"
)

// Trace log backends.
const (
	TraceFile   = "file"
	TraceRedis  = "redis"
	TraceMongo  = "mongo"
	TraceMemory = "memory"
)

// Retrieval rerankers.
const (
	RerankMMR    = "mmr"
	RerankCosine = "cosine"
)

// Reflection fallback policies.
const (
	FallbackApprove = "approve"
	FallbackReject  = "reject"
)

// LLMSettings configures the text oracle.
type LLMSettings struct {
	Provider       string
	Model          string
	BaseURL        string
	APIKey         string
	Timeout        time.Duration
	MaxConcurrency int
	MaxTokens      int64
	Temperature    float64
}

// EmbeddingSettings configures the query and chunk embedder.
type EmbeddingSettings struct {
	Model     string
	BaseURL   string
	APIKey    string
	Dimension int
}

// PostgresSettings configures the pgvector index.
type PostgresSettings struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	Table    string
}

// Settings is the process configuration.
type Settings struct {
	LLM       LLMSettings
	Embedding EmbeddingSettings

	VectorBackend string
	IndexPath     string
	Postgres      PostgresSettings
	Reranker      string

	TraceBackend string
	TracePath    string
	// TraceMirror, when set with a remote trace backend, also appends every
	// trace to this local JSONL file.
	TraceMirror string

	MaxRetries         int
	ReflectionFallback string
	Identity           document.Identity

	HTTPAddr     string
	OTLPEndpoint string
	TraceStdout  bool
}

// ReflectionApproves reports whether unparseable reflections approve the answer.
func (s *Settings) ReflectionApproves() bool {
	return s.ReflectionFallback != FallbackReject
}

// Load reads settings from the environment. Each dotenv file that exists is
// loaded first without overriding variables already set.
func Load(dotenv ...string) (*Settings, error) {
	for _, path := range dotenv {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
	}

	s := &Settings{
		LLM: LLMSettings{
			Provider: strings.ToLower(env.String("EWA_LLM_PROVIDER", ProviderOllama)),
			BaseURL:  env.String("EWA_LLM_BASE_URL", ""),
		},
		Embedding: EmbeddingSettings{
			Model:   env.String("EWA_EMBED_MODEL", "nomic-embed-text"),
			BaseURL: env.String("EWA_EMBED_BASE_URL", ""),
			APIKey:  env.String("OPENAI_API_KEY", ""),
		},
		VectorBackend: strings.ToLower(env.String("EWA_VECTOR_BACKEND", VectorBadger)),
		IndexPath:     env.String("EWA_INDEX_PATH", "data/index"),
		Reranker:      strings.ToLower(env.String("EWA_RERANKER", RerankMMR)),
		Postgres: PostgresSettings{
			Host:     env.String("POSTGRES_HOST", "localhost"),
			User:     env.String("POSTGRES_USER", "postgres"),
			Password: env.String("POSTGRES_PASSWORD", ""),
			DBName:   env.String("POSTGRES_DB", "ewa_agent"),
			SSLMode:  env.String("POSTGRES_SSLMODE", "disable"),
			Table:    env.String("POSTGRES_TABLE", "ewa_chunks"),
		},
		TraceBackend:       strings.ToLower(env.String("EWA_TRACE_BACKEND", TraceFile)),
		TracePath:          env.String("EWA_TRACE_LOG", "logs/agent_runs.jsonl"),
		TraceMirror:        env.String("EWA_TRACE_MIRROR", ""),
		ReflectionFallback: strings.ToLower(env.String("EWA_REFLECTION_FALLBACK", FallbackApprove)),
		Identity: document.Identity{
			Document: env.String("EWA_DOCUMENT", document.DefaultDocument),
			System:   env.String("EWA_SYSTEM", document.DefaultSystem),
			Database: env.String("EWA_DATABASE", document.DefaultDatabase),
		},
		HTTPAddr:     env.String("EWA_HTTP_ADDR", ":8080"),
		OTLPEndpoint: env.String("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
	}

	s.LLM.Model = env.String("EWA_LLM_MODEL", defaultModel(s.LLM.Provider))
	s.LLM.APIKey = apiKey(s.LLM.Provider)
	if s.Embedding.BaseURL == "" && s.LLM.Provider == ProviderOllama {
		s.Embedding.BaseURL = OllamaBaseURL
	}

	var err error
	if s.LLM.Timeout, err = env.Duration("EWA_LLM_TIMEOUT", 0); err != nil {
		return nil, err
	}
	if s.LLM.MaxConcurrency, err = env.Int("EWA_MAX_CONCURRENCY", 4); err != nil {
		return nil, err
	}
	maxTokens, err := env.Int("EWA_LLM_MAX_TOKENS", 1024)
	if err != nil {
		return nil, err
	}
	s.LLM.MaxTokens = int64(maxTokens)
	if s.LLM.Temperature, err = env.Float("EWA_LLM_TEMPERATURE", 0); err != nil {
		return nil, err
	}
	if s.Embedding.Dimension, err = env.Int("EWA_EMBED_DIMENSION", 768); err != nil {
		return nil, err
	}
	if s.Postgres.Port, err = env.Int("POSTGRES_PORT", 5432); err != nil {
		return nil, err
	}
	if s.MaxRetries, err = env.Int("EWA_MAX_RETRIES", 2); err != nil {
		return nil, err
	}
	if s.TraceStdout, err = env.Bool("EWA_TRACE_STDOUT", false); err != nil {
		return nil, err
	}
	return s, nil
}

// OllamaBaseURL is the OpenAI compatible endpoint of a local Ollama server.
const OllamaBaseURL = "http://localhost:11434/v1"

func defaultModel(provider string) string {
	switch provider {
	case ProviderOpenAI:
		return "gpt-4o-mini"
	case ProviderAnthropic:
		return "claude-3-5-haiku-latest"
	case ProviderGemini:
		return "gemini-1.5-flash"
	default:
		return "mistral"
	}
}

func apiKey(provider string) string {
	switch provider {
	case ProviderOpenAI:
		return env.String("OPENAI_API_KEY", "")
	case ProviderAnthropic:
		return env.String("ANTHROPIC_API_KEY", "")
	case ProviderGemini:
		return env.String("GEMINI_API_KEY", "")
	default:
		return ""
	}
}

// Validate checks the settings that matter for the selected backends.
func (s *Settings) Validate() error {
	var errs []error
	errs = append(errs, ValidateLLMConfig(s.LLM.Provider, s.LLM.APIKey, s.LLM.Model, s.LLM.Timeout))
	errs = append(errs, ValidateAgentConfig(s.MaxRetries, s.ReflectionFallback, s.LLM.MaxConcurrency))

	v := NewValidator()
	v.ValidateOneOf("vectorBackend", s.VectorBackend, VectorBadger, VectorPG, VectorMemory)
	v.ValidateOneOf("traceBackend", s.TraceBackend, TraceFile, TraceRedis, TraceMongo, TraceMemory)
	v.ValidateOneOf("reranker", s.Reranker, RerankMMR, RerankCosine)
	v.RequireNonEmpty("embedModel", s.Embedding.Model)
	if s.VectorBackend == VectorBadger {
		v.RequireNonEmpty("indexPath", s.IndexPath)
	}
	if s.TraceBackend == TraceFile {
		v.RequireNonEmpty("traceLog", s.TracePath)
	}
	errs = append(errs, v.Error())

	if s.VectorBackend == VectorPG {
		p := s.Postgres
		errs = append(errs, ValidatePGVectorConfig(p.Host, p.Port, p.User, p.DBName, p.SSLMode, s.Embedding.Dimension, p.Table))
	}
	return errors.Join(errs...)
}
