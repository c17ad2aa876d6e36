package retriever

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sweetpotato0/ewa-agent/contrib/reranker/mmr"
	"github.com/sweetpotato0/ewa-agent/pkg/logging"
	"github.com/sweetpotato0/ewa-agent/rag/document"
	"github.com/sweetpotato0/ewa-agent/rag/reranker"
	"github.com/sweetpotato0/ewa-agent/vector"
)

// Config controls retrieval behaviour.
type Config struct {
	// BatchSize bounds how many chunks are embedded per EmbedBatch call.
	BatchSize int
}

// Option customizes retriever config.
type Option func(*Config)

// WithBatchSize sets the indexing batch size.
func WithBatchSize(n int) Option {
	return func(cfg *Config) {
		if n > 0 {
			cfg.BatchSize = n
		}
	}
}

// Retriever runs similarity search with diversity reranking over an indexed report.
// It is read-only during queries and safe for concurrent use when the
// underlying store and embedder are.
type Retriever struct {
	store    vector.VectorStore
	embedder vector.Embedder
	reranker reranker.Reranker
	cfg      Config
	logger   *slog.Logger
}

// New creates a retriever. A nil reranker defaults to MMR.
func New(store vector.VectorStore, emb vector.Embedder, rer reranker.Reranker, opts ...Option) *Retriever {
	cfg := Config{BatchSize: 32}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if rer == nil {
		rer = mmr.New()
	}
	return &Retriever{
		store:    store,
		embedder: emb,
		reranker: rer,
		cfg:      cfg,
		logger:   logging.WithComponent("retriever"),
	}
}

// Index embeds chunks and writes them to the vector store.
func (r *Retriever) Index(ctx context.Context, chunks ...document.Chunk) error {
	if r.store == nil || r.embedder == nil {
		return fmt.Errorf("retriever not fully configured")
	}
	for start := 0; start < len(chunks); start += r.cfg.BatchSize {
		end := min(start+r.cfg.BatchSize, len(chunks))
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		for i, chunk := range batch {
			texts[i] = chunk.Content
		}
		vecs, err := r.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return fmt.Errorf("embed chunks %d-%d: %w", start, end, err)
		}
		if len(vecs) != len(batch) {
			return fmt.Errorf("embedder returned %d vectors for %d chunks", len(vecs), len(batch))
		}
		for i, chunk := range batch {
			if chunk.ID == "" {
				chunk.ID = document.NextChunkID(chunk.Document)
			}
			embedding := &vector.Embedding{
				ID:       chunk.ID,
				Vector:   vecs[i],
				Text:     chunk.Content,
				Metadata: chunk.Metadata(),
			}
			if err := r.store.AddEmbedding(ctx, embedding); err != nil {
				return fmt.Errorf("store chunk %s: %w", chunk.ID, err)
			}
		}
	}
	r.logger.Info("chunks indexed", "count", len(chunks))
	return nil
}

// Search embeds the query, pulls fetchK nearest neighbours and keeps k of them
// with diversity reranking. Results are in selection order.
func (r *Retriever) Search(ctx context.Context, query string, k, fetchK int) ([]document.Chunk, error) {
	if strings.TrimSpace(query) == "" || k <= 0 {
		return nil, nil
	}
	if fetchK < k {
		fetchK = k
	}
	queryVec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	hits, err := r.store.Search(ctx, queryVec, fetchK)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	candidates := make([]reranker.Candidate, 0, len(hits))
	for _, hit := range hits {
		candidates = append(candidates, reranker.Candidate{
			Chunk:  document.FromMetadata(hit.ID, hit.Text, hit.Metadata),
			Vector: hit.Vector,
		})
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	ranked, err := r.reranker.Rank(ctx, queryVec, candidates, k)
	if err != nil {
		return nil, fmt.Errorf("rerank: %w", err)
	}
	out := make([]document.Chunk, len(ranked))
	for i, res := range ranked {
		out[i] = res.Chunk
	}
	r.logger.Debug("search completed", "query", logging.Truncate(query, 80), "candidates", len(candidates), "returned", len(out))
	return out, nil
}

// Clear drops all indexed chunks.
func (r *Retriever) Clear(ctx context.Context) error {
	if r.store == nil {
		return nil
	}
	return r.store.Clear(ctx)
}

// Count returns number of chunks indexed.
func (r *Retriever) Count(ctx context.Context) (int, error) {
	if r.store == nil {
		return 0, nil
	}
	return r.store.Count(ctx)
}
