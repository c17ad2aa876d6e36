// Package embedder wraps vector.Embedder for retrieval. Retries re-issue the
// same question, so query embeddings are memoized.
package embedder

import (
	"context"
	"fmt"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/sweetpotato0/ewa-agent/vector"
)

// DefaultCacheSize bounds the number of memoized query vectors.
const DefaultCacheSize = 256

// Cached memoizes single-text embeddings in an LRU. Batch calls used during
// indexing go straight to the base embedder.
type Cached struct {
	base  vector.Embedder
	cache *lru.Cache[string, []float32]
	hits  atomic.Int64
}

var _ vector.Embedder = (*Cached)(nil)

// NewCached wraps base. size <= 0 uses DefaultCacheSize.
func NewCached(base vector.Embedder, size int) *Cached {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[string, []float32](size)
	if err != nil {
		// lru.New only fails for non-positive sizes.
		panic(fmt.Sprintf("embedder: init cache: %v", err))
	}
	return &Cached{base: base, cache: cache}
}

// Embed returns the cached vector for text or computes it.
func (c *Cached) Embed(ctx context.Context, text string) ([]float32, error) {
	if vec, ok := c.cache.Get(text); ok {
		c.hits.Add(1)
		return append([]float32(nil), vec...), nil
	}
	vec, err := c.base.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.cache.Add(text, append([]float32(nil), vec...))
	return vec, nil
}

// EmbedBatch delegates to the base embedder.
func (c *Cached) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return c.base.EmbedBatch(ctx, texts)
}

// Dimension returns the base dimension.
func (c *Cached) Dimension() int {
	return c.base.Dimension()
}

// Hits returns how many Embed calls were served from the cache.
func (c *Cached) Hits() int {
	return int(c.hits.Load())
}
