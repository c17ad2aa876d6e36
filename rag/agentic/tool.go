package agentic

import (
	"context"
	"fmt"
	"strings"

	"github.com/sweetpotato0/ewa-agent/rag/document"
)

// Store is the retrieval store the findings tool reads from. Search returns
// up to k diversified chunks picked from the fetchK nearest candidates.
type Store interface {
	Search(ctx context.Context, query string, k, fetchK int) ([]document.Chunk, error)
}

// StoreFunc adapts a function to the Store interface.
type StoreFunc func(ctx context.Context, query string, k, fetchK int) ([]document.Chunk, error)

// Search implements Store.
func (f StoreFunc) Search(ctx context.Context, query string, k, fetchK int) ([]document.Chunk, error) {
	return f(ctx, query, k, fetchK)
}

// FindingsTool retrieves report chunks for a question, optionally narrowed
// to one severity, with at most one chunk per (page, section).
type FindingsTool struct {
	store    Store
	defaultK int
	fetchK   int
}

// NewFindingsTool creates the tool. Non-positive defaults fall back to 8 and 12.
func NewFindingsTool(store Store, defaultK, fetchK int) *FindingsTool {
	if defaultK <= 0 {
		defaultK = DefaultK
	}
	if fetchK <= 0 {
		fetchK = DefaultFetchK
	}
	return &FindingsTool{store: store, defaultK: defaultK, fetchK: fetchK}
}

// Execute runs the tool. An empty question yields no chunks without touching
// the store. Store errors are returned unchanged in meaning.
func (t *FindingsTool) Execute(ctx context.Context, params ToolParameters) ([]document.Chunk, error) {
	if strings.TrimSpace(params.Question) == "" {
		return nil, nil
	}
	if t.store == nil {
		return nil, fmt.Errorf("findings tool: store is not configured")
	}
	k := params.K
	if k <= 0 {
		k = t.defaultK
	}
	chunks, err := t.store.Search(ctx, params.Question, k, t.fetchK)
	if err != nil {
		return nil, fmt.Errorf("findings tool: %w", err)
	}
	chunks = filterSeverity(chunks, params.Severity)
	return dedupe(chunks), nil
}

// filterSeverity keeps chunks of the requested severity. When none match the
// unfiltered input is returned.
func filterSeverity(chunks []document.Chunk, sev *document.Severity) []document.Chunk {
	if sev == nil || *sev == "" {
		return chunks
	}
	filtered := make([]document.Chunk, 0, len(chunks))
	for _, chunk := range chunks {
		if chunk.Severity == *sev {
			filtered = append(filtered, chunk)
		}
	}
	if len(filtered) == 0 {
		return chunks
	}
	return filtered
}

// dedupe keeps the first chunk of every (page, section) pair in order.
func dedupe(chunks []document.Chunk) []document.Chunk {
	if len(chunks) == 0 {
		return chunks
	}
	seen := make(map[document.Key]struct{}, len(chunks))
	out := make([]document.Chunk, 0, len(chunks))
	for _, chunk := range chunks {
		key := chunk.Key()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, chunk)
	}
	return out
}
