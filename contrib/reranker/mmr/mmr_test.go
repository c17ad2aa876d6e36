package mmr

import (
	"context"
	"testing"

	"github.com/sweetpotato0/ewa-agent/rag/document"
	"github.com/sweetpotato0/ewa-agent/rag/reranker"
)

func TestMMRRanksWithoutDuplicates(t *testing.T) {
	r := New()
	query := []float32{1, 0}
	candidates := []reranker.Candidate{
		{Chunk: document.Chunk{ID: "c1"}, Vector: []float32{1, 0}, Score: 0.9},
		{Chunk: document.Chunk{ID: "c2"}, Vector: []float32{0.9, 0.1}, Score: 0.85},
		{Chunk: document.Chunk{ID: "c3"}, Vector: []float32{0, 1}, Score: 0.4},
	}
	results, err := r.Rank(context.Background(), query, candidates, 0)
	if err != nil {
		t.Fatalf("rank error: %v", err)
	}
	if len(results) != len(candidates) {
		t.Fatalf("expected %d results, got %d", len(candidates), len(results))
	}
	if results[0].Chunk.ID != "c1" {
		t.Fatalf("expected most relevant chunk first, got %s", results[0].Chunk.ID)
	}
}

func TestMMRPrefersDiverseSecondPick(t *testing.T) {
	r := New()
	query := []float32{1, 0.2}
	candidates := []reranker.Candidate{
		{Chunk: document.Chunk{ID: "a"}, Vector: []float32{1, 0}},
		{Chunk: document.Chunk{ID: "a-copy"}, Vector: []float32{1, 0}},
		{Chunk: document.Chunk{ID: "b"}, Vector: []float32{0.5, 1}},
	}
	results, err := r.Rank(context.Background(), query, candidates, 2)
	if err != nil {
		t.Fatalf("rank error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Chunk.ID != "a" || results[1].Chunk.ID != "b" {
		t.Fatalf("expected [a b], got [%s %s]", results[0].Chunk.ID, results[1].Chunk.ID)
	}
}

func TestMMREmpty(t *testing.T) {
	results, err := New().Rank(context.Background(), []float32{1}, nil, 3)
	if err != nil || results != nil {
		t.Fatalf("expected nil results, got %v %v", results, err)
	}
}
