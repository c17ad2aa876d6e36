package ingest

import (
	"fmt"
	"unicode/utf8"

	"github.com/sweetpotato0/ewa-agent/rag/document"
	"github.com/tmc/langchaingo/textsplitter"
)

// SplitOversized breaks chunks longer than maxChars into overlapping pieces.
// Pieces keep the section, severity, page and identity of their source chunk.
func SplitOversized(chunks []document.Chunk, maxChars, overlap int) ([]document.Chunk, error) {
	if maxChars <= 0 {
		return chunks, nil
	}
	if overlap < 0 || overlap >= maxChars {
		overlap = 0
	}
	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(maxChars),
		textsplitter.WithChunkOverlap(overlap),
	)

	out := make([]document.Chunk, 0, len(chunks))
	for _, c := range chunks {
		if utf8.RuneCountInString(c.Content) <= maxChars {
			out = append(out, c)
			continue
		}
		parts, err := splitter.SplitText(c.Content)
		if err != nil {
			return nil, fmt.Errorf("split section %q: %w", c.Section, err)
		}
		for _, part := range parts {
			piece := c
			piece.Content = part
			out = append(out, piece)
		}
	}
	return out, nil
}

// Enrich stamps identity metadata and fresh IDs on every chunk.
func Enrich(chunks []document.Chunk, id document.Identity) []document.Chunk {
	for i := range chunks {
		chunks[i].Identity = id
		chunks[i].ID = document.NextChunkID(id.Document)
	}
	return chunks
}
