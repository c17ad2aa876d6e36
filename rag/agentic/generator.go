package agentic

import (
	"context"
	"fmt"
	"strings"

	"github.com/sweetpotato0/ewa-agent/agent"
	"github.com/sweetpotato0/ewa-agent/prompt"
	"github.com/sweetpotato0/ewa-agent/rag/document"
)

type generator struct {
	llm agent.LLMClient
	cfg *Config
}

func newGenerator(llm agent.LLMClient, cfg *Config) *generator {
	return &generator{llm: llm, cfg: cfg}
}

// Generate answers question from the retrieved chunks and returns the answer
// together with the context it was grounded on.
func (g *generator) Generate(ctx context.Context, question string, chunks []document.Chunk) (answer, contextText string, err error) {
	contextText = BuildContext(chunks, g.cfg.ContextCharLimit)
	text, err := g.cfg.prompts.Render(prompt.Generation, map[string]any{
		"Context":  contextText,
		"Question": question,
	})
	if err != nil {
		return "", contextText, fmt.Errorf("render generation prompt: %w", err)
	}
	answer, err = agent.Complete(agent.WithStage(ctx, StageGeneration), g.llm, text)
	if err != nil {
		return "", contextText, fmt.Errorf("generation stage: %w", err)
	}
	return answer, contextText, nil
}

// BuildContext renders chunks in order as "[Page P | Section | Severity]"
// headers followed by at most limit characters of content, separated by a
// blank line.
func BuildContext(chunks []document.Chunk, limit int) string {
	if len(chunks) == 0 {
		return ""
	}
	var b strings.Builder
	for i, chunk := range chunks {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "[Page %d | %s | %s]\n", chunk.Page, chunk.Section, chunk.Severity)
		b.WriteString(truncateRunes(chunk.Content, limit))
	}
	return b.String()
}

func truncateRunes(text string, limit int) string {
	if limit <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}
