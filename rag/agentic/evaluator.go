package agentic

import (
	"context"
	"fmt"

	"github.com/sweetpotato0/ewa-agent/agent"
	"github.com/sweetpotato0/ewa-agent/prompt"
)

type evaluator struct {
	llm agent.LLMClient
	cfg *Config
}

func newEvaluator(llm agent.LLMClient, cfg *Config) *evaluator {
	return &evaluator{llm: llm, cfg: cfg}
}

// Evaluate scores the final answer. A nil score means the reply was unusable.
func (e *evaluator) Evaluate(ctx context.Context, question, answer, contextText string) (*EvaluationScore, string, error) {
	text, err := e.cfg.prompts.Render(prompt.Evaluation, map[string]any{
		"Question": question,
		"Answer":   answer,
		"Context":  contextText,
	})
	if err != nil {
		return nil, "", fmt.Errorf("render evaluation prompt: %w", err)
	}
	raw, err := agent.Complete(agent.WithStage(ctx, StageEvaluation), e.llm, text)
	if err != nil {
		return nil, "", fmt.Errorf("evaluation stage: %w", err)
	}
	return ParseEvaluation(raw), raw, nil
}

// ParseEvaluation parses an evaluation reply. All four scores must be
// integers in 1..5; confidence is optional and must lie in 0..1.
func ParseEvaluation(raw string) *EvaluationScore {
	score, err := decodeJSON[EvaluationScore](raw)
	if err != nil {
		return nil
	}
	for _, v := range []int{score.Accuracy, score.Relevance, score.Completeness, score.Clarity} {
		if v < 1 || v > 5 {
			return nil
		}
	}
	if c := score.Confidence; c != nil && (*c < 0 || *c > 1) {
		return nil
	}
	return score
}
