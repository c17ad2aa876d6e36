package agentic

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sweetpotato0/ewa-agent/agent"
	"github.com/sweetpotato0/ewa-agent/prompt"
)

type decider struct {
	llm agent.LLMClient
	cfg *Config
}

func newDecider(llm agent.LLMClient, cfg *Config) *decider {
	return &decider{llm: llm, cfg: cfg}
}

// Decide asks the oracle which tool to call. Only oracle transport errors are
// returned; unusable replies produce the fallback decision.
func (d *decider) Decide(ctx context.Context, question string) (Decision, error) {
	text, err := d.cfg.prompts.Render(prompt.Decision, map[string]any{
		"Tool":     d.cfg.ToolName,
		"Question": question,
	})
	if err != nil {
		return Decision{}, fmt.Errorf("render decision prompt: %w", err)
	}
	raw, err := agent.Complete(agent.WithStage(ctx, StageReasoning), d.llm, text)
	if err != nil {
		return Decision{}, fmt.Errorf("decision stage: %w", err)
	}
	decision := ParseDecision(raw, question, d.cfg.FallbackK)
	if d.cfg.strictAction && !decision.Fallback && decision.Action != d.cfg.ToolName {
		decision = FallbackDecision(question, d.cfg.FallbackK, d.cfg.ToolName)
		decision.Raw = raw
	}
	return decision, nil
}

// FallbackDecision is used whenever the decision reply cannot be used.
func FallbackDecision(question string, k int, tool string) Decision {
	if tool == "" {
		tool = DefaultToolName
	}
	return Decision{
		Action:     tool,
		Parameters: ToolParameters{Question: question, K: k},
		Fallback:   true,
	}
}

// ParseDecision parses a decision reply. The reply must carry a non-empty
// action and a parameters object with a question string; k is kept only when
// it is a positive integer and severity only when it is a string. Anything
// else yields FallbackDecision. ParseDecision never fails.
func ParseDecision(raw, question string, fallbackK int) Decision {
	fallback := func() Decision {
		d := FallbackDecision(question, fallbackK, DefaultToolName)
		d.Raw = raw
		return d
	}

	top, err := decodeJSON[map[string]json.RawMessage](raw)
	if err != nil || *top == nil {
		return fallback()
	}
	action, ok := stringValue((*top)["action"])
	if !ok || strings.TrimSpace(action) == "" {
		return fallback()
	}
	var params map[string]json.RawMessage
	if err := json.Unmarshal((*top)["parameters"], &params); err != nil || params == nil {
		return fallback()
	}
	q, ok := stringValue(params["question"])
	if !ok || strings.TrimSpace(q) == "" {
		return fallback()
	}

	decision := Decision{
		Action:     strings.TrimSpace(action),
		Parameters: ToolParameters{Question: q},
		Raw:        raw,
	}
	if k, ok := positiveInt(params["k"]); ok {
		decision.Parameters.K = k
	}
	if s, ok := stringValue(params["severity"]); ok {
		decision.Parameters.Severity = normalizeSeverity(s)
	}
	return decision
}
