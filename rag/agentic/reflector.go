package agentic

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sweetpotato0/ewa-agent/agent"
	"github.com/sweetpotato0/ewa-agent/prompt"
)

type reflector struct {
	llm agent.LLMClient
	cfg *Config
}

func newReflector(llm agent.LLMClient, cfg *Config) *reflector {
	return &reflector{llm: llm, cfg: cfg}
}

// Reflection is a parsed reflection reply plus what the trace needs from it.
type Reflection struct {
	Verdict ReflectionVerdict
	// Output is the reply as parsed JSON, or the fallback verdict.
	Output json.RawMessage
	// RetryParameters is the retry_with object exactly as the oracle sent it.
	RetryParameters json.RawMessage
	Raw             string
	Fallback        bool
}

// Reflect asks the oracle whether answer is acceptable.
func (r *reflector) Reflect(ctx context.Context, question, answer, contextText string) (Reflection, error) {
	text, err := r.cfg.prompts.Render(prompt.Reflection, map[string]any{
		"Question": question,
		"Answer":   answer,
		"Context":  contextText,
	})
	if err != nil {
		return Reflection{}, fmt.Errorf("render reflection prompt: %w", err)
	}
	raw, err := agent.Complete(agent.WithStage(ctx, StageReflection), r.llm, text)
	if err != nil {
		return Reflection{}, fmt.Errorf("reflection stage: %w", err)
	}
	return ParseReflection(raw, r.cfg.ReflectionFallback), nil
}

// ParseReflection parses a reflection reply. A reply that is not a JSON
// object, or whose approved field is missing or not a boolean, yields the
// fallback verdict. retry_with is only read for rejections.
func ParseReflection(raw string, fallbackApproved bool) Reflection {
	fallback := func() Reflection {
		out, _ := json.Marshal(map[string]bool{"approved": fallbackApproved})
		return Reflection{
			Verdict:  ReflectionVerdict{Approved: fallbackApproved},
			Output:   out,
			Raw:      raw,
			Fallback: true,
		}
	}

	clean := sanitizeJSON(raw)
	top, err := decodeJSON[map[string]json.RawMessage](clean)
	if err != nil || *top == nil {
		return fallback()
	}
	var approved bool
	if err := json.Unmarshal((*top)["approved"], &approved); err != nil {
		return fallback()
	}

	ref := Reflection{
		Verdict: ReflectionVerdict{Approved: approved},
		Output:  json.RawMessage(clean),
		Raw:     raw,
	}
	if approved {
		return ref
	}
	if retry, ok := (*top)["retry_with"]; ok && !isNull(retry) {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(retry, &fields); err == nil && fields != nil {
			patch := patchFromRaw(fields)
			ref.Verdict.RetryWith = &patch
			ref.RetryParameters = retry
		}
	}
	return ref
}
