package agent

import (
	"context"
	"fmt"

	"github.com/sweetpotato0/ewa-agent/message"
)

// LLMClient is the text oracle every stage of the agent loop talks to.
// Implementations must be safe for concurrent use and run deterministically
// (temperature 0) so repeated runs over the same index are comparable.
type LLMClient interface {
	Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error)
}

// LLMClientFunc adapts a function to the LLMClient interface.
type LLMClientFunc func(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error)

// Generate implements LLMClient.
func (f LLMClientFunc) Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error) {
	return f(ctx, req)
}

// Complete sends a single user prompt and returns the raw reply text.
func Complete(ctx context.Context, llm LLMClient, prompt string) (string, error) {
	if llm == nil {
		return "", fmt.Errorf("llm client is not configured")
	}
	resp, err := llm.Generate(ctx, &GenerateRequest{
		Messages: []*message.Message{message.NewMessage(message.RoleUser, prompt)},
	})
	if err != nil {
		return "", err
	}
	if resp == nil || resp.Message == nil {
		return "", fmt.Errorf("llm returned empty response")
	}
	return resp.Message.Text(), nil
}

type stageKey struct{}

// WithStage labels ctx with the loop stage issuing oracle calls.
func WithStage(ctx context.Context, stage string) context.Context {
	return context.WithValue(ctx, stageKey{}, stage)
}

// StageFromContext returns the stage label set by WithStage.
func StageFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	stage, _ := ctx.Value(stageKey{}).(string)
	return stage
}
