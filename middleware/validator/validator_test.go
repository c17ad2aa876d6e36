package validator

import (
	"context"
	stdErrors "errors"
	"testing"

	"github.com/sweetpotato0/ewa-agent/agent"
	"github.com/sweetpotato0/ewa-agent/errors"
	"github.com/sweetpotato0/ewa-agent/message"
	"github.com/sweetpotato0/ewa-agent/middleware"
)

func TestPromptValidator(t *testing.T) {
	v := NewPromptValidator()
	next := func(c *middleware.Context) error { return nil }

	t.Run("accepts non-blank prompt", func(t *testing.T) {
		req := &agent.GenerateRequest{Messages: []*message.Message{message.NewMessage(message.RoleUser, "question")}}
		if err := v.Execute(middleware.NewContext(context.Background(), req), next); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("rejects blank prompt", func(t *testing.T) {
		req := &agent.GenerateRequest{Messages: []*message.Message{message.NewMessage(message.RoleUser, "   ")}}
		err := v.Execute(middleware.NewContext(context.Background(), req), next)
		if !stdErrors.Is(err, errors.ErrInvalidInput) {
			t.Fatalf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("rejects nil request", func(t *testing.T) {
		err := v.Execute(middleware.NewContext(context.Background(), nil), next)
		if !stdErrors.Is(err, errors.ErrInvalidInput) {
			t.Fatalf("expected ErrInvalidInput, got %v", err)
		}
	})
}
