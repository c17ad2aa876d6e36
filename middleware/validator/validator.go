package validator

import (
	"fmt"
	"strings"

	"github.com/sweetpotato0/ewa-agent/agent"
	"github.com/sweetpotato0/ewa-agent/errors"
	"github.com/sweetpotato0/ewa-agent/middleware"
)

// ValidatorFunc validates an oracle request
type ValidatorFunc func(*agent.GenerateRequest) error

// InputValidator rejects requests before they reach the oracle.
type InputValidator struct {
	validator ValidatorFunc
}

// NewInputValidator creates an input validation middleware
func NewInputValidator(validator ValidatorFunc) *InputValidator {
	return &InputValidator{validator: validator}
}

// NewPromptValidator rejects requests without any non-blank message.
func NewPromptValidator() *InputValidator {
	return NewInputValidator(func(req *agent.GenerateRequest) error {
		if req == nil {
			return fmt.Errorf("%w: nil oracle request", errors.ErrInvalidInput)
		}
		for _, msg := range req.Messages {
			if strings.TrimSpace(msg.Text()) != "" {
				return nil
			}
		}
		return fmt.Errorf("%w: empty prompt", errors.ErrInvalidInput)
	})
}

// Name returns the middleware name
func (m *InputValidator) Name() string {
	return "InputValidator"
}

// Execute validates the request
func (m *InputValidator) Execute(ctx *middleware.Context, next middleware.Handler) error {
	if m.validator != nil {
		if err := m.validator(ctx.Request); err != nil {
			return err
		}
	}
	return next(ctx)
}
