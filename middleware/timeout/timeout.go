package timeout

import (
	"context"
	"fmt"
	"time"

	"github.com/sweetpotato0/ewa-agent/middleware"
)

// Timeout bounds each oracle call. A zero duration disables it.
type Timeout struct {
	d time.Duration
}

// New creates a timeout middleware.
func New(d time.Duration) *Timeout {
	return &Timeout{d: d}
}

// Name returns the middleware name
func (m *Timeout) Name() string {
	return "Timeout"
}

// Execute attaches a deadline to the call context.
func (m *Timeout) Execute(ctx *middleware.Context, next middleware.Handler) error {
	if m.d <= 0 {
		return next(ctx)
	}
	parent := ctx.Context()
	callCtx, cancel := context.WithTimeout(parent, m.d)
	defer cancel()
	ctx.SetContext(callCtx)
	defer ctx.SetContext(parent)

	err := next(ctx)
	if err != nil && callCtx.Err() == context.DeadlineExceeded && parent.Err() == nil {
		return fmt.Errorf("oracle call exceeded %s: %w", m.d, err)
	}
	return err
}
