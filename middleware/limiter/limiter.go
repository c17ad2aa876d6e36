package limiter

import (
	"github.com/sweetpotato0/ewa-agent/middleware"
)

// ConcurrencyLimiter caps how many oracle calls are in flight at once.
// Callers over the cap wait until a slot frees up or their context ends.
type ConcurrencyLimiter struct {
	slots chan struct{}
}

// NewConcurrencyLimiter creates a limiter allowing max concurrent calls.
// max <= 0 means unlimited.
func NewConcurrencyLimiter(max int) *ConcurrencyLimiter {
	if max <= 0 {
		return &ConcurrencyLimiter{}
	}
	return &ConcurrencyLimiter{slots: make(chan struct{}, max)}
}

// Name returns the middleware name
func (m *ConcurrencyLimiter) Name() string {
	return "ConcurrencyLimiter"
}

// Execute acquires a slot before passing control on.
func (m *ConcurrencyLimiter) Execute(ctx *middleware.Context, next middleware.Handler) error {
	if m.slots == nil {
		return next(ctx)
	}
	select {
	case m.slots <- struct{}{}:
	case <-ctx.Context().Done():
		return ctx.Context().Err()
	}
	defer func() { <-m.slots }()
	return next(ctx)
}

// InFlight returns the number of calls currently holding a slot.
func (m *ConcurrencyLimiter) InFlight() int {
	return len(m.slots)
}
