package errorhandler

import (
	"context"
	"errors"
	"fmt"

	"github.com/sweetpotato0/ewa-agent/middleware"
)

// ErrorHandlerFunc handles errors
type ErrorHandlerFunc func(error) error

// ErrorHandler handles errors in the middleware chain
type ErrorHandler struct {
	handler ErrorHandlerFunc
}

// NewErrorHandler creates an error handling middleware
func NewErrorHandler(handler ErrorHandlerFunc) *ErrorHandler {
	return &ErrorHandler{handler: handler}
}

// NewOracleErrorTagger marks every non-cancellation failure with
// middleware.ErrOracleUnavailable while keeping the original error in the chain.
func NewOracleErrorTagger() *ErrorHandler {
	return NewErrorHandler(func(err error) error {
		if errors.Is(err, context.Canceled) || errors.Is(err, middleware.ErrOracleUnavailable) {
			return err
		}
		return fmt.Errorf("%w: %w", middleware.ErrOracleUnavailable, err)
	})
}

// Name returns the middleware name
func (m *ErrorHandler) Name() string {
	return "ErrorHandler"
}

// Execute handles errors from downstream middlewares
func (m *ErrorHandler) Execute(ctx *middleware.Context, next middleware.Handler) error {
	err := next(ctx)
	if err != nil && m.handler != nil {
		return m.handler(err)
	}
	return err
}
