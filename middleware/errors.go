package middleware

import "errors"

var (
	// ErrOracleUnavailable tags transport failures of the text oracle.
	ErrOracleUnavailable = errors.New("oracle unavailable")

	// ErrMiddlewareChainFailed indicates middleware chain execution failed
	ErrMiddlewareChainFailed = errors.New("middleware chain failed")
)
