package errors

import "errors"

// Sentinel errors for common error conditions
var (
	// ErrNotFound indicates that a requested resource was not found
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput indicates that input validation failed
	ErrInvalidInput = errors.New("invalid input")

	// ErrNoDocuments indicates that no report has been indexed yet
	ErrNoDocuments = errors.New("no report indexed")

	// ErrUnknownProvider indicates an unsupported oracle, embedder or storage backend
	ErrUnknownProvider = errors.New("unknown provider")

	// ErrUnsupportedFormat indicates a report file type that cannot be loaded
	ErrUnsupportedFormat = errors.New("unsupported report format")

	// ErrInternal indicates an internal server error
	ErrInternal = errors.New("internal error")
)
