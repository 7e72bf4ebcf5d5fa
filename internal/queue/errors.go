package queue

import "errors"

// Sentinel errors classifying every failure the engine can surface. Handlers
// translate them to HTTP status codes; everything else is a server fault.
var (
	// ErrBadInput marks malformed client input: an enqueue payload that is
	// not well-formed JSON, or a non-UUID message id.
	ErrBadInput = errors.New("bad input")

	// ErrValidation marks a queue definition outside the allowed range:
	// max_attempts or visibility_timeout_seconds below 1.
	ErrValidation = errors.New("validation failed")

	// ErrConflict marks a unique-constraint violation (duplicate queue name).
	ErrConflict = errors.New("conflict")

	// ErrNotFound marks an operation addressing a queue that does not exist.
	ErrNotFound = errors.New("not found")
)
