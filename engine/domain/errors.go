package domain

import (
	"errors"
	"fmt"
)

// Failure taxonomy for the answer pipeline. An empty retrieval result is a
// defined outcome, not a fault, so it has no sentinel here.
var (
	ErrRetrievalUnavailable  = errors.New("retrieval unavailable")
	ErrGenerationUnavailable = errors.New("generation unavailable")
	ErrPersistenceFailure    = errors.New("persistence failure")

	ErrEmptyQuestion    = errors.New("question is empty")
	ErrInvalidTopK      = errors.New("top_k must be at least 1")
	ErrInvalidThreshold = errors.New("score threshold out of range")
	ErrInvalidRole      = errors.New("invalid role")
	ErrEmptyCollection  = errors.New("collection name is empty")
	ErrInvalidRecord    = errors.New("invalid compound record")
)

// ValidationError wraps a sentinel with the offending field and value.
type ValidationError struct {
	Field   string
	Value   string
	Wrapped error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s (value=%q)", e.Wrapped, e.Field, e.Value)
}

func (e *ValidationError) Unwrap() error { return e.Wrapped }

// NewValidationError creates a ValidationError.
func NewValidationError(field, value string, wrapped error) *ValidationError {
	return &ValidationError{Field: field, Value: value, Wrapped: wrapped}
}
