package domain

import (
	"context"
	"errors"
	"fmt"
)

// Sentinel errors for query validation failures.
var (
	ErrEmptyQuery     = errors.New("empty query")
	ErrQueryTooShort  = errors.New("query too short")
	ErrQueryTooLong   = errors.New("query too long")
	ErrQueryInjection = errors.New("query contains suspicious content")
	ErrInvalidRecord  = errors.New("invalid intervention record")
)

// ValidationError wraps a sentinel with the offending field and value.
// Validation failures are never retried; they surface to the caller as-is.
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

// RetrievalError reports a failure of the embedding or nearest-neighbor
// backend. Retryable errors may be retried at the stage boundary; once the
// retry budget is exhausted the orchestrator downgrades to an empty result
// set instead of failing the query.
type RetrievalError struct {
	Op        string // "embed" or "search"
	Retryable bool
	Wrapped   error
}

func (e *RetrievalError) Error() string {
	return fmt.Sprintf("retrieval: %s: %v (retryable=%t)", e.Op, e.Wrapped, e.Retryable)
}

func (e *RetrievalError) Unwrap() error { return e.Wrapped }

// NewRetrievalError creates a RetrievalError.
func NewRetrievalError(op string, retryable bool, wrapped error) *RetrievalError {
	return &RetrievalError{Op: op, Retryable: retryable, Wrapped: wrapped}
}

// ProviderError reports a failed language-model call. It never fails a
// query: explanation building falls back to the deterministic template.
type ProviderError struct {
	Provider string
	Wrapped  error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s: %v", e.Provider, e.Wrapped)
}

func (e *ProviderError) Unwrap() error { return e.Wrapped }

// NewProviderError creates a ProviderError.
func NewProviderError(provider string, wrapped error) *ProviderError {
	return &ProviderError{Provider: provider, Wrapped: wrapped}
}

// RetryAdvisable reports whether the caller may usefully retry the query.
func RetryAdvisable(err error) bool {
	var re *RetrievalError
	if errors.As(err, &re) {
		return re.Retryable
	}
	return false
}

// Kind maps an error to the failure kind attached to degraded responses.
func Kind(err error) FailureKind {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return FailureValidation
	}
	var re *RetrievalError
	if errors.As(err, &re) {
		return FailureRetrieval
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return FailureProvider
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return FailureTimeout
	}
	return FailureEvaluation
}
