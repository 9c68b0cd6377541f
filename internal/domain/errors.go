package domain

import (
	"errors"
	"fmt"
)

// Error taxonomy. Callers compare with errors.Is.
var (
	ErrValidation        = errors.New("validation error")
	ErrAdapterTransport  = errors.New("adapter transport error")
	ErrAdapterTimeout    = errors.New("adapter timeout")
	ErrMapping           = errors.New("mapping error")
	ErrPartialFailure    = errors.New("partial source failure")
	ErrScheduleOverlap   = errors.New("schedule invocation overlaps a running one")
	ErrInvariant         = errors.New("internal invariant violated")
	ErrScheduleNotFound  = errors.New("schedule not found")
	ErrOperationNotFound = errors.New("operation not found")
)

// ValidationError describes a rejected request field.
type ValidationError struct {
	Field  string
	Reason string
}

// NewValidationError builds a ValidationError.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Unwrap lets errors.Is(err, ErrValidation) match.
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}
