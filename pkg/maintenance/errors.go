package maintenance

import (
	"errors"
	"fmt"
)

// ErrValidation is wrapped by every ValidationError.
var ErrValidation = errors.New("validation failed")

// ValidationError reports a rejected configuration value. The configuration
// is left unchanged when it is returned.
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %v: %s", e.Field, e.Value, e.Message)
}

// Unwrap returns ErrValidation.
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// StorageFault is returned when a job cannot read the data it operates on.
// It aborts the current run only.
type StorageFault struct {
	Job       string
	Operation string
	Cause     error
}

// Error implements the error interface.
func (e *StorageFault) Error() string {
	return fmt.Sprintf("%s: storage fault during %s: %v", e.Job, e.Operation, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *StorageFault) Unwrap() error {
	return e.Cause
}
