package domain

import (
	"errors"
	"fmt"
)

// Common domain errors used across the application.
var (
	// ErrValidation is returned when input or a domain entity fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidID is returned when an ID is malformed or invalid.
	ErrInvalidID = errors.New("invalid ID")

	// ErrCalibrationDefault indicates an item lacked usable IRT parameters and
	// defaults were substituted. It is recoverable and only ever logged.
	ErrCalibrationDefault = errors.New("item calibration missing, defaults applied")

	// ErrEstimationNonConvergence indicates an ability update failed to converge.
	// The previous estimate is retained and the session continues.
	ErrEstimationNonConvergence = errors.New("ability estimation did not converge")

	// ErrDataIntegrity is returned when a referenced domain, plan or session is
	// missing or inconsistent. The triggering operation is aborted.
	ErrDataIntegrity = errors.New("data integrity violation")

	// ErrUnauthorized is returned when an operation is not permitted.
	ErrUnauthorized = errors.New("unauthorized operation")
)

// ValidationError describes a validation failure on a specific field.
// It wraps ErrValidation (or a more specific sentinel) so callers can use errors.Is.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Field, e.Message, e.Err)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError creates a ValidationError for the given field.
// If err is nil, ErrValidation is used.
func NewValidationError(field, message string, err error) *ValidationError {
	if err == nil {
		err = ErrValidation
	}
	return &ValidationError{
		Field:   field,
		Message: message,
		Err:     err,
	}
}

// NewDataIntegrityError wraps ErrDataIntegrity with a description of the
// missing or inconsistent reference.
func NewDataIntegrityError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrDataIntegrity, fmt.Sprintf(format, args...))
}
