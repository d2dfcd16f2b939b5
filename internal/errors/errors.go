package errors

import (
	"context"
	"errors"
	"fmt"
)

// Domain-specific error types
var (
	// ErrNotFound indicates a resource was not found
	ErrNotFound = errors.New("resource not found")

	// ErrConflict indicates a uniqueness conflict, e.g. re-ingesting a
	// message id that already exists for the account
	ErrConflict = errors.New("conflict")

	// ErrValidation indicates the input fails model validation
	ErrValidation = errors.New("validation failed")

	// ErrTransient indicates a temporary failure that is safe to retry
	ErrTransient = errors.New("transient failure")

	// ErrFatal indicates a failure that will not succeed on retry,
	// such as a revoked OAuth grant or a permanent provider rejection
	ErrFatal = errors.New("fatal failure")

	// ErrBreakerOpen indicates the circuit breaker rejected the call
	// without attempting the underlying operation
	ErrBreakerOpen = errors.New("circuit breaker open")

	// ErrCancelled indicates the caller's context was cancelled or its
	// deadline expired while the operation was waiting or in flight
	ErrCancelled = errors.New("operation cancelled")

	// ErrUnauthorized indicates unauthorized access
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden indicates forbidden access
	ErrForbidden = errors.New("forbidden")

	// ErrInternal indicates an internal server error
	ErrInternal = errors.New("internal server error")
)

// Error codes for API responses
const (
	CodeNotFound      = "NOT_FOUND"
	CodeConflict      = "CONFLICT"
	CodeValidation    = "VALIDATION_FAILED"
	CodeTransient     = "TEMPORARILY_UNAVAILABLE"
	CodeFatal         = "UPSTREAM_FAILURE"
	CodeBreakerOpen   = "CIRCUIT_OPEN"
	CodeCancelled     = "CANCELLED"
	CodeUnauthorized  = "UNAUTHORIZED"
	CodeForbidden     = "FORBIDDEN"
	CodeInternalError = "INTERNAL_ERROR"
)

// AppError represents an application error with context
type AppError struct {
	Err     error
	Message string
	Code    string
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates a new AppError
func NewAppError(err error, message string, code string) *AppError {
	return &AppError{
		Err:     err,
		Message: message,
		Code:    code,
	}
}

// Wrap wraps an error with additional context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Transient marks err as retryable while preserving its message
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrTransient, err)
}

// Fatal marks err as non-retryable while preserving its message
func Fatal(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrFatal, err)
}

// Cancelled converts a context error into ErrCancelled. Non-context errors
// are returned unchanged.
func Cancelled(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrCancelled, err)
	}
	return err
}

// IsNotFound checks if the error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConflict checks if the error is a conflict error
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

// IsValidation checks if the error is a validation error
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsTransient checks if the error is safe to retry
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}

// IsFatal checks if the error is permanent
func IsFatal(err error) bool {
	return errors.Is(err, ErrFatal)
}

// IsBreakerOpen checks if the error came from an open circuit breaker
func IsBreakerOpen(err error) bool {
	return errors.Is(err, ErrBreakerOpen)
}

// IsCancelled checks if the error came from context cancellation
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

// GetErrorCode returns the appropriate error code for an error
func GetErrorCode(err error) string {
	switch {
	case IsNotFound(err):
		return CodeNotFound
	case IsConflict(err):
		return CodeConflict
	case IsValidation(err):
		return CodeValidation
	case IsBreakerOpen(err):
		return CodeBreakerOpen
	case IsCancelled(err):
		return CodeCancelled
	case IsTransient(err):
		return CodeTransient
	case IsFatal(err):
		return CodeFatal
	case errors.Is(err, ErrUnauthorized):
		return CodeUnauthorized
	case errors.Is(err, ErrForbidden):
		return CodeForbidden
	default:
		return CodeInternalError
	}
}
