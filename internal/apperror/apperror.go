// Package apperror defines the application's error taxonomy.
//
// TWO PARALLEL REPRESENTATIONS:
// Errors travel through the app in two shapes:
//
//  1. Sentinel errors (ErrNotFound, ErrValidation, ...) — checked with errors.Is()
//     by the HTTP layer to pick a status code.
//  2. *AppError — the value that wraps a sentinel and carries the human-readable
//     message, a machine-readable Code (NOT_FOUND, VALIDATION_ERROR, ...), and
//     optional structured Details.
//
// The service and repository layers speak only in these errors; they never know
// about HTTP status codes. The handler layer translates them (see
// internal/handler/response.go).
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation error")
	ErrConflict     = errors.New("conflict")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
)

// Machine-readable error codes, mirrored in API error payloads.
const (
	CodeNotFound     = "NOT_FOUND"
	CodeValidation   = "VALIDATION_ERROR"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeForbidden    = "FORBIDDEN"
	CodeConflict     = "CONFLICT"
	CodeInternal     = "INTERNAL_ERROR"
)

// AppError is the application's error value.
//
// It wraps one of the sentinel errors above (so errors.Is works across the
// whole chain) and adds the context a caller needs to act on the failure.
type AppError struct {
	Err     error          // wrapped sentinel (or underlying cause)
	Code    string         // machine-readable code, e.g. "NOT_FOUND"
	Message string         // human-readable error message
	Field   string         // optional: input field causing the error
	Details map[string]any // optional: structured details (never raw DB errors)
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Code:    CodeValidation,
		Message: message,
		Field:   field,
	}
}

func Conflict(resource, message string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Code:    CodeConflict,
		Message: message,
		Details: map[string]any{"resource": resource},
	}
}

// Unauthorized means the caller is not authenticated at all.
// HTTP handlers map this to 401.
func Unauthorized(message string) *AppError {
	if message == "" {
		message = "authentication required"
	}
	return &AppError{
		Err:     ErrUnauthorized,
		Code:    CodeUnauthorized,
		Message: message,
	}
}

// Forbidden means the caller is authenticated but does not own the resource.
// HTTP handlers map this to 403.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Code:    CodeForbidden,
		Message: message,
	}
}

// Internal wraps an unexpected failure. The cause stays in the chain for
// server-side logs; the message is safe to return to clients.
func Internal(cause error, message string) *AppError {
	if message == "" {
		message = "an internal error occurred"
	}
	return &AppError{
		Err:     cause,
		Code:    CodeInternal,
		Message: message,
	}
}
