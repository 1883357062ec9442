// Package apperror defines the error taxonomy used across the service.
// Handlers map these onto HTTP status codes; everything below the API
// layer wraps failures into one of the sentinel categories.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrAuth          = errors.New("authentication failed")
	ErrNotFound      = errors.New("not found")
	ErrForbidden     = errors.New("access denied")
	ErrValidation    = errors.New("validation failed")
	ErrExternal      = errors.New("external service error")
	ErrConfiguration = errors.New("configuration error")
)

// AppError carries a category sentinel plus a human-readable message.
type AppError struct {
	Err     error
	Message string
}

func (e *AppError) Error() string {
	if e.Message == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error { return e.Err }

func Auth(msg string) error {
	return &AppError{Err: ErrAuth, Message: msg}
}

func NotFound(msg string) error {
	return &AppError{Err: ErrNotFound, Message: msg}
}

func Forbidden(msg string) error {
	return &AppError{Err: ErrForbidden, Message: msg}
}

func Validation(msg string) error {
	return &AppError{Err: ErrValidation, Message: msg}
}

func External(msg string) error {
	return &AppError{Err: ErrExternal, Message: msg}
}

func Externalf(format string, args ...any) error {
	return &AppError{Err: ErrExternal, Message: fmt.Sprintf(format, args...)}
}

func Configuration(msg string) error {
	return &AppError{Err: ErrConfiguration, Message: msg}
}
