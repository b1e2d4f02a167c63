// Package apperr defines the typed error kinds shared by services and handlers
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for callers deciding how to react to it
type Kind string

const (
	KindValidation     Kind = "validation"
	KindNotFound       Kind = "not_found"
	KindConflict       Kind = "conflict"
	KindUnauthorized   Kind = "unauthorized"
	KindForbidden      Kind = "forbidden"
	KindQueryFailed    Kind = "query_failed"
	KindWriteFailed    Kind = "write_failed"
	KindPartialFailure Kind = "partial_failure"
)

// Error is an error carrying a Kind and a message that is safe to show to clients
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// New creates an error of the given kind
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates an error of the given kind wrapping the cause
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Validation creates a validation error with a formatted message
func Validation(format string, args ...any) *Error {
	return New(KindValidation, fmt.Sprintf(format, args...))
}

// NotFound creates a not found error with a formatted message
func NotFound(format string, args ...any) *Error {
	return New(KindNotFound, fmt.Sprintf(format, args...))
}

// Conflict creates a conflict error with a formatted message
func Conflict(format string, args ...any) *Error {
	return New(KindConflict, fmt.Sprintf(format, args...))
}

// Unauthorized creates an unauthorized error
func Unauthorized(message string) *Error {
	return New(KindUnauthorized, message)
}

// Forbidden creates a forbidden error
func Forbidden(message string) *Error {
	return New(KindForbidden, message)
}

// KindOf returns the kind of err, or an empty Kind when err carries none
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return ""
}

// Is reports whether err carries the given kind
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Status maps an error to the HTTP status code used to report it
func Status(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindPartialFailure:
		return http.StatusMultiStatus
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the client-facing message for err
//
// Errors without a kind are reported with a generic message so that store details never leak.
func Message(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Error()
	}
	return "internal server error"
}
