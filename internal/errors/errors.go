// Package errors provides typed request errors with HTTP status mapping.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType categorizes an error for response mapping and metrics.
type ErrorType string

const (
	TypeValidation   ErrorType = "validation"   // HTTP 400
	TypeUnauthorized ErrorType = "unauthorized" // HTTP 401
	TypeForbidden    ErrorType = "forbidden"    // HTTP 403
	TypeNotFound     ErrorType = "not_found"    // HTTP 404
	TypeInternal     ErrorType = "internal"     // HTTP 500
)

// Error is a request error carrying a type, a client-safe message, an
// optional cause, and structured context for logging.
type Error struct {
	Type    ErrorType
	Message string
	Cause   error
	Context map[string]any
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// HTTPStatus maps the error type to a response status code.
func (e *Error) HTTPStatus() int {
	switch e.Type {
	case TypeValidation:
		return http.StatusBadRequest
	case TypeUnauthorized:
		return http.StatusUnauthorized
	case TypeForbidden:
		return http.StatusForbidden
	case TypeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func newError(errType ErrorType, message string, cause error) *Error {
	return &Error{
		Type:    errType,
		Message: message,
		Cause:   cause,
		Context: make(map[string]any),
	}
}

// Validation creates an invalid-input error (HTTP 400).
func Validation(message string) *Error {
	return newError(TypeValidation, message, nil)
}

// Unauthorized creates an authentication error (HTTP 401).
func Unauthorized(message string) *Error {
	return newError(TypeUnauthorized, message, nil)
}

// Forbidden creates a permission error (HTTP 403).
func Forbidden(message string) *Error {
	return newError(TypeForbidden, message, nil)
}

// NotFound creates a missing-resource error (HTTP 404).
func NotFound(message string) *Error {
	return newError(TypeNotFound, message, nil)
}

// Internal creates a server-side error (HTTP 500). The cause is logged but
// never sent to the client.
func Internal(message string, cause error) *Error {
	return newError(TypeInternal, message, cause)
}

// WithField adds a context field for logging (chainable).
func (e *Error) WithField(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// Response is the JSON body sent to clients.
type Response struct {
	Error string    `json:"error"`
	Type  ErrorType `json:"type"`
}

// ToResponse strips the error down to its client-safe parts.
func (e *Error) ToResponse() Response {
	return Response{Error: e.Message, Type: e.Type}
}

// AsError converts any error into an *Error, wrapping unknown errors as
// internal so no detail leaks to clients.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var typed *Error
	if errors.As(err, &typed) {
		return typed
	}
	return Internal("internal server error", err)
}
