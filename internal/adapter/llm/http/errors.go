// Package http holds shared pieces of the provider HTTP clients: the
// typed error taxonomy and the mapping from status codes to it.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// ErrorType represents the category of error that occurred.
type ErrorType int

const (
	ErrTypeAuthentication ErrorType = iota
	ErrTypeRateLimit
	ErrTypeServiceUnavailable
	ErrTypeInvalidRequest
	ErrTypeTimeout
	ErrTypeModelNotFound
	ErrTypeContentFiltered
	ErrTypeUnknown
)

// String returns a human-readable description of the error type.
func (e ErrorType) String() string {
	switch e {
	case ErrTypeAuthentication:
		return "authentication error"
	case ErrTypeRateLimit:
		return "rate limit exceeded"
	case ErrTypeServiceUnavailable:
		return "service unavailable"
	case ErrTypeInvalidRequest:
		return "invalid request"
	case ErrTypeTimeout:
		return "timeout"
	case ErrTypeModelNotFound:
		return "model not found"
	case ErrTypeContentFiltered:
		return "content filtered"
	default:
		return "unknown error"
	}
}

// Error represents a provider API error with additional context.
type Error struct {
	Type       ErrorType
	Message    string
	StatusCode int
	Retryable  bool
	Provider   string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %s (status: %d)", e.Provider, e.Type.String(), e.Message, e.StatusCode)
}

// Is implements error equality checking for errors.Is. Two Errors
// match when their types match, regardless of provider or message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// IsRetryable returns true if the error is retryable.
func (e *Error) IsRetryable() bool {
	return e.Retryable
}

// ShouldRetry classifies an error for the retry loop. Typed provider
// errors carry their own retryability; timeouts and cancellations from
// the transport are retryable; anything unrecognized is terminal.
func ShouldRetry(err error) bool {
	var perr *Error
	if errors.As(err, &perr) {
		return perr.Retryable
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	return false
}

// FromStatusCode maps an HTTP status code to a typed error. Providers
// with vendor-specific codes (Anthropic's 529, for one) handle those
// before falling through to this mapping.
func FromStatusCode(provider string, statusCode int, message string) *Error {
	if message == "" {
		message = fmt.Sprintf("HTTP %d", statusCode)
	}

	e := &Error{
		Message:    message,
		StatusCode: statusCode,
		Provider:   provider,
	}

	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		e.Type = ErrTypeAuthentication
	case http.StatusTooManyRequests:
		e.Type = ErrTypeRateLimit
		e.Retryable = true
	case http.StatusBadRequest:
		e.Type = ErrTypeInvalidRequest
	case http.StatusNotFound:
		e.Type = ErrTypeModelNotFound
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		e.Type = ErrTypeTimeout
		e.Retryable = true
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable:
		e.Type = ErrTypeServiceUnavailable
		e.Retryable = true
	default:
		e.Type = ErrTypeUnknown
	}
	return e
}

// NewAuthenticationError creates a new authentication error.
func NewAuthenticationError(provider, message string) *Error {
	return &Error{
		Type:       ErrTypeAuthentication,
		Message:    message,
		StatusCode: 401,
		Retryable:  false,
		Provider:   provider,
	}
}

// NewRateLimitError creates a new rate limit error.
func NewRateLimitError(provider, message string) *Error {
	return &Error{
		Type:       ErrTypeRateLimit,
		Message:    message,
		StatusCode: 429,
		Retryable:  true,
		Provider:   provider,
	}
}

// NewServiceUnavailableError creates a new service unavailable error.
func NewServiceUnavailableError(provider, message string) *Error {
	return &Error{
		Type:       ErrTypeServiceUnavailable,
		Message:    message,
		StatusCode: 503,
		Retryable:  true,
		Provider:   provider,
	}
}

// NewInvalidRequestError creates a new invalid request error.
func NewInvalidRequestError(provider, message string) *Error {
	return &Error{
		Type:       ErrTypeInvalidRequest,
		Message:    message,
		StatusCode: 400,
		Retryable:  false,
		Provider:   provider,
	}
}

// NewTimeoutError creates a new timeout error.
func NewTimeoutError(provider, message string) *Error {
	return &Error{
		Type:      ErrTypeTimeout,
		Message:   message,
		Retryable: true,
		Provider:  provider,
	}
}

// NewContentFilteredError creates a new content filtered error.
func NewContentFilteredError(provider, message string) *Error {
	return &Error{
		Type:       ErrTypeContentFiltered,
		Message:    message,
		StatusCode: 400,
		Retryable:  false,
		Provider:   provider,
	}
}
