// internal/engine/errors.go
package engine

import (
	"errors"
	"fmt"
)

// Common engine errors
var (
	ErrBrowserNotFound = errors.New("chrome browser not found")
	ErrBrowserCrash    = errors.New("browser crashed")
	ErrTimeout         = errors.New("request timeout")
	ErrInvalidURL      = errors.New("invalid URL")
	ErrSessionNotFound = errors.New("session not found")
)

// ErrorCode represents a specific error condition
type ErrorCode string

const (
	ErrCodeTimeout      ErrorCode = "TIMEOUT"
	ErrCodeValidation   ErrorCode = "VALIDATION"
	ErrCodeBrowserCrash ErrorCode = "BROWSER_CRASH"
	ErrCodeNetworkError ErrorCode = "NETWORK_ERROR"
	ErrCodeBadStatus    ErrorCode = "BAD_STATUS"
	ErrCodeSessionError ErrorCode = "SESSION_ERROR"
)

// FetchError wraps fetch failures with a stable machine-readable code.
type FetchError struct {
	Code       ErrorCode
	Message    string
	Underlying error
	StatusCode int
	Retry      bool
}

// Error implements the error interface
func (e *FetchError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Underlying)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *FetchError) Unwrap() error {
	return e.Underlying
}

// Is checks if the error matches the target
func (e *FetchError) Is(target error) bool {
	if t, ok := target.(*FetchError); ok {
		return e.Code == t.Code
	}
	return errors.Is(e.Underlying, target)
}

// GetStatusCode exposes the HTTP status for retry policy checks.
// Zero means no status was received.
func (e *FetchError) GetStatusCode() int {
	return e.StatusCode
}

// NewFetchError creates a new FetchError
func NewFetchError(code ErrorCode, message string, err error) *FetchError {
	return &FetchError{
		Code:       code,
		Message:    message,
		Underlying: err,
	}
}

// WithStatus attaches an HTTP status code
func (e *FetchError) WithStatus(status int) *FetchError {
	e.StatusCode = status
	return e
}

// WithRetry marks the error as retryable
func (e *FetchError) WithRetry() *FetchError {
	e.Retry = true
	return e
}
