package github

import (
	"errors"
	"fmt"
	"time"
)

// ErrNotModified is returned when a conditional request was answered with
// HTTP 304. It is a signal, not a failure: callers short-circuit on it and
// keep their cached data.
var ErrNotModified = errors.New("github: not modified")

// ServiceError is the recognized remote-service failure category: the
// GitHub API (or the network path to it) failed. Update dispatch suppresses
// exactly this category; everything else propagates.
type ServiceError struct {
	// Operation is the high-level call that failed, e.g. "get repository"
	Operation string

	// Resource is the affected resource, e.g. an "owner/repo" slug
	Resource string

	// StatusCode is the HTTP status, 0 for transport-level failures
	StatusCode int

	Err error
}

// Error returns the error message
func (e *ServiceError) Error() string {
	if e.Resource != "" {
		return fmt.Sprintf("github: %s %s failed: %v", e.Operation, e.Resource, e.Err)
	}
	return fmt.Sprintf("github: %s failed: %v", e.Operation, e.Err)
}

// Unwrap returns the underlying cause
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// IsServiceError reports whether err belongs to the suppressible
// remote-service failure category
func IsServiceError(err error) bool {
	var svcErr *ServiceError
	return errors.As(err, &svcErr)
}

// RateLimitError is a ServiceError refinement raised when GitHub rejects a
// call because the rate limit is exhausted. Callers disable the hub until
// the reset time instead of hammering the API.
type RateLimitError struct {
	*ServiceError

	// Reset is when the rate limit window resets
	Reset time.Time
}

// Unwrap returns the embedded ServiceError so that errors.As matching on
// the broad category still succeeds
func (e *RateLimitError) Unwrap() error {
	return e.ServiceError
}

// AuthError is a ServiceError refinement raised when the configured token
// is rejected. Callers disable the hub; retrying cannot help.
type AuthError struct {
	*ServiceError
}

// Unwrap returns the embedded ServiceError so that errors.As matching on
// the broad category still succeeds
func (e *AuthError) Unwrap() error {
	return e.ServiceError
}
