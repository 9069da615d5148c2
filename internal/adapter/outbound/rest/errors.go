package rest

import (
	"fmt"
	"net/http"

	"github.com/TanmoySin/sessionguard/internal/port/outbound"
)

// APIError is returned when the server answers with a non-2xx status.
type APIError struct {
	// Status is the HTTP status code.
	Status int
	// Body is the raw response body, kept for diagnostics.
	Body string
}

// Error returns a human-readable description of the failure.
func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Body)
}

// Is reports whether this error matches the target error.
// A 401 matches outbound.ErrUnauthorized.
func (e *APIError) Is(target error) bool {
	return target == outbound.ErrUnauthorized && e.Status == http.StatusUnauthorized
}

// UnreachableError is returned when the server cannot be contacted at all
// (DNS failure, connection refused, timeout, TLS handshake).
type UnreachableError struct {
	// Cause is the underlying transport error.
	Cause error
}

// Error returns a human-readable description of the failure.
func (e *UnreachableError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("server unreachable: %v", e.Cause)
	}
	return "server unreachable"
}

// Unwrap returns the underlying error cause.
func (e *UnreachableError) Unwrap() error {
	return e.Cause
}

// Is reports whether this error matches the target error.
// It supports errors.Is(err, outbound.ErrServerUnreachable).
func (e *UnreachableError) Is(target error) bool {
	return target == outbound.ErrServerUnreachable
}
