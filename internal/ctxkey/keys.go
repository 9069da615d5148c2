// Package ctxkey defines shared context key types used across multiple packages.
// This package should have no dependencies on other internal packages to avoid import cycles.
package ctxkey

// RequestIDKey is the context key type for the request correlation id.
// Used by the activity transport to hand the id of the request that
// triggered a forced logout to the teardown path for log correlation.
type RequestIDKey struct{}

// LoggerKey is the context key type for the enriched logger.
type LoggerKey struct{}
