// Package outbound defines the outbound port interfaces the session core
// depends on: the auth REST API and the user-facing surfaces.
package outbound

import (
	"context"
	"errors"
	"time"

	"github.com/TanmoySin/sessionguard/internal/domain/auth"
)

// Sentinel errors adapters map their transport failures onto, so the core can
// use errors.Is without depending on adapter types.
var (
	// ErrUnauthorized is returned when the server rejects the credential (401).
	ErrUnauthorized = errors.New("unauthorized")

	// ErrServerUnreachable is returned on connection-level failures.
	ErrServerUnreachable = errors.New("server unreachable")
)

// Credentials are the login inputs.
type Credentials struct {
	Email    string
	Password string
}

// LoginResult is what the server issues on a successful login.
type LoginResult struct {
	User       auth.User
	Credential string
	SessionID  string
}

// SessionStatus is the server's authoritative view of the current session.
type SessionStatus struct {
	// Active is the server ground truth: false means the session is gone.
	Active bool
	// IdleRemaining is the idle budget the server still grants.
	IdleRemaining time.Duration
	// ShouldWarn is the server-computed warning threshold flag.
	ShouldWarn bool
}

// SessionHint carries the advisory expiry signals an arbitrary authenticated
// response may attach. Hints are telemetry only; the dedicated status
// endpoint remains authoritative.
type SessionHint struct {
	// Warn is set when the response flagged the session as expiring soon.
	Warn bool
	// ExpiresIn is the advisory remaining time, zero when absent.
	ExpiresIn time.Duration
}

// AuthAPI is the outbound port for the auth endpoints of the task service.
// Adapters implement this over REST.
type AuthAPI interface {
	// Login authenticates and returns the issued session.
	Login(ctx context.Context, creds Credentials) (LoginResult, error)

	// SessionStatus asks the server whether the session is alive and how much
	// idle budget remains. Returns ErrUnauthorized (via the adapter's error
	// types) on an invalid session.
	SessionStatus(ctx context.Context) (SessionStatus, error)

	// Ping issues a lightweight authenticated request whose only purpose is
	// to let the server observe activity. Used by the warning surface's
	// extend affordance.
	Ping(ctx context.Context) error

	// Logout invalidates the session server-side. Best-effort: callers
	// proceed with local cleanup regardless of the outcome.
	Logout(ctx context.Context) error
}
