// Package session manages the client-side view of the authenticated session.
//
// The session moves through a small state machine:
//
//	Anonymous --login--> Active --idle below threshold--> Warning
//	Warning --extension--> Active
//	{Active,Warning} --idle exhausted / 401 / explicit logout--> Expired --> Anonymous
//
// Expired is a transient state: the credential is dropped the moment it is
// entered, and the remaining fields are cleared on the way to Anonymous.
// Snapshots taken after a logout always observe Anonymous.
package session

import (
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/TanmoySin/sessionguard/internal/domain/auth"
)

// WarningThreshold is the idle budget below which the session enters Warning.
const WarningThreshold = 2 * time.Minute

// State represents the current state of the session.
type State int

const (
	// StateAnonymous indicates no session exists.
	StateAnonymous State = iota
	// StateActive indicates an authenticated session with a healthy idle budget.
	StateActive
	// StateWarning indicates an authenticated session close to idle expiry.
	StateWarning
	// StateExpired indicates the session has been invalidated.
	StateExpired
)

// String returns a string representation of the State.
func (s State) String() string {
	switch s {
	case StateAnonymous:
		return "ANONYMOUS"
	case StateActive:
		return "ACTIVE"
	case StateWarning:
		return "WARNING"
	case StateExpired:
		return "EXPIRED"
	default:
		return "UNKNOWN"
	}
}

// IsAuthenticated returns true if the state carries a logged-in user.
func (s State) IsAuthenticated() bool {
	return s == StateActive || s == StateWarning
}

// LogoutReason describes why a session was terminated.
type LogoutReason string

const (
	// ReasonUserLogout is an explicit logout requested by the user.
	ReasonUserLogout LogoutReason = "user_logout"
	// ReasonIdleExpiry is a logout forced by the local idle-expiry backstop.
	ReasonIdleExpiry LogoutReason = "idle_expiry"
	// ReasonUnauthorized is a logout forced by an HTTP 401 from any endpoint.
	ReasonUnauthorized LogoutReason = "unauthorized"
	// ReasonServerInactive is a logout forced by the status endpoint reporting
	// the session no longer active.
	ReasonServerInactive LogoutReason = "server_inactive"
)

// Session is an immutable snapshot of the current session. All reads from the
// Store return copies, never shared references.
type Session struct {
	// User is the authenticated user. Zero value when anonymous.
	User auth.User
	// Credential is the opaque bearer token. Empty when anonymous.
	Credential string
	// SessionID is the opaque correlation handle issued at login.
	SessionID string
	// LastActivityAt is the timestamp of the most recent outgoing request.
	LastActivityAt time.Time
	// IdleExpiryAt is when the session idle-expires. Zero until the first
	// server reconciliation sets an authoritative budget.
	IdleExpiryAt time.Time
	// State is the current lifecycle state.
	State State
	// Epoch identifies the session generation this snapshot belongs to.
	// It increments on every login and logout.
	Epoch uint64
}

// IsAuthenticated returns true if the snapshot carries a logged-in user.
func (s Session) IsAuthenticated() bool {
	return s.State.IsAuthenticated()
}

// IdleRemaining returns the idle budget left at the given instant.
// Returns zero when no authoritative expiry has been set yet.
func (s Session) IdleRemaining(now time.Time) time.Duration {
	if s.IdleExpiryAt.IsZero() {
		return 0
	}
	return s.IdleExpiryAt.Sub(now)
}

// PersistedSession is the subset of session state that survives a restart.
// The idle expiry and warning latch are deliberately excluded: they are
// re-derived from the server on the first reconciliation after rehydration.
type PersistedSession struct {
	User       auth.User `json:"user"`
	Credential string    `json:"credential"`
	SessionID  string    `json:"session_id"`
}

// CredentialFingerprint returns a short non-reversible fingerprint of a
// credential, safe to include in logs. Never log the credential itself.
func CredentialFingerprint(credential string) string {
	if credential == "" {
		return ""
	}
	return strconv.FormatUint(xxhash.Sum64String(credential), 16)
}
