package outbound

import (
	"context"
	"time"

	"github.com/TanmoySin/sessionguard/internal/domain/session"
)

// WarningSurface presents the pre-expiry warning to the user. At most one
// warning is visible at a time; the reconciler's latch enforces that, not
// the surface.
type WarningSurface interface {
	// ShowWarning surfaces a non-blocking notification with the remaining
	// time, already rounded to whole seconds.
	ShowWarning(remaining time.Duration)

	// ClearWarning removes a surfaced warning after the session recovered
	// (extension) or ended. Clearing an absent warning is a no-op.
	ClearWarning()
}

// Notifier delivers one-shot user-facing notices outside the warning flow.
type Notifier interface {
	// SessionEnded explains why the user was signed out. Only invoked for
	// idle expiry; explicit logouts and 401s stay silent.
	SessionEnded(reason session.LogoutReason)
}

// Navigator moves the UI away from protected content.
type Navigator interface {
	// NavigateHome goes to the anonymous landing entry point, replacing
	// history so "back" cannot resurrect a protected view.
	NavigateHome()
}

// CacheClearer wipes locally cached non-session data that must not survive
// a user switch.
type CacheClearer interface {
	ClearCache(ctx context.Context) error
}
