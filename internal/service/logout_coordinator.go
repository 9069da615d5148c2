package service

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/TanmoySin/sessionguard/internal/ctxkey"
	"github.com/TanmoySin/sessionguard/internal/domain/session"
	"github.com/TanmoySin/sessionguard/internal/port/outbound"
	"github.com/TanmoySin/sessionguard/internal/telemetry"
)

// serverLogoutTimeout bounds the best-effort server-side logout call.
const serverLogoutTimeout = 5 * time.Second

// LogoutDeps carries the side-effect collaborators of the coordinator.
// Any field may be nil; nil collaborators are skipped.
type LogoutDeps struct {
	Persistence session.Persistence
	Cache       outbound.CacheClearer
	Surface     outbound.WarningSurface
	Notifier    outbound.Notifier
	Navigator   outbound.Navigator
	Metrics     *telemetry.Metrics
}

// LogoutCoordinator funnels every way a session can end through one
// idempotent teardown sequence. Concurrent triggers (user click, idle expiry,
// 401, server-reported inactive) collapse into a single run: the store's
// Logout picks exactly one winner, and the in-flight guard stops re-entrant
// triggers fired by the teardown itself, such as a 401 on the logout call.
type LogoutCoordinator struct {
	store  *session.Store
	api    outbound.AuthAPI
	deps   LogoutDeps
	logger *slog.Logger

	inFlight atomic.Bool

	mu       sync.Mutex
	onLogout func(reason session.LogoutReason)
}

// NewLogoutCoordinator creates a coordinator around the given store and API.
func NewLogoutCoordinator(store *session.Store, api outbound.AuthAPI, deps LogoutDeps, logger *slog.Logger) *LogoutCoordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogoutCoordinator{
		store:  store,
		api:    api,
		deps:   deps,
		logger: logger,
	}
}

// SetOnLogout registers a hook invoked after a completed teardown. Used by
// the session service to stop the reconciler without creating a construction
// cycle between the two.
func (c *LogoutCoordinator) SetOnLogout(fn func(reason session.LogoutReason)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onLogout = fn
}

// ForceLogout terminates the session for the given reason. Safe to call from
// any goroutine, any number of times, in any state: only the call that wins
// the store transition performs side effects, the rest return immediately.
func (c *LogoutCoordinator) ForceLogout(ctx context.Context, reason session.LogoutReason) {
	if !c.inFlight.CompareAndSwap(false, true) {
		return
	}
	defer c.inFlight.Store(false)

	if !c.store.Snapshot().IsAuthenticated() {
		return
	}

	// Server-side invalidation is best-effort and must survive cancellation
	// of the triggering request. It runs before the local drop so the
	// credential is still attached to the call. Skipped when the server
	// already reported the session gone.
	if reason != session.ReasonServerInactive && reason != session.ReasonUnauthorized {
		logoutCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), serverLogoutTimeout)
		if err := c.api.Logout(logoutCtx); err != nil {
			c.logger.Warn("server-side logout failed", "error", err)
		}
		cancel()
	}

	prior, loggedOut := c.store.Logout()
	if !loggedOut {
		return
	}

	logger := c.logger
	if l, ok := ctx.Value(ctxkey.LoggerKey{}).(*slog.Logger); ok {
		logger = l
	}
	if requestID, ok := ctx.Value(ctxkey.RequestIDKey{}).(string); ok {
		logger = logger.With("request_id", requestID)
	}
	logger.Info("session ended",
		"reason", string(reason),
		"user_id", prior.User.ID,
		"session_id", prior.SessionID)

	if c.deps.Persistence != nil {
		if err := c.deps.Persistence.Clear(context.WithoutCancel(ctx)); err != nil {
			c.logger.Warn("clearing persisted session failed", "error", err)
		}
	}
	if c.deps.Cache != nil {
		if err := c.deps.Cache.ClearCache(context.WithoutCancel(ctx)); err != nil {
			c.logger.Warn("clearing cached data failed", "error", err)
		}
	}
	if c.deps.Surface != nil {
		c.deps.Surface.ClearWarning()
	}
	// Only idle expiry gets an explanation. User-initiated logouts need
	// none, and 401/server-inactive land on the login screen anyway.
	if c.deps.Notifier != nil && reason == session.ReasonIdleExpiry {
		c.deps.Notifier.SessionEnded(reason)
	}
	if c.deps.Navigator != nil {
		c.deps.Navigator.NavigateHome()
	}

	if c.deps.Metrics != nil {
		c.deps.Metrics.LogoutsTotal.WithLabelValues(string(reason)).Inc()
		c.deps.Metrics.SessionState.Set(float64(session.StateAnonymous))
	}

	c.mu.Lock()
	hook := c.onLogout
	c.mu.Unlock()
	if hook != nil {
		hook(reason)
	}
}
