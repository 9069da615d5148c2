package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/TanmoySin/sessionguard/internal/domain/session"
	"github.com/TanmoySin/sessionguard/internal/port/outbound"
	"github.com/TanmoySin/sessionguard/internal/telemetry"
)

const (
	// DefaultStatusInterval is the cadence of authoritative server checks.
	DefaultStatusInterval = 5 * time.Minute
	// DefaultTickInterval is the cadence of the local fallback check.
	DefaultTickInterval = 10 * time.Second
)

// ReconcilerConfig carries the two loop cadences. Zero values fall back to
// the defaults; tests shrink them to milliseconds.
type ReconcilerConfig struct {
	StatusInterval time.Duration
	TickInterval   time.Duration
}

func (c ReconcilerConfig) withDefaults() ReconcilerConfig {
	if c.StatusInterval <= 0 {
		c.StatusInterval = DefaultStatusInterval
	}
	if c.TickInterval <= 0 {
		c.TickInterval = DefaultTickInterval
	}
	return c
}

// Reconciler keeps the local session state converged with the server using
// two loops of different cadence and authority.
//
// The status loop asks the server for the authoritative idle budget, may
// move IdleExpiryAt in either direction, and takes the server's shouldWarn
// flag as the warning decision. The tick loop only compares the local clock
// against the last known IdleExpiryAt: it can warn and expire early but can
// never grant time, so a dead server degrades toward logout, never toward a
// session that outlives its budget.
//
// Both loops capture the store epoch before acting and stand down if it
// moved, so a logout or re-login between request and response cannot be
// clobbered by a stale result.
type Reconciler struct {
	store       *session.Store
	api         outbound.AuthAPI
	surface     outbound.WarningSurface
	coordinator *LogoutCoordinator
	metrics     *telemetry.Metrics
	logger      *slog.Logger
	tracer      trace.Tracer
	cfg         ReconcilerConfig

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	startOnce sync.Once

	// latched is true while a warning is on screen. At most one warning is
	// surfaced per threshold crossing regardless of which loop notices first.
	latchMu sync.Mutex
	latched bool
}

// NewReconciler creates a reconciler. Call Start to launch the loops.
func NewReconciler(store *session.Store, api outbound.AuthAPI, surface outbound.WarningSurface, coordinator *LogoutCoordinator, metrics *telemetry.Metrics, logger *slog.Logger, cfg ReconcilerConfig) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Reconciler{
		store:       store,
		api:         api,
		surface:     surface,
		coordinator: coordinator,
		metrics:     metrics,
		logger:      logger,
		tracer:      otel.Tracer("sessionguard/reconciler"),
		cfg:         cfg.withDefaults(),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Start launches both loops. The status loop runs one pass immediately so a
// fresh or rehydrated session gets an authoritative budget without waiting a
// full interval. Idempotent.
func (r *Reconciler) Start() {
	r.startOnce.Do(func() {
		r.wg.Add(2)
		go r.statusLoop()
		go r.tickLoop()
	})
}

// Stop cancels both loops and waits for them to exit. Must not be called
// from the loops themselves; they use Interrupt.
func (r *Reconciler) Stop() {
	r.cancel()
	r.wg.Wait()
}

// Interrupt cancels both loops without waiting. Safe to call from hooks that
// run on a loop goroutine, where Stop would deadlock.
func (r *Reconciler) Interrupt() {
	r.cancel()
}

// ReconcileNow runs a single authoritative pass outside the loop cadence.
// Used after login and after a user-driven extension.
func (r *Reconciler) ReconcileNow(ctx context.Context) {
	r.reconcile(ctx)
}

// ObserveHint records an advisory expiry hint carried on a response. Hints
// are telemetry only: the authoritative budget still comes from the status
// loop, so a stale or lying intermediary cannot move the expiry.
func (r *Reconciler) ObserveHint(hint outbound.SessionHint) {
	r.logger.Debug("expiry hint observed",
		"warn", hint.Warn,
		"expires_in", hint.ExpiresIn)
}

func (r *Reconciler) statusLoop() {
	defer r.wg.Done()

	r.reconcile(r.ctx)

	ticker := time.NewTicker(r.cfg.StatusInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.reconcile(r.ctx)
		case <-r.ctx.Done():
			return
		}
	}
}

// reconcile performs one authoritative pass against the server.
func (r *Reconciler) reconcile(ctx context.Context) {
	snap := r.store.Snapshot()
	if !snap.IsAuthenticated() {
		return
	}

	ctx, span := r.tracer.Start(ctx, "session.reconcile")
	defer span.End()

	status, err := r.api.SessionStatus(ctx)
	if err != nil {
		// Transient failures are swallowed; the tick loop keeps counting
		// down against the last known budget.
		span.RecordError(err)
		span.SetStatus(codes.Error, "status check failed")
		if r.metrics != nil {
			r.metrics.ReconcilesTotal.WithLabelValues("error").Inc()
		}
		r.logger.Warn("session status check failed", "error", err)
		return
	}

	// A logout or re-login raced this request; the response describes a
	// session that no longer exists.
	if r.store.Epoch() != snap.Epoch {
		r.logger.Debug("discarding stale status result", "epoch", snap.Epoch)
		return
	}

	span.SetAttributes(
		attribute.Bool("session.active", status.Active),
		attribute.Bool("session.should_warn", status.ShouldWarn),
		attribute.Int64("session.idle_remaining_ms", status.IdleRemaining.Milliseconds()),
	)

	if !status.Active {
		if r.metrics != nil {
			r.metrics.ReconcilesTotal.WithLabelValues("inactive").Inc()
		}
		r.coordinator.ForceLogout(ctx, session.ReasonServerInactive)
		return
	}

	if status.IdleRemaining <= 0 {
		if r.metrics != nil {
			r.metrics.ReconcilesTotal.WithLabelValues("ok").Inc()
		}
		r.coordinator.ForceLogout(ctx, session.ReasonIdleExpiry)
		return
	}

	// The epoch is re-checked inside the store's critical section: the check
	// above narrows the window, this one closes it.
	after, applied := r.store.UpdateIdleExpiryIfEpoch(status.IdleRemaining, snap.Epoch)
	if !applied {
		r.logger.Debug("discarding stale status result", "epoch", snap.Epoch)
		return
	}
	if r.metrics != nil {
		r.metrics.ReconcilesTotal.WithLabelValues("ok").Inc()
		r.metrics.SessionState.Set(float64(after.State))
	}

	// On this path the server owns the warning decision. Its window may be
	// wider or narrower than the local threshold; the local threshold only
	// matters to the fallback tick.
	if status.ShouldWarn {
		r.warn(status.IdleRemaining)
	} else {
		r.clearWarning()
	}
}

func (r *Reconciler) tickLoop() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.tick()
		case <-r.ctx.Done():
			return
		}
	}
}

// tick performs one local pass against the last known expiry. It never
// extends: before the first reconciliation there is no budget to check, and
// afterwards it may only narrow toward warning or expiry.
func (r *Reconciler) tick() {
	snap := r.store.Snapshot()
	if !snap.IsAuthenticated() || snap.IdleExpiryAt.IsZero() {
		return
	}

	remaining := snap.IdleRemaining(time.Now())
	switch {
	case remaining <= 0:
		r.coordinator.ForceLogout(r.ctx, session.ReasonIdleExpiry)
	case remaining <= session.WarningThreshold:
		r.store.MarkWarning()
		if r.metrics != nil {
			r.metrics.SessionState.Set(float64(session.StateWarning))
		}
		r.warn(remaining)
	}
}

// warn surfaces the warning once per threshold crossing.
func (r *Reconciler) warn(remaining time.Duration) {
	r.latchMu.Lock()
	already := r.latched
	r.latched = true
	r.latchMu.Unlock()
	if already {
		return
	}

	if r.metrics != nil {
		r.metrics.WarningsTotal.Inc()
	}
	r.logger.Info("session expiring soon", "remaining", remaining.Round(time.Second))
	if r.surface != nil {
		r.surface.ShowWarning(remaining.Round(time.Second))
	}
}

// clearWarning releases the latch and removes any surfaced warning. Called
// when a reconciliation reports a healthy budget again.
func (r *Reconciler) clearWarning() {
	r.latchMu.Lock()
	wasLatched := r.latched
	r.latched = false
	r.latchMu.Unlock()
	if !wasLatched {
		return
	}

	r.logger.Info("session warning cleared")
	if r.surface != nil {
		r.surface.ClearWarning()
	}
}
