// Package service implements the session lifecycle: login and rehydration,
// the dual-cadence expiry reconciler, and the idempotent logout teardown.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/TanmoySin/sessionguard/internal/domain/auth"
	"github.com/TanmoySin/sessionguard/internal/domain/session"
	"github.com/TanmoySin/sessionguard/internal/port/outbound"
	"github.com/TanmoySin/sessionguard/internal/telemetry"
)

// ErrNotAuthenticated is returned by operations that need a live session.
var ErrNotAuthenticated = errors.New("not authenticated")

// ErrSessionEnded is returned by Login and Resume once the service has wound
// down. A SessionService covers exactly one session's lifetime; after Done
// the reconciler loops are gone, so a session installed here would never be
// monitored. Callers wanting another session build a fresh service.
var ErrSessionEnded = errors.New("session already ended")

// SessionService is the entry point for one session's lifetime: it logs in
// or rehydrates, runs the reconciler while the session lives, and reports
// completion through Done when the session ends for any reason.
type SessionService struct {
	store       *session.Store
	api         outbound.AuthAPI
	coordinator *LogoutCoordinator
	reconciler  *Reconciler
	persistence session.Persistence
	metrics     *telemetry.Metrics
	logger      *slog.Logger
	tracer      trace.Tracer

	done     chan struct{}
	doneOnce sync.Once
}

// NewSessionService wires the coordinator's completion hook to the
// reconciler, so any logout, from any trigger, winds the whole service down.
func NewSessionService(store *session.Store, api outbound.AuthAPI, coordinator *LogoutCoordinator, reconciler *Reconciler, persistence session.Persistence, metrics *telemetry.Metrics, logger *slog.Logger) *SessionService {
	if logger == nil {
		logger = slog.Default()
	}
	s := &SessionService{
		store:       store,
		api:         api,
		coordinator: coordinator,
		reconciler:  reconciler,
		persistence: persistence,
		metrics:     metrics,
		logger:      logger,
		tracer:      otel.Tracer("sessionguard/service"),
		done:        make(chan struct{}),
	}

	coordinator.SetOnLogout(func(reason session.LogoutReason) {
		// Runs on whichever goroutine triggered the logout, possibly one of
		// the reconciler's own loops, so interrupt without waiting.
		s.reconciler.Interrupt()
		s.signalDone()
	})

	return s
}

// Login authenticates with the server, installs the issued session, and
// starts the reconciler. The reconciler's immediate first pass fetches the
// authoritative idle budget.
func (s *SessionService) Login(ctx context.Context, email, password string) error {
	if s.ended() {
		return ErrSessionEnded
	}

	ctx, span := s.tracer.Start(ctx, "auth.login")
	defer span.End()

	result, err := s.api.Login(ctx, outbound.Credentials{Email: email, Password: password})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "login failed")
		return fmt.Errorf("login: %w", err)
	}

	s.installSession(ctx, result.User, result.Credential, result.SessionID)
	s.logger.Info("logged in",
		"user_id", result.User.ID,
		"role", string(result.User.Role),
		"credential", session.CredentialFingerprint(result.Credential))
	return nil
}

// Resume rehydrates a persisted session from a previous run. The installed
// session is optimistic: the reconciler's immediate first pass validates it
// against the server, and a stale credential tears it straight back down.
// Returns session.ErrNoPersistedSession when there is nothing to resume.
func (s *SessionService) Resume(ctx context.Context) error {
	if s.ended() {
		return ErrSessionEnded
	}
	if s.persistence == nil {
		return session.ErrNoPersistedSession
	}

	ps, err := s.persistence.Load(ctx)
	if err != nil {
		if errors.Is(err, session.ErrNoPersistedSession) {
			return err
		}
		return fmt.Errorf("loading persisted session: %w", err)
	}

	s.installSession(ctx, ps.User, ps.Credential, ps.SessionID)
	s.logger.Info("session resumed",
		"user_id", ps.User.ID,
		"credential", session.CredentialFingerprint(ps.Credential))
	return nil
}

func (s *SessionService) installSession(ctx context.Context, user auth.User, credential, sessionID string) {
	s.store.SetSession(user, credential, sessionID)

	if s.persistence != nil {
		if err := s.persistence.Save(ctx, session.PersistedSession{
			User:       user,
			Credential: credential,
			SessionID:  sessionID,
		}); err != nil {
			s.logger.Warn("persisting session failed", "error", err)
		}
	}
	if s.metrics != nil {
		s.metrics.SessionState.Set(float64(session.StateActive))
	}

	s.reconciler.Start()
}

// Extend asks the server for more idle time on the user's behalf. Any
// authenticated request resets the server-side idle clock; the immediate
// reconciliation afterwards picks up the new budget, which moves a Warning
// session back to Active and clears the warning.
func (s *SessionService) Extend(ctx context.Context) error {
	if !s.store.Snapshot().IsAuthenticated() {
		return ErrNotAuthenticated
	}

	ctx, span := s.tracer.Start(ctx, "session.extend")
	defer span.End()

	if err := s.api.Ping(ctx); err != nil {
		span.RecordError(err)
		return fmt.Errorf("extend: %w", err)
	}
	s.reconciler.ReconcileNow(ctx)
	return nil
}

// Logout ends the session at the user's request.
func (s *SessionService) Logout(ctx context.Context) {
	s.coordinator.ForceLogout(ctx, session.ReasonUserLogout)
}

// Snapshot returns the current session state.
func (s *SessionService) Snapshot() session.Session {
	return s.store.Snapshot()
}

// Done is closed when the session has ended for any reason.
func (s *SessionService) Done() <-chan struct{} {
	return s.done
}

// Close stops the reconciler and releases the service. Blocks until both
// loops have exited. Safe to call after the session already ended.
func (s *SessionService) Close() {
	s.reconciler.Stop()
	s.signalDone()
}

func (s *SessionService) signalDone() {
	s.doneOnce.Do(func() { close(s.done) })
}

func (s *SessionService) ended() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}
