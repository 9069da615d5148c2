package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/TanmoySin/sessionguard/internal/domain/auth"
)

// ErrNoPersistedSession is returned by Persistence.Load when nothing was saved.
var ErrNoPersistedSession = errors.New("no persisted session")

// Store is the single process-wide holder of session state. All mutations go
// through its transition methods, and every mutation replaces the whole
// snapshot under the lock, so readers never observe a torn write.
//
// Only the reconciler and the logout coordinator may mutate state; everything
// else reads snapshots.
type Store struct {
	mu    sync.Mutex
	cur   Session
	epoch uint64
}

// NewStore creates an empty store in the Anonymous state.
func NewStore() *Store {
	return &Store{cur: Session{State: StateAnonymous}}
}

// Snapshot returns a copy of the current session state.
func (s *Store) Snapshot() Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur
}

// Epoch returns the current session generation. Timer callbacks capture the
// epoch when they start and stand down if it has moved.
func (s *Store) Epoch() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.epoch
}

// SetSession transitions to Active for the given user and credentials,
// stamping the login instant as the first activity. Any previous session is
// replaced wholesale and the epoch advances so stale timers from it cannot
// touch the new one.
func (s *Store) SetSession(user auth.User, credential, sessionID string) Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.epoch++
	s.cur = Session{
		User:           user,
		Credential:     credential,
		SessionID:      sessionID,
		LastActivityAt: time.Now().UTC(),
		State:          StateActive,
		Epoch:          s.epoch,
	}
	return s.cur
}

// RecordActivity notes that an outgoing request was observed at the given
// instant. This is advisory telemetry only: it never extends IdleExpiryAt,
// which only a server reconciliation may move.
func (s *Store) RecordActivity(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.cur.State.IsAuthenticated() {
		return
	}
	s.cur.LastActivityAt = now.UTC()
}

// UpdateIdleExpiry applies a server-reported idle budget: IdleExpiryAt becomes
// now+remaining. A budget below the warning threshold moves the session to
// Warning (idempotent); a budget at or above it moves Warning back to Active,
// which is how an extension cancels a warning.
//
// Returns the resulting snapshot. No-op when not authenticated.
func (s *Store) UpdateIdleExpiry(remaining time.Duration) Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.applyIdleExpiry(remaining)
}

// UpdateIdleExpiryIfEpoch applies a server-reported idle budget only while
// the session generation still matches epoch. The check and the mutation
// share one critical section, so a status result that raced a logout or
// re-login cannot land its budget on the successor session. Reports whether
// the budget was applied.
func (s *Store) UpdateIdleExpiryIfEpoch(remaining time.Duration, epoch uint64) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.epoch != epoch || !s.cur.State.IsAuthenticated() {
		return s.cur, false
	}
	return s.applyIdleExpiry(remaining), true
}

func (s *Store) applyIdleExpiry(remaining time.Duration) Session {
	if !s.cur.State.IsAuthenticated() {
		return s.cur
	}

	s.cur.IdleExpiryAt = time.Now().UTC().Add(remaining)
	if remaining < WarningThreshold {
		s.cur.State = StateWarning
	} else {
		s.cur.State = StateActive
	}
	return s.cur
}

// MarkWarning transitions Active to Warning without touching IdleExpiryAt.
// Used by the local fallback loop, which may narrow toward expiry but must
// never move it. Returns true if the transition happened.
func (s *Store) MarkWarning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cur.State != StateActive {
		return false
	}
	s.cur.State = StateWarning
	return true
}

// Logout unconditionally terminates the session: the state passes through
// Expired (credential dropped) and settles in Anonymous with every field
// cleared. The epoch advances so pending timer callbacks from the ended
// session detect they are stale.
//
// Safe to call concurrently any number of times. Returns the snapshot taken
// just before the transition and true for exactly one caller; later calls
// return the current (anonymous) snapshot and false.
func (s *Store) Logout() (prior Session, loggedOut bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.cur.State.IsAuthenticated() {
		return s.cur, false
	}

	prior = s.cur
	s.epoch++
	s.cur = Session{State: StateAnonymous, Epoch: s.epoch}
	return prior, true
}

// Persistence stores the re-loadable part of a session across restarts.
// Implementations: sqlite (prod), in-memory (tests).
type Persistence interface {
	// Save stores the session, replacing any previous one.
	Save(ctx context.Context, ps PersistedSession) error
	// Load returns the stored session, or ErrNoPersistedSession.
	Load(ctx context.Context) (PersistedSession, error)
	// Clear removes any stored session. Clearing an empty store is not an error.
	Clear(ctx context.Context) error
}
