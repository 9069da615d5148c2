// Package memory provides in-memory implementations of outbound ports.
package memory

import (
	"context"
	"sync"

	"github.com/TanmoySin/sessionguard/internal/domain/session"
)

// Persistence implements session.Persistence with an in-memory slot.
// Thread-safe for concurrent access. For development/testing only; nothing
// survives a process restart.
type Persistence struct {
	mu    sync.RWMutex
	cur   session.PersistedSession
	saved bool
}

// NewPersistence creates an empty in-memory persistence.
func NewPersistence() *Persistence {
	return &Persistence{}
}

// Save stores the session, replacing any previous one.
func (p *Persistence) Save(_ context.Context, ps session.PersistedSession) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cur = ps
	p.saved = true
	return nil
}

// Load returns the stored session, or session.ErrNoPersistedSession.
func (p *Persistence) Load(_ context.Context) (session.PersistedSession, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if !p.saved {
		return session.PersistedSession{}, session.ErrNoPersistedSession
	}
	return p.cur, nil
}

// Clear removes any stored session.
func (p *Persistence) Clear(_ context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cur = session.PersistedSession{}
	p.saved = false
	return nil
}

var _ session.Persistence = (*Persistence)(nil)
