package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/TanmoySin/sessionguard/internal/domain/auth"
	"github.com/TanmoySin/sessionguard/internal/domain/session"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "state", "session.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStore_LoadEmpty(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Load(context.Background())
	if !errors.Is(err, session.ErrNoPersistedSession) {
		t.Errorf("Load on empty store = %v, want ErrNoPersistedSession", err)
	}
}

func TestStore_SaveLoad(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	ps := session.PersistedSession{
		User: auth.User{
			ID:    "u-1",
			Email: "ada@example.com",
			Name:  "Ada",
			Role:  auth.RoleManager,
		},
		Credential: "tok-abc",
		SessionID:  "sess-1",
	}
	if err := store.Save(ctx, ps); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got != ps {
		t.Errorf("Load = %+v, want %+v", got, ps)
	}
}

func TestStore_SaveReplaces(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first := session.PersistedSession{Credential: "tok-1", SessionID: "sess-1"}
	second := session.PersistedSession{Credential: "tok-2", SessionID: "sess-2"}

	if err := store.Save(ctx, first); err != nil {
		t.Fatalf("Save first: %v", err)
	}
	if err := store.Save(ctx, second); err != nil {
		t.Fatalf("Save second: %v", err)
	}

	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Credential != "tok-2" || got.SessionID != "sess-2" {
		t.Errorf("Load after replace = %+v, want second session", got)
	}
}

func TestStore_Clear(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Save(ctx, session.PersistedSession{Credential: "tok"}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := store.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, err := store.Load(ctx); !errors.Is(err, session.ErrNoPersistedSession) {
		t.Errorf("Load after Clear = %v, want ErrNoPersistedSession", err)
	}

	// Clearing an already-empty store is not an error.
	if err := store.Clear(ctx); err != nil {
		t.Errorf("Clear on empty store = %v, want nil", err)
	}
}

func TestStore_SurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "session.db")
	ctx := context.Background()

	store, err := NewStore(path)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	ps := session.PersistedSession{Credential: "tok-persist", SessionID: "sess-p"}
	if err := store.Save(ctx, ps); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := NewStore(path)
	if err != nil {
		t.Fatalf("NewStore reopen: %v", err)
	}
	defer reopened.Close()

	got, err := reopened.Load(ctx)
	if err != nil {
		t.Fatalf("Load after reopen: %v", err)
	}
	if got != ps {
		t.Errorf("Load after reopen = %+v, want %+v", got, ps)
	}
}
