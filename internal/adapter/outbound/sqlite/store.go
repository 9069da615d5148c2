// Package sqlite persists the rehydratable session slice in a local SQLite
// database, so a restarted process can resume without asking the user to
// log in again.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/TanmoySin/sessionguard/internal/domain/session"
)

const schema = `
CREATE TABLE IF NOT EXISTS session_state (
	id         INTEGER PRIMARY KEY CHECK (id = 1),
	payload    TEXT NOT NULL,
	updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now'))
);`

// Store persists at most one session in a single-row table. Save replaces
// the row, Load reads it, Clear deletes it.
type Store struct {
	db *sql.DB
}

// NewStore opens (creating if needed) the database at path and ensures the
// schema exists. The parent directory is created with owner-only access
// since the payload contains a credential.
func NewStore(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("creating state directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening session database: %w", err)
	}

	// SQLite allows one writer; a larger pool just queues on its lock.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("configuring session database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing session schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Save stores the session, replacing any previous one.
func (s *Store) Save(ctx context.Context, ps session.PersistedSession) error {
	payload, err := json.Marshal(ps)
	if err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO session_state (id, payload) VALUES (1, ?)
		 ON CONFLICT(id) DO UPDATE SET
			payload = excluded.payload,
			updated_at = strftime('%Y-%m-%dT%H:%M:%fZ','now')`,
		string(payload))
	if err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	return nil
}

// Load returns the stored session, or session.ErrNoPersistedSession.
func (s *Store) Load(ctx context.Context) (session.PersistedSession, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		"SELECT payload FROM session_state WHERE id = 1").Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return session.PersistedSession{}, session.ErrNoPersistedSession
	}
	if err != nil {
		return session.PersistedSession{}, fmt.Errorf("loading session: %w", err)
	}

	var ps session.PersistedSession
	if err := json.Unmarshal([]byte(payload), &ps); err != nil {
		return session.PersistedSession{}, fmt.Errorf("decoding session: %w", err)
	}
	return ps, nil
}

// Clear removes any stored session.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM session_state WHERE id = 1"); err != nil {
		return fmt.Errorf("clearing session: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

var _ session.Persistence = (*Store)(nil)
