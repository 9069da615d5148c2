package cmd

import (
	"fmt"

	"github.com/TanmoySin/sessionguard/internal/adapter/outbound/memory"
	"github.com/TanmoySin/sessionguard/internal/adapter/outbound/sqlite"
	"github.com/TanmoySin/sessionguard/internal/config"
	"github.com/TanmoySin/sessionguard/internal/domain/session"
)

// openPersistence returns the configured session persistence and a close
// function. "memory" selects an ephemeral store; anything else is a SQLite
// database path.
func openPersistence(cfg *config.Config) (session.Persistence, func(), error) {
	if cfg.Persistence.Path == config.MemoryPersistence {
		return memory.NewPersistence(), func() {}, nil
	}

	store, err := sqlite.NewStore(cfg.Persistence.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open session persistence: %w", err)
	}
	return store, func() { _ = store.Close() }, nil
}
