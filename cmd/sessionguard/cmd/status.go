package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/TanmoySin/sessionguard/internal/adapter/outbound/rest"
	"github.com/TanmoySin/sessionguard/internal/config"
	"github.com/TanmoySin/sessionguard/internal/domain/session"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current session state",
	Long: `Show whether a persisted session exists and, if so, what the server
currently says about it: active or not, and how much idle time remains.`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	persist, closePersist, err := openPersistence(cfg)
	if err != nil {
		return err
	}
	defer closePersist()

	ctx := context.Background()
	ps, err := persist.Load(ctx)
	if errors.Is(err, session.ErrNoPersistedSession) {
		fmt.Println("No session. Run \"sessionguard run\" to log in.")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load persisted session: %w", err)
	}

	fmt.Printf("Session %s for %s (%s)\n", ps.SessionID, ps.User.Email, ps.User.Role)

	// The credential has to ride along for the status call to be about
	// this session.
	store := session.NewStore()
	store.SetSession(ps.User, ps.Credential, ps.SessionID)
	api := rest.NewClient(cfg.Server.BaseURL,
		rest.WithHTTPClient(&http.Client{Transport: rest.NewActivityTransport(nil, store)}),
		rest.WithTimeout(cfg.Server.HTTPTimeout),
	)

	status, err := api.SessionStatus(ctx)
	if err != nil {
		return fmt.Errorf("failed to check session status: %w", err)
	}
	if !status.Active {
		fmt.Println("Server reports the session is no longer active.")
		return nil
	}
	fmt.Printf("Active, idle expiry in %s\n", status.IdleRemaining.Round(time.Second))
	if status.ShouldWarn {
		fmt.Println("Warning: the session is close to idle expiry.")
	}
	return nil
}
