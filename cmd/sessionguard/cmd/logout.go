package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/TanmoySin/sessionguard/internal/adapter/outbound/console"
	"github.com/TanmoySin/sessionguard/internal/adapter/outbound/rest"
	"github.com/TanmoySin/sessionguard/internal/config"
	"github.com/TanmoySin/sessionguard/internal/domain/session"
	"github.com/TanmoySin/sessionguard/internal/service"
)

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "End the persisted session",
	Long: `End the persisted session: invalidate it server-side (best effort)
and remove the local copy so the next run starts from a clean login.`,
	RunE: runLogout,
}

func init() {
	rootCmd.AddCommand(logoutCmd)
}

func runLogout(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger := newLogger(cfg.Server.LogLevel)

	persist, closePersist, err := openPersistence(cfg)
	if err != nil {
		return err
	}
	defer closePersist()

	ctx := context.Background()
	ps, err := persist.Load(ctx)
	if errors.Is(err, session.ErrNoPersistedSession) {
		fmt.Println("No session to log out.")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load persisted session: %w", err)
	}

	store := session.NewStore()
	store.SetSession(ps.User, ps.Credential, ps.SessionID)
	api := rest.NewClient(cfg.Server.BaseURL,
		rest.WithHTTPClient(&http.Client{Transport: rest.NewActivityTransport(nil, store)}),
		rest.WithTimeout(cfg.Server.HTTPTimeout),
		rest.WithLogger(logger),
	)

	surface := console.NewSurface(os.Stdout, logger)
	coordinator := service.NewLogoutCoordinator(store, api, service.LogoutDeps{
		Persistence: persist,
		Cache:       surface,
		Surface:     surface,
		Notifier:    surface,
		Navigator:   surface,
	}, logger)

	coordinator.ForceLogout(ctx, session.ReasonUserLogout)
	return nil
}
