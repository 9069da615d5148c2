package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/TanmoySin/sessionguard/internal/adapter/outbound/console"
	"github.com/TanmoySin/sessionguard/internal/adapter/outbound/rest"
	"github.com/TanmoySin/sessionguard/internal/config"
	"github.com/TanmoySin/sessionguard/internal/ctxkey"
	"github.com/TanmoySin/sessionguard/internal/domain/session"
	"github.com/TanmoySin/sessionguard/internal/service"
	"github.com/TanmoySin/sessionguard/internal/telemetry"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Log in (or resume) and hold the session until it ends",
	Long: `Run the session lifecycle.

An existing persisted session is resumed and validated against the server;
otherwise --email and --password are used to log in. The process then holds
the session: it reconciles the idle budget with the server, warns shortly
before expiry, and exits when the session ends. While the warning is on
screen, pressing enter extends the session and "d" dismisses the warning.

Interrupting with Ctrl+C exits without logging out, so the session can be
resumed by the next run. Use "sessionguard logout" to end it for good.

Examples:
  # First login
  sessionguard run --email ada@example.com --password secret

  # Resume the persisted session
  sessionguard run

  # Keep extending automatically instead of prompting
  sessionguard run --auto-extend`,
	RunE: runRun,
}

var (
	flagEmail      string
	flagPassword   string
	flagAutoExtend bool
)

func init() {
	runCmd.Flags().StringVar(&flagEmail, "email", "", "email to log in with when no session can be resumed")
	runCmd.Flags().StringVar(&flagPassword, "password", "", "password to log in with when no session can be resumed")
	runCmd.Flags().BoolVar(&flagAutoExtend, "auto-extend", false, "extend the session automatically when the expiry warning fires")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if flagAutoExtend {
		cfg.Session.AutoExtend = true
	}

	logger := newLogger(cfg.Server.LogLevel)
	if configFile := config.ConfigFileUsed(); configFile != "" {
		logger.Info("loaded config", "file", configFile)
	}

	// stop() restores default signal handling so a second Ctrl+C is a hard kill.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = context.WithValue(ctx, ctxkey.LoggerKey{}, logger)

	registry := prometheus.NewRegistry()
	metrics := telemetry.NewMetrics(registry)
	if cfg.Telemetry.MetricsAddr != "" {
		startMetricsListener(ctx, cfg.Telemetry.MetricsAddr, registry, logger)
	}

	if cfg.Telemetry.TraceEnabled {
		shutdown, err := telemetry.InitTracing(os.Stderr)
		if err != nil {
			return fmt.Errorf("failed to initialize tracing: %w", err)
		}
		defer func() {
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(flushCtx); err != nil {
				logger.Warn("trace shutdown failed", "error", err)
			}
		}()
	}

	persist, closePersist, err := openPersistence(cfg)
	if err != nil {
		return err
	}
	defer closePersist()

	store := session.NewStore()
	surface := console.NewSurface(os.Stdout, logger)
	surface.SetAutoExtend(cfg.Session.AutoExtend)

	transport := rest.NewActivityTransport(nil, store, rest.WithTransportMetrics(metrics))
	api := rest.NewClient(cfg.Server.BaseURL,
		rest.WithHTTPClient(&http.Client{Transport: transport}),
		rest.WithTimeout(cfg.Server.HTTPTimeout),
		rest.WithLogger(logger),
	)

	coordinator := service.NewLogoutCoordinator(store, api, service.LogoutDeps{
		Persistence: persist,
		Cache:       surface,
		Surface:     surface,
		Notifier:    surface,
		Navigator:   surface,
		Metrics:     metrics,
	}, logger)

	reconciler := service.NewReconciler(store, api, surface, coordinator, metrics, logger, service.ReconcilerConfig{
		StatusInterval: cfg.Session.StatusInterval,
		TickInterval:   cfg.Session.TickInterval,
	})

	svc := service.NewSessionService(store, api, coordinator, reconciler, persist, metrics, logger)
	defer svc.Close()

	// Any 401 anywhere tears the session down before the response propagates.
	transport.OnUnauthorized(func(ctx context.Context) {
		coordinator.ForceLogout(ctx, session.ReasonUnauthorized)
	})
	transport.OnHint(reconciler.ObserveHint)
	surface.SetExtendFunc(svc.Extend)

	// Enter extends, "d" dismisses, while a warning is on screen. The read
	// blocks on stdin and is abandoned at process exit.
	go surface.WatchInput(ctx, os.Stdin)

	if err := establishSession(ctx, svc, logger); err != nil {
		return err
	}

	select {
	case <-svc.Done():
		logger.Info("session ended, exiting")
	case <-ctx.Done():
		// Interrupted: leave the session persisted so the next run resumes it.
		logger.Info("interrupted, session left resumable")
	}
	return nil
}

// establishSession resumes a persisted session when one exists, otherwise
// logs in with the provided flags.
func establishSession(ctx context.Context, svc *service.SessionService, logger *slog.Logger) error {
	err := svc.Resume(ctx)
	if err == nil {
		return nil
	}
	if !errors.Is(err, session.ErrNoPersistedSession) {
		return fmt.Errorf("failed to resume session: %w", err)
	}

	if flagEmail == "" || flagPassword == "" {
		return errors.New("no session to resume; provide --email and --password to log in")
	}
	if err := svc.Login(ctx, flagEmail, flagPassword); err != nil {
		return fmt.Errorf("failed to log in: %w", err)
	}
	return nil
}

// startMetricsListener serves /metrics on addr until ctx is cancelled.
func startMetricsListener(ctx context.Context, addr string, registry *prometheus.Registry, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		logger.Info("metrics listener started", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics listener failed", "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
}

func newLogger(level string) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLogLevel(level),
	}))
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
