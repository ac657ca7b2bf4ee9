package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/aibox/internal/client"
	"github.com/JonMunkholm/aibox/internal/core"
	"github.com/JonMunkholm/aibox/internal/web"
)

const pingTimeout = 5 * time.Second

func newServeCommand(a *app) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the web UI",
		Long: `Serve the web UI on SERVER_HOST:SERVER_PORT.

Without AIBOX_BACKEND_URL the server still starts, but every page explains
that the deployment is misconfigured.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("port") {
				a.cfg.Server.Port = port
			}
			return a.serve(cmd.Context())
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "listen port (overrides SERVER_PORT)")
	return cmd
}

func (a *app) serve(ctx context.Context) error {
	cfg := a.cfg

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"service_configured", cfg.Service.BaseURL != "",
		"legacy_endpoint", cfg.Service.LegacyEndpoint,
		"max_concurrent", cfg.Service.MaxConcurrent,
		"rate_limit_enabled", cfg.Rate.Enabled,
	)

	limiter := core.NewSubmitLimiter(cfg.Service.MaxConcurrent, cfg.Service.MaxWait)

	var cleaner core.Cleaner
	if a.cfgErr != nil {
		slog.Error("cleaning service is not configured, serving misconfiguration page", "error", a.cfgErr)
	} else {
		c, err := client.New(cfg.Service.BaseURL,
			client.WithTimeout(cfg.Service.Timeout),
			client.WithLimiter(limiter),
			client.WithLogger(slog.Default()),
		)
		if err != nil {
			return &exitError{code: exitMisconfigured, msg: err.Error()}
		}
		cleaner = c

		pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		if err := c.Ping(pingCtx); err != nil {
			slog.Warn("cleaning service health check failed", "error", err)
		} else {
			slog.Info("cleaning service reachable")
		}
		cancel()
	}

	server := web.NewServer(cfg, cleaner)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start(cfg.Server.Addr())
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-sigCh:
	}

	slog.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	// Wait for outstanding cleaning calls (with timeout)
	if status := limiter.Status(); status.Active > 0 {
		slog.Info("waiting for submissions to complete", "active", status.Active)
		if err := limiter.WaitForDrain(shutdownCtx); err != nil {
			slog.Warn("submissions did not complete in time", "error", err)
		} else {
			slog.Info("all submissions completed")
		}
	}

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
		return err
	}
	slog.Info("server stopped")
	return nil
}
