package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApplication(cmd, func(ctx context.Context, app *application) error {
				tokens, err := newTokenService(app.config.Auth)
				if err != nil {
					return err
				}
				app.resumeAutoSync(ctx)

				ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
				defer stop()

				return app.startHTTPServer(ctx, app.setupRouter(tokens))
			})
		},
	}
}

// resumeAutoSync starts the sync timer of every learner with a saved
// snapshot, so their data keeps flowing before their first request.
func (app *application) resumeAutoSync(ctx context.Context) {
	if app.sync == nil || !app.config.Sync.Enabled {
		return
	}
	lister, ok := app.repo.(interface {
		Users(ctx context.Context) ([]uuid.UUID, error)
	})
	if !ok {
		return
	}
	users, err := lister.Users(ctx)
	if err != nil {
		app.logger.Warn("failed to list learners for auto-sync", slog.String("error", err.Error()))
		return
	}
	for _, u := range users {
		if _, err := app.sync.Engine(u); err != nil {
			app.logger.Warn("failed to start auto-sync",
				slog.String("user_id", u.String()),
				slog.String("error", err.Error()))
		}
	}
	app.logger.Info("auto-sync resumed", slog.Int("learners", len(users)))
}

// startHTTPServer serves router until ctx is canceled, then shuts down
// gracefully within the configured timeout.
func (app *application) startHTTPServer(ctx context.Context, router http.Handler) error {
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", app.config.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		app.logger.Info("starting server", slog.Int("port", app.config.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		app.logger.Info("shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), app.config.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	app.logger.Info("server shutdown completed")
	return nil
}
