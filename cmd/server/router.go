package main

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/phrazzld/scry-progress/internal/api"
	apiMiddleware "github.com/phrazzld/scry-progress/internal/api/middleware"
	"github.com/phrazzld/scry-progress/internal/auth"
)

// setupRouter creates and configures the application router with all routes and middleware.
func (app *application) setupRouter(tokens auth.TokenValidator) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.TraceMiddleware(app.logger))

	// A nil *Manager must not reach the handler as a non-nil interface.
	var syncer api.Syncer
	if app.sync != nil {
		syncer = app.sync
	}
	handler := api.NewHandler(app.registry, syncer, app.logger)
	authMiddleware := apiMiddleware.NewAuthMiddleware(tokens)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(authMiddleware.Authenticate)
		handler.Routes(r)
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("failed to write health check response", slog.String("error", err.Error()))
		}
	})

	return r
}
