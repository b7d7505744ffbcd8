package api

import (
	"context"
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/phrazzld/scry-progress/internal/progress"
	"github.com/phrazzld/scry-progress/internal/syncengine"
)

// StoreProvider hands out the progress store of a learner.
type StoreProvider interface {
	Store(ctx context.Context, userID uuid.UUID) (*progress.Store, error)
}

// Syncer runs a sync pass for a learner.
type Syncer interface {
	SyncAll(ctx context.Context, userID uuid.UUID) (syncengine.Result, error)
}

// Handler serves the progress API.
type Handler struct {
	stores StoreProvider
	syncer Syncer
	logger *slog.Logger
}

// NewHandler creates a Handler. syncer may be nil when no remote store is
// configured; the sync endpoint then answers 503.
func NewHandler(stores StoreProvider, syncer Syncer, logger *slog.Logger) *Handler {
	if stores == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("stores cannot be nil")
	}
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil")
	}
	return &Handler{
		stores: stores,
		syncer: syncer,
		logger: logger.With(slog.String("component", "progress_handler")),
	}
}

// Routes registers the authenticated endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/cards/due", h.DueCards)
	r.Post("/cards/{cardID}", h.InitializeCard)
	r.Get("/cards/{cardID}", h.GetCard)
	r.Post("/cards/{cardID}/reviews", h.RecordReview)

	r.Post("/quizzes/{quizID}/attempts", h.RecordQuizAttempt)
	r.Get("/quizzes/{quizID}", h.GetQuiz)

	r.Get("/stats", h.GetStats)
	r.Post("/streak", h.UpdateStreak)
	r.Post("/study-time", h.AddStudyTime)
	r.Post("/progress/reset", h.ResetProgress)

	r.Get("/preferences", h.GetPreferences)
	r.Put("/preferences", h.UpdatePreferences)
	r.Get("/favorites", h.ListFavorites)
	r.Post("/favorites", h.AddFavorite)
	r.Delete("/favorites/{entityType}/{entityID}", h.RemoveFavorite)
	r.Get("/notes", h.ListNotes)
	r.Post("/notes", h.CreateNote)
	r.Put("/notes/{noteID}", h.UpdateNote)
	r.Get("/xp", h.GetXP)

	r.Post("/sync", h.Sync)

	r.Route("/adaptive", func(r chi.Router) {
		r.Post("/start", h.AdaptiveStart)
		r.Post("/answer", h.AdaptiveAnswer)
		r.Post("/next", h.AdaptiveNext)
	})
}
