package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/phrazzld/scry-progress/internal/api/shared"
	"github.com/phrazzld/scry-progress/internal/domain"
	"github.com/phrazzld/scry-progress/internal/platform/logger"
	"github.com/phrazzld/scry-progress/internal/progress"
)

// InitializeCard handles POST /cards/{cardID}. Initializing a known card
// leaves it untouched.
func (h *Handler) InitializeCard(w http.ResponseWriter, r *http.Request) {
	s, ok := h.userStore(w, r)
	if !ok {
		return
	}
	cardID, ok := pathParam(w, r, "cardID")
	if !ok {
		return
	}

	if err := s.InitializeCard(r.Context(), cardID); err != nil {
		HandleAPIError(w, r, err, "Failed to initialize card")
		return
	}
	respondWithCard(w, r, s, http.StatusCreated, cardID)
}

// GetCard handles GET /cards/{cardID}.
func (h *Handler) GetCard(w http.ResponseWriter, r *http.Request) {
	s, ok := h.userStore(w, r)
	if !ok {
		return
	}
	cardID, ok := pathParam(w, r, "cardID")
	if !ok {
		return
	}
	respondWithCard(w, r, s, http.StatusOK, cardID)
}

func respondWithCard(w http.ResponseWriter, r *http.Request, s *progress.Store, status int, cardID string) {
	sched, err := s.Schedule(cardID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	resp := CardResponse{Schedule: sched}
	if p, err := s.Progress(cardID); err == nil {
		resp.Progress = p
	}
	shared.RespondWithJSON(w, r, status, resp)
}

// RecordReview handles POST /cards/{cardID}/reviews.
func (h *Handler) RecordReview(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	s, ok := h.userStore(w, r)
	if !ok {
		return
	}
	cardID, ok := pathParam(w, r, "cardID")
	if !ok {
		return
	}
	var req ReviewRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	result, err := s.RecordReview(r.Context(), cardID, domain.Quality(*req.Quality))
	if err != nil {
		HandleAPIError(w, r, err, "Failed to record review")
		return
	}

	log.Debug("recorded review",
		slog.String("card_id", cardID),
		slog.Int("quality", *req.Quality),
		slog.Int("interval", result.Schedule.Interval))
	shared.RespondWithJSON(w, r, http.StatusOK, result)
}

// DueCards handles GET /cards/due. The optional date query parameter is a
// calendar day (YYYY-MM-DD) in the configured timezone; it defaults to today.
func (h *Handler) DueCards(w http.ResponseWriter, r *http.Request) {
	s, ok := h.userStore(w, r)
	if !ok {
		return
	}

	date := s.Now()
	if q := r.URL.Query().Get("date"); q != "" {
		d, err := time.ParseInLocation(dateLayout, q, s.Location())
		if err != nil {
			shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid date: expected YYYY-MM-DD", err)
			return
		}
		date = d
	}

	cards := s.CardsDueOn(date)
	if cards == nil {
		cards = []*domain.ReviewSchedule{}
	}
	shared.RespondWithJSON(w, r, http.StatusOK, DueCardsResponse{
		Date:  date.Format(dateLayout),
		Cards: cards,
	})
}
