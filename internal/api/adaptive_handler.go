package api

import (
	"net/http"

	"github.com/phrazzld/scry-progress/internal/api/shared"
	"github.com/phrazzld/scry-progress/internal/domain"
	"github.com/phrazzld/scry-progress/internal/domain/adaptive"
)

// The adaptive endpoints are stateless: the client holds the session state
// and sends it back with every answer.

// AdaptiveStart handles POST /adaptive/start.
func (h *Handler) AdaptiveStart(w http.ResponseWriter, r *http.Request) {
	var req AdaptiveStartRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	if !req.QuizDifficulty.Valid() {
		HandleAPIError(w, r, domain.ErrInvalidDifficulty, "")
		return
	}

	st, err := adaptive.NewState(adaptive.InitialDifficulty(req.QuizDifficulty, req.LearnerLevel))
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, newAdaptiveStateResponse(st))
}

// AdaptiveAnswer handles POST /adaptive/answer.
func (h *Handler) AdaptiveAnswer(w http.ResponseWriter, r *http.Request) {
	var req AdaptiveAnswerRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	st, err := adaptive.Advance(req.State, req.Correct, req.TimeSpent)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, newAdaptiveStateResponse(st))
}

// AdaptiveNext handles POST /adaptive/next.
func (h *Handler) AdaptiveNext(w http.ResponseWriter, r *http.Request) {
	var req AdaptiveNextRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	if !req.State.CurrentDifficulty.Valid() {
		HandleAPIError(w, r, domain.ErrInvalidDifficulty, "")
		return
	}

	q, ok := adaptive.SelectNext(req.Pool, req.State, nil)
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnprocessableEntity, "No questions available")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, AdaptiveNextResponse{
		Question:   q,
		Difficulty: req.State.CurrentDifficulty,
		MinPoints:  adaptive.MinPoints(req.State.CurrentDifficulty),
	})
}
