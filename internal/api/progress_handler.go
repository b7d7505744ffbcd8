package api

import (
	"net/http"

	"github.com/phrazzld/scry-progress/internal/api/shared"
	"github.com/phrazzld/scry-progress/internal/domain"
)

// RecordQuizAttempt handles POST /quizzes/{quizID}/attempts.
func (h *Handler) RecordQuizAttempt(w http.ResponseWriter, r *http.Request) {
	s, ok := h.userStore(w, r)
	if !ok {
		return
	}
	quizID, ok := pathParam(w, r, "quizID")
	if !ok {
		return
	}
	var req QuizAttemptRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	qp, err := s.RecordQuizAttempt(r.Context(), quizID, domain.QuizAttempt{
		QuizID:    quizID,
		Score:     *req.Score,
		MaxScore:  *req.MaxScore,
		Answers:   req.Answers,
		TimeSpent: req.TimeSpent,
	})
	if err != nil {
		HandleAPIError(w, r, err, "Failed to record quiz attempt")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusCreated, qp)
}

// GetQuiz handles GET /quizzes/{quizID}.
func (h *Handler) GetQuiz(w http.ResponseWriter, r *http.Request) {
	s, ok := h.userStore(w, r)
	if !ok {
		return
	}
	quizID, ok := pathParam(w, r, "quizID")
	if !ok {
		return
	}

	qp, err := s.QuizProgress(quizID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, qp)
}

// GetStats handles GET /stats.
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	s, ok := h.userStore(w, r)
	if !ok {
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, s.Stats())
}

// UpdateStreak handles POST /streak.
func (h *Handler) UpdateStreak(w http.ResponseWriter, r *http.Request) {
	s, ok := h.userStore(w, r)
	if !ok {
		return
	}
	streak, err := s.UpdateStreak(r.Context())
	if err != nil {
		HandleAPIError(w, r, err, "Failed to update streak")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, StreakResponse{Streak: streak})
}

// AddStudyTime handles POST /study-time.
func (h *Handler) AddStudyTime(w http.ResponseWriter, r *http.Request) {
	s, ok := h.userStore(w, r)
	if !ok {
		return
	}
	var req StudyTimeRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	total, err := s.AddStudyTime(r.Context(), req.Minutes)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to add study time")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, StudyTimeResponse{TotalStudyTime: total})
}

// ResetProgress handles POST /progress/reset.
func (h *Handler) ResetProgress(w http.ResponseWriter, r *http.Request) {
	s, ok := h.userStore(w, r)
	if !ok {
		return
	}
	if err := s.ResetProgress(r.Context()); err != nil {
		HandleAPIError(w, r, err, "Failed to reset progress")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
