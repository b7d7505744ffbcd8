package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/phrazzld/scry-progress/internal/api/shared"
	"github.com/phrazzld/scry-progress/internal/auth"
	"github.com/phrazzld/scry-progress/internal/domain"
	"github.com/phrazzld/scry-progress/internal/platform/logger"
	"github.com/phrazzld/scry-progress/internal/progress"
)

// userStore resolves the authenticated learner's progress store. It writes
// an error response and returns false when that is not possible.
func (h *Handler) userStore(w http.ResponseWriter, r *http.Request) (*progress.Store, bool) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := shared.UserID(r.Context())
	if !ok {
		log.Warn("user ID not found or invalid in request context")
		HandleAPIError(w, r, auth.ErrInvalidToken, "")
		return nil, false
	}

	s, err := h.stores.Store(r.Context(), userID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to load progress")
		return nil, false
	}
	return s, true
}

// decodeAndValidate reads the JSON body into v and validates it.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := shared.DecodeJSON(w, r, v); err != nil {
		msg := "Invalid request format"
		if errors.Is(err, shared.ErrEmptyBody) {
			msg = GetSafeErrorMessage(err)
		}
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, msg, err)
		return false
	}
	if err := shared.ValidateRequest(v); err != nil {
		HandleValidationError(w, r, err)
		return false
	}
	return true
}

// pathParam returns a required URL parameter, writing a 400 when it is empty.
func pathParam(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	v := chi.URLParam(r, name)
	if v == "" {
		logger.FromContext(r.Context()).Warn("missing path parameter", slog.String("param_name", name))
		shared.RespondWithError(w, r, http.StatusBadRequest, "Missing "+name)
		return "", false
	}
	return v, true
}

// pathUUID parses a UUID URL parameter.
func pathUUID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	v, ok := pathParam(w, r, name)
	if !ok {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(v)
	if err != nil {
		logger.FromContext(r.Context()).Warn("invalid path parameter",
			slog.String("param_name", name),
			slog.String("value", v))
		HandleAPIError(w, r, domain.ErrValidation, "")
		return uuid.Nil, false
	}
	return id, true
}
