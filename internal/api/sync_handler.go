package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/phrazzld/scry-progress/internal/api/shared"
	"github.com/phrazzld/scry-progress/internal/auth"
	"github.com/phrazzld/scry-progress/internal/platform/logger"
	"github.com/phrazzld/scry-progress/internal/syncengine"
)

// Sync handles POST /sync. The pass runs in the request; a pass requested
// while another runs is queued and reported with 409.
func (h *Handler) Sync(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	if h.syncer == nil {
		shared.RespondWithError(w, r, http.StatusServiceUnavailable, "Sync is not configured")
		return
	}
	userID, ok := shared.UserID(r.Context())
	if !ok {
		HandleAPIError(w, r, auth.ErrInvalidToken, "")
		return
	}

	result, err := h.syncer.SyncAll(r.Context(), userID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to sync")
		return
	}

	resp := SyncResponse{Result: result, Errors: result.ErrorMessages()}
	for _, e := range result.Errors {
		if errors.Is(e, syncengine.ErrSyncInProgress) {
			shared.RespondWithJSON(w, r, http.StatusConflict, resp)
			return
		}
	}

	log.Info("sync pass finished",
		slog.Bool("success", result.Success),
		slog.Int("synced", result.Synced),
		slog.Int("conflicts", result.Conflicts))
	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}
