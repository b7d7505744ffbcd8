package api

import (
	"net/http"

	"github.com/phrazzld/scry-progress/internal/api/shared"
	"github.com/phrazzld/scry-progress/internal/domain"
)

// GetPreferences handles GET /preferences.
func (h *Handler) GetPreferences(w http.ResponseWriter, r *http.Request) {
	s, ok := h.userStore(w, r)
	if !ok {
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, s.Preferences())
}

// UpdatePreferences handles PUT /preferences.
func (h *Handler) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	s, ok := h.userStore(w, r)
	if !ok {
		return
	}
	var req PreferencesRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	prefs, err := s.UpdatePreferences(r.Context(), domain.Preferences{
		Theme:                req.Theme,
		Language:             req.Language,
		ContentMode:          req.ContentMode,
		NotificationsEnabled: req.NotificationsEnabled,
		EmailNotifications:   req.EmailNotifications,
	})
	if err != nil {
		HandleAPIError(w, r, err, "Failed to update preferences")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, prefs)
}

// ListFavorites handles GET /favorites.
func (h *Handler) ListFavorites(w http.ResponseWriter, r *http.Request) {
	s, ok := h.userStore(w, r)
	if !ok {
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, s.Favorites())
}

// AddFavorite handles POST /favorites.
func (h *Handler) AddFavorite(w http.ResponseWriter, r *http.Request) {
	s, ok := h.userStore(w, r)
	if !ok {
		return
	}
	var req FavoriteRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	fav := domain.Favorite{
		EntityType: req.EntityType,
		EntityID:   req.EntityID,
		Notes:      req.Notes,
		Tags:       req.Tags,
	}
	if err := s.AddFavorite(r.Context(), fav); err != nil {
		HandleAPIError(w, r, err, "Failed to add favorite")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RemoveFavorite handles DELETE /favorites/{entityType}/{entityID}.
func (h *Handler) RemoveFavorite(w http.ResponseWriter, r *http.Request) {
	s, ok := h.userStore(w, r)
	if !ok {
		return
	}
	entityType, ok := pathParam(w, r, "entityType")
	if !ok {
		return
	}
	entityID, ok := pathParam(w, r, "entityID")
	if !ok {
		return
	}
	if err := s.RemoveFavorite(r.Context(), entityType, entityID); err != nil {
		HandleAPIError(w, r, err, "Failed to remove favorite")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListNotes handles GET /notes.
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	s, ok := h.userStore(w, r)
	if !ok {
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, s.Notes())
}

// CreateNote handles POST /notes.
func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	h.saveNote(w, r, false)
}

// UpdateNote handles PUT /notes/{noteID}.
func (h *Handler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	h.saveNote(w, r, true)
}

func (h *Handler) saveNote(w http.ResponseWriter, r *http.Request, withID bool) {
	s, ok := h.userStore(w, r)
	if !ok {
		return
	}
	var note domain.Note
	if withID {
		id, ok := pathUUID(w, r, "noteID")
		if !ok {
			return
		}
		note.ID = id
	}
	var req NoteRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	note.EntityType = req.EntityType
	note.EntityID = req.EntityID
	note.Title = req.Title
	note.Content = req.Content
	note.Tags = req.Tags

	saved, err := s.SaveNote(r.Context(), note)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to save note")
		return
	}
	status := http.StatusCreated
	if withID {
		status = http.StatusOK
	}
	shared.RespondWithJSON(w, r, status, saved)
}

// GetXP handles GET /xp. XP is owned by the remote store; 404 means it was
// never pulled.
func (h *Handler) GetXP(w http.ResponseWriter, r *http.Request) {
	s, ok := h.userStore(w, r)
	if !ok {
		return
	}
	xp := s.XP()
	if xp == nil {
		shared.RespondWithError(w, r, http.StatusNotFound, "XP not synced yet")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, xp)
}
