package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"echofm/core/library"
	"echofm/logger"

	"github.com/gorilla/mux"
)

// ListLibraryHandler handles GET /api/library.
func (h *APIHandler) ListLibraryHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := UserIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	entries, err := h.library.List(r.Context(), userID)
	if err != nil {
		logger.Error("Failed to list library", logger.Int64("userId", userID), logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, entries)
}

// UpsertLibraryHandler handles PUT /api/library/{mediaId}.
func (h *APIHandler) UpsertLibraryHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := UserIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	mediaID := mux.Vars(r)["mediaId"]

	var input library.EntryInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	entry, err := h.library.AddOrUpdate(r.Context(), userID, mediaID, input)
	if err != nil {
		if errors.Is(err, library.ErrRatingOutOfRange) {
			writeError(w, http.StatusBadRequest, "rating must be between 0 and 10")
			return
		}
		logger.Error("Failed to save library entry",
			logger.Int64("userId", userID),
			logger.String("mediaId", mediaID),
			logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if entry == nil {
		writeError(w, http.StatusNotFound, "media not found")
		return
	}

	writeJSON(w, http.StatusOK, entry)
}

// RemoveLibraryHandler handles DELETE /api/library/{mediaId}.
func (h *APIHandler) RemoveLibraryHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := UserIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	mediaID := mux.Vars(r)["mediaId"]

	if err := h.library.Remove(r.Context(), userID, mediaID); err != nil {
		logger.Error("Failed to remove library entry",
			logger.Int64("userId", userID),
			logger.String("mediaId", mediaID),
			logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
