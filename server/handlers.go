package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"echofm/config"
	"echofm/core/catalog"
	"echofm/core/library"
	"echofm/logger"
	"echofm/model"
	"echofm/repository"

	"github.com/gorilla/mux"
)

// APIHandler carries the services behind the HTTP surface.
type APIHandler struct {
	catalog *catalog.Service
	library *library.Service
	users   *repository.UserRepository
	cfg     *config.Config
}

// NewAPIHandler creates the handler set.
func NewAPIHandler(
	catalogService *catalog.Service,
	libraryService *library.Service,
	users *repository.UserRepository,
	cfg *config.Config,
) *APIHandler {
	return &APIHandler{
		catalog: catalogService,
		library: libraryService,
		users:   users,
		cfg:     cfg,
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			logger.Error("Failed to encode response", logger.ErrorField(err))
		}
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// SearchAlbumsHandler handles GET /api/search/albums?q=
func (h *APIHandler) SearchAlbumsHandler(w http.ResponseWriter, r *http.Request) {
	h.search(w, r, h.catalog.SearchAlbums)
}

// SearchTracksHandler handles GET /api/search/tracks?q=
func (h *APIHandler) SearchTracksHandler(w http.ResponseWriter, r *http.Request) {
	h.search(w, r, h.catalog.SearchTracks)
}

// SearchArtistsHandler handles GET /api/search/artists?q=
func (h *APIHandler) SearchArtistsHandler(w http.ResponseWriter, r *http.Request) {
	h.search(w, r, h.catalog.SearchArtists)
}

func (h *APIHandler) search(w http.ResponseWriter, r *http.Request,
	fn func(ctx context.Context, query string) (model.SearchResponse, error)) {

	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, http.StatusBadRequest, "missing query parameter 'q'")
		return
	}

	result, err := fn(r.Context(), query)
	if err != nil {
		logger.Error("Search failed", logger.String("query", query), logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// GetAlbumHandler handles GET /api/media/albums/{id}
func (h *APIHandler) GetAlbumHandler(w http.ResponseWriter, r *http.Request) {
	h.resolveKind(w, r, h.catalog.GetAlbum)
}

// GetTrackHandler handles GET /api/media/tracks/{id}
func (h *APIHandler) GetTrackHandler(w http.ResponseWriter, r *http.Request) {
	h.resolveKind(w, r, h.catalog.GetTrack)
}

// GetArtistHandler handles GET /api/media/artists/{id}
func (h *APIHandler) GetArtistHandler(w http.ResponseWriter, r *http.Request) {
	h.resolveKind(w, r, h.catalog.GetArtist)
}

// ResolveHandler handles GET /api/media/{id}, detecting the kind upstream.
func (h *APIHandler) ResolveHandler(w http.ResponseWriter, r *http.Request) {
	h.resolveKind(w, r, h.catalog.Resolve)
}

func (h *APIHandler) resolveKind(w http.ResponseWriter, r *http.Request,
	fn func(ctx context.Context, id string) (*model.MediaResponse, error)) {

	id := mux.Vars(r)["id"]

	media, err := fn(r.Context(), id)
	if err != nil {
		logger.Error("Media resolution failed", logger.String("id", id), logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if media == nil {
		writeError(w, http.StatusNotFound, "media not found")
		return
	}

	writeJSON(w, http.StatusOK, media)
}

// FeedHandler handles GET /api/feed?page=&size=
func (h *APIHandler) FeedHandler(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", 0)
	size := queryInt(r, "size", 20)

	result, err := h.catalog.DiscoveryFeed(r.Context(), page, size)
	if err != nil {
		logger.Error("Feed generation failed", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return val
}
