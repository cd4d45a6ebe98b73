package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"reelpick/internal/database"
	"reelpick/models"
	"reelpick/services/metadata"
)

// MetadataHandler serves per-movie OMDb metadata through the cache.
type MetadataHandler struct {
	movies *database.MovieRepository
	info   *database.InfoRepository
	meta   *metadata.Service
}

func NewMetadataHandler(movies *database.MovieRepository, info *database.InfoRepository, metaSvc *metadata.Service) *MetadataHandler {
	return &MetadataHandler{movies: movies, info: info, meta: metaSvc}
}

// Get returns metadata for a movie, fetching from OMDb when the cache is
// cold or stale. The fromCache field reports which path served the request.
func (h *MetadataHandler) Get(w http.ResponseWriter, r *http.Request) {
	movie, ok := h.lookupMovie(w, r)
	if !ok {
		return
	}

	info, err := h.meta.Lookup(r.Context(), movie.ID, movie.Title)
	if err != nil {
		h.writeLookupError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, info)
}

// Refresh drops the cached row and fetches live metadata.
func (h *MetadataHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	movie, ok := h.lookupMovie(w, r)
	if !ok {
		return
	}

	info, err := h.meta.Refresh(r.Context(), movie.ID, movie.Title)
	if err != nil {
		h.writeLookupError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, info)
}

// ClearCache removes a single movie's cached metadata.
func (h *MetadataHandler) ClearCache(w http.ResponseWriter, r *http.Request) {
	movie, ok := h.lookupMovie(w, r)
	if !ok {
		return
	}

	if err := h.info.DeleteInfo(movie.ID); err != nil {
		log.Printf("[metadata] clear cache for %d failed: %v", movie.ID, err)
		writeError(w, http.StatusInternalServerError, "failed to clear cache")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "cache cleared"})
}

func (h *MetadataHandler) writeLookupError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, metadata.ErrNotFound):
		writeError(w, http.StatusNotFound, "no metadata found for this title")
	case errors.Is(err, metadata.ErrInvalidAPIKey):
		writeError(w, http.StatusBadGateway, "OMDb API key is invalid")
	default:
		log.Printf("[metadata] lookup failed: %v", err)
		writeError(w, http.StatusBadGateway, "metadata service unavailable")
	}
}

func (h *MetadataHandler) lookupMovie(w http.ResponseWriter, r *http.Request) (*models.Movie, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid movie id")
		return nil, false
	}

	m, err := h.movies.GetMovie(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load movie")
		return nil, false
	}
	if m == nil {
		writeError(w, http.StatusNotFound, "movie not found")
		return nil, false
	}
	return m, true
}
