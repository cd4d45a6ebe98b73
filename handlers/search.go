package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"reelpick/internal/database"
	"reelpick/models"
	"reelpick/services/jobs"
	"reelpick/services/refresh"
	"reelpick/services/youtube"
)

// SearchHandler serves YouTube discovery: search for full movies and import
// a result straight into the catalog.
type SearchHandler struct {
	movies  *database.MovieRepository
	yt      *youtube.Client
	refresh *refresh.Service
}

func NewSearchHandler(movies *database.MovieRepository, yt *youtube.Client, refreshSvc *refresh.Service) *SearchHandler {
	return &SearchHandler{movies: movies, yt: yt, refresh: refreshSvc}
}

// Search scrapes YouTube results for the query. ?limit caps the result
// count, default 10.
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeError(w, http.StatusBadRequest, "query parameter q is required")
		return
	}

	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 25 {
			limit = n
		}
	}

	results, err := h.yt.Search(r.Context(), query, limit)
	if err != nil {
		log.Printf("[search] %q failed: %v", query, err)
		writeError(w, http.StatusBadGateway, "search is unavailable")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"results": results,
		"count":   len(results),
	})
}

// ImportRequest identifies the search result to add.
type ImportRequest struct {
	VideoID string `json:"videoId"`
	Title   string `json:"title"`
}

// Import adds a search result to the catalog and queues enrichment.
func (h *SearchHandler) Import(w http.ResponseWriter, r *http.Request) {
	var req ImportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.VideoID = strings.TrimSpace(req.VideoID)
	req.Title = strings.TrimSpace(req.Title)
	if req.VideoID == "" {
		writeError(w, http.StatusBadRequest, "videoId is required")
		return
	}

	url := youtube.WatchURL(req.VideoID)
	if existing, err := h.movies.GetMovieByURL(url); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to check for duplicates")
		return
	} else if existing != nil {
		writeError(w, http.StatusConflict, "this video is already in the library")
		return
	}

	if req.Title == "" {
		req.Title = youtube.FallbackTitle(url)
	}

	session, _ := sessionFromContext(r.Context())
	movie := &models.Movie{
		Title:  req.Title,
		URL:    url,
		UserID: session.UserID,
	}
	if err := h.movies.CreateMovie(movie); err != nil {
		log.Printf("[search] import failed: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to import movie")
		return
	}

	if _, err := h.refresh.SubmitEnrichMovie(movie); err != nil && !errors.Is(err, jobs.ErrAlreadyRunning) {
		log.Printf("[search] enrichment for movie %d not queued: %v", movie.ID, err)
	}

	writeJSON(w, http.StatusCreated, movie)
}
