package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"math/rand"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"reelpick/internal/database"
	"reelpick/models"
	"reelpick/services/jobs"
	"reelpick/services/refresh"
	"reelpick/services/youtube"
)

// MoviesHandler handles the catalog CRUD endpoints.
type MoviesHandler struct {
	movies  *database.MovieRepository
	info    *database.InfoRepository
	yt      *youtube.Client
	refresh *refresh.Service
}

func NewMoviesHandler(movies *database.MovieRepository, info *database.InfoRepository, yt *youtube.Client, refreshSvc *refresh.Service) *MoviesHandler {
	return &MoviesHandler{movies: movies, info: info, yt: yt, refresh: refreshSvc}
}

// MovieRequest represents a create or edit body.
type MovieRequest struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// List returns the catalog with cached metadata joined in. Optional query
// parameters: genre, sort (title|year|rating|add_date), order (asc|desc).
func (h *MoviesHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	genre := q.Get("genre")
	sortBy := q.Get("sort")
	order := q.Get("order")

	var (
		movies []models.MovieWithInfo
		err    error
	)
	if genre != "" || sortBy != "" {
		movies, err = h.info.ListByGenre(genre, sortBy, order)
	} else {
		movies, err = h.info.ListWithInfo()
	}
	if err != nil {
		log.Printf("[movies] list failed: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to list movies")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"movies": movies,
		"count":  len(movies),
	})
}

// Get returns a single catalog entry.
func (h *MoviesHandler) Get(w http.ResponseWriter, r *http.Request) {
	movie, ok := h.movieFromPath(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, movie)
}

// Create adds a movie. A missing title is recovered from the video page, or
// falls back to a placeholder carrying the video ID. The enrichment pipeline
// (verify, metadata, restriction check) runs in the background.
func (h *MoviesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req MovieRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.URL = strings.TrimSpace(req.URL)
	req.Title = strings.TrimSpace(req.Title)

	if req.URL == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}
	if !youtube.IsWatchURL(req.URL) {
		writeError(w, http.StatusBadRequest, "not a YouTube video URL")
		return
	}

	if existing, err := h.movies.GetMovieByURL(req.URL); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to check for duplicates")
		return
	} else if existing != nil {
		writeError(w, http.StatusConflict, "this video is already in the library")
		return
	}

	if req.Title == "" {
		title, err := h.yt.ExtractTitle(r.Context(), req.URL)
		if err != nil {
			title = youtube.FallbackTitle(req.URL)
			log.Printf("[movies] title extraction failed for %s, using fallback: %v", req.URL, err)
		}
		req.Title = title
	}

	session, _ := sessionFromContext(r.Context())
	movie := &models.Movie{
		Title:  req.Title,
		URL:    req.URL,
		UserID: session.UserID,
	}
	if err := h.movies.CreateMovie(movie); err != nil {
		log.Printf("[movies] create failed: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to create movie")
		return
	}

	if _, err := h.refresh.SubmitEnrichMovie(movie); err != nil && !errors.Is(err, jobs.ErrAlreadyRunning) {
		log.Printf("[movies] enrichment for movie %d not queued: %v", movie.ID, err)
	}

	writeJSON(w, http.StatusCreated, movie)
}

// Update edits title and URL. A changed URL resets the verification state and
// re-runs enrichment; the stale metadata row is dropped.
func (h *MoviesHandler) Update(w http.ResponseWriter, r *http.Request) {
	movie, ok := h.movieFromPath(w, r)
	if !ok {
		return
	}

	var req MovieRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.URL = strings.TrimSpace(req.URL)
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		req.Title = movie.Title
	}
	if req.URL == "" {
		req.URL = movie.URL
	}
	if !youtube.IsWatchURL(req.URL) {
		writeError(w, http.StatusBadRequest, "not a YouTube video URL")
		return
	}

	urlChanged := req.URL != movie.URL
	titleChanged := req.Title != movie.Title

	if urlChanged {
		if existing, err := h.movies.GetMovieByURL(req.URL); err != nil {
			writeError(w, http.StatusInternalServerError, "failed to check for duplicates")
			return
		} else if existing != nil && existing.ID != movie.ID {
			writeError(w, http.StatusConflict, "this video is already in the library")
			return
		}
	}

	verified := movie.Verified && !urlChanged
	if err := h.movies.UpdateMovie(movie.ID, req.Title, req.URL, verified); err != nil {
		log.Printf("[movies] update %d failed: %v", movie.ID, err)
		writeError(w, http.StatusInternalServerError, "failed to update movie")
		return
	}

	if urlChanged || titleChanged {
		if err := h.info.DeleteInfo(movie.ID); err != nil {
			log.Printf("[movies] clearing stale info for %d failed: %v", movie.ID, err)
		}
		updated := *movie
		updated.Title = req.Title
		updated.URL = req.URL
		if _, err := h.refresh.SubmitEnrichMovie(&updated); err != nil && !errors.Is(err, jobs.ErrAlreadyRunning) {
			log.Printf("[movies] enrichment for movie %d not queued: %v", movie.ID, err)
		}
	}

	fresh, err := h.movies.GetMovie(movie.ID)
	if err != nil || fresh == nil {
		writeError(w, http.StatusInternalServerError, "failed to reload movie")
		return
	}
	writeJSON(w, http.StatusOK, fresh)
}

// Delete removes a movie; the metadata cache row goes with it via the
// foreign key cascade.
func (h *MoviesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	movie, ok := h.movieFromPath(w, r)
	if !ok {
		return
	}

	if err := h.movies.DeleteMovie(movie.ID); err != nil {
		log.Printf("[movies] delete %d failed: %v", movie.ID, err)
		writeError(w, http.StatusInternalServerError, "failed to delete movie")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// Random returns one random entry, for the "pick something for tonight"
// button. Optional ?verified=true limits the pool to verified entries.
func (h *MoviesHandler) Random(w http.ResponseWriter, r *http.Request) {
	movies, err := h.movies.ListMovies(0, 0)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list movies")
		return
	}

	if r.URL.Query().Get("verified") == "true" {
		filtered := movies[:0]
		for _, m := range movies {
			if m.Verified {
				filtered = append(filtered, m)
			}
		}
		movies = filtered
	}

	if len(movies) == 0 {
		writeError(w, http.StatusNotFound, "no movies available")
		return
	}

	writeJSON(w, http.StatusOK, movies[rand.Intn(len(movies))])
}

// Verify re-checks a single movie's URL synchronously.
func (h *MoviesHandler) Verify(w http.ResponseWriter, r *http.Request) {
	movie, ok := h.movieFromPath(w, r)
	if !ok {
		return
	}

	result := h.yt.Verify(r.Context(), movie.URL)
	if err := h.movies.SetVerification(movie.ID, result.OK, timeNow()); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to record verification")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"verified": result.OK,
		"message":  result.Message,
	})
}

func (h *MoviesHandler) movieFromPath(w http.ResponseWriter, r *http.Request) (*models.Movie, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid movie id")
		return nil, false
	}

	movie, err := h.movies.GetMovie(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load movie")
		return nil, false
	}
	if movie == nil {
		writeError(w, http.StatusNotFound, "movie not found")
		return nil, false
	}
	return movie, true
}
