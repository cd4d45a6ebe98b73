package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"reelpick/services/youtube"
)

// UtilityHandler serves the small helper endpoints the add/edit forms use.
type UtilityHandler struct {
	yt *youtube.Client
}

func NewUtilityHandler(yt *youtube.Client) *UtilityHandler {
	return &UtilityHandler{yt: yt}
}

// URLRequest carries a single url field.
type URLRequest struct {
	URL string `json:"url"`
}

// FetchTitle extracts the video title from a watch page. When every
// heuristic fails the response still succeeds, carrying a placeholder title
// with the video ID and fallback set.
func (h *UtilityHandler) FetchTitle(w http.ResponseWriter, r *http.Request) {
	var req URLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.URL = strings.TrimSpace(req.URL)
	if !youtube.IsWatchURL(req.URL) {
		writeError(w, http.StatusBadRequest, "not a YouTube video URL")
		return
	}

	title, err := h.yt.ExtractTitle(r.Context(), req.URL)
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]any{
			"title":    youtube.FallbackTitle(req.URL),
			"fallback": true,
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"title":    title,
		"fallback": false,
	})
}

// ValidateURL probes a video URL and reports whether it is playable.
func (h *UtilityHandler) ValidateURL(w http.ResponseWriter, r *http.Request) {
	var req URLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result := h.yt.Verify(r.Context(), strings.TrimSpace(req.URL))
	writeJSON(w, http.StatusOK, map[string]any{
		"valid":   result.OK,
		"message": result.Message,
	})
}
