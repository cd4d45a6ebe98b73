package handlers

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/gabriel-vasile/mimetype"

	"reelpick/utils"
)

const (
	posterMaxBytes     = 5 << 20
	posterFetchTimeout = 15 * time.Second
)

// ImagesHandler proxies poster images so the browser never talks to OMDb's
// image host directly (mixed-content and hotlink issues).
type ImagesHandler struct {
	httpc *http.Client
}

func NewImagesHandler(httpc *http.Client) *ImagesHandler {
	if httpc == nil {
		httpc = &http.Client{Timeout: posterFetchTimeout}
	}
	return &ImagesHandler{httpc: httpc}
}

// Poster fetches ?url= and streams it back with a sniffed content type.
// Transient upstream failures are retried a couple of times before giving
// up; only http(s) image URLs are accepted.
func (h *ImagesHandler) Poster(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("url")
	if raw == "" || raw == "N/A" {
		writeError(w, http.StatusBadRequest, "url parameter is required")
		return
	}

	parsed, err := url.Parse(raw)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		writeError(w, http.StatusBadRequest, "invalid image url")
		return
	}

	// OMDb occasionally hands out poster URLs with raw spaces.
	encoded, err := utils.EncodeURLWithSpaces(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid image url")
		return
	}

	body, err := h.fetch(r.Context(), encoded)
	if err != nil {
		log.Printf("[images] poster fetch failed for %s: %v", raw, err)
		writeError(w, http.StatusBadGateway, "failed to fetch image")
		return
	}

	mtype := mimetype.Detect(body)
	if !strings.HasPrefix(mtype.String(), "image/") {
		writeError(w, http.StatusBadGateway, "upstream did not return an image")
		return
	}

	w.Header().Set("Content-Type", mtype.String())
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.Write(body)
}

func (h *ImagesHandler) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	var body []byte

	err := retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
			if err != nil {
				return retry.Unrecoverable(err)
			}

			resp, err := h.httpc.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			switch {
			case resp.StatusCode == http.StatusOK:
			case resp.StatusCode >= 500:
				return fmt.Errorf("upstream returned %d", resp.StatusCode)
			default:
				return retry.Unrecoverable(fmt.Errorf("upstream returned %d", resp.StatusCode))
			}

			body, err = io.ReadAll(io.LimitReader(resp.Body, posterMaxBytes))
			return err
		},
		retry.Context(ctx),
		retry.Attempts(3),
		retry.Delay(200*time.Millisecond),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return nil, err
	}
	return body, nil
}
