package youtube

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Browser-like User-Agent; YouTube serves a stripped-down page to unknown
// clients, which defeats the extraction heuristics.
const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"

// DefaultTimeout bounds each individual request to YouTube.
const DefaultTimeout = 10 * time.Second

// Client fetches YouTube pages for title extraction, liveness probes and
// restriction checks.
type Client struct {
	httpc *http.Client
}

// NewClient creates a YouTube client. Passing nil installs a default client
// with a 10 second timeout.
func NewClient(httpc *http.Client) *Client {
	if httpc == nil {
		httpc = &http.Client{Timeout: DefaultTimeout}
	}
	return &Client{httpc: httpc}
}

// IsWatchURL reports whether the URL belongs to one of the two accepted
// hostname families.
func IsWatchURL(rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return false
	}
	host := strings.ToLower(parsed.Host)
	return strings.Contains(host, "youtube.com") || strings.Contains(host, "youtu.be")
}

// VideoID extracts the video identifier from a watch URL, or "" when the URL
// has no recognizable identifier.
func VideoID(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	host := strings.ToLower(parsed.Host)
	switch {
	case strings.Contains(host, "youtube.com"):
		return parsed.Query().Get("v")
	case strings.Contains(host, "youtu.be"):
		return strings.TrimPrefix(parsed.Path, "/")
	}
	return ""
}

// FallbackTitle builds a synthetic display title from the video identifier,
// used when every extraction heuristic fails.
func FallbackTitle(rawURL string) string {
	id := VideoID(rawURL)
	if id == "" {
		id = "unknown"
	}
	return "YouTube Video " + id
}

// WatchURL builds a canonical watch URL for a video identifier.
func WatchURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + videoID
}

// ThumbnailURL returns the standard high-quality thumbnail for a video.
func ThumbnailURL(videoID string) string {
	return "https://img.youtube.com/vi/" + videoID + "/hqdefault.jpg"
}

func (c *Client) get(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	return c.httpc.Do(req)
}

func (c *Client) head(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	return c.httpc.Do(req)
}

// classifyTransportError maps a transport failure onto the fixed diagnostic
// vocabulary surfaced to users.
func classifyTransportError(err error) string {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return "request timeout"
	}
	return "connection error"
}
