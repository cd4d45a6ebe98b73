package youtube

import (
	"context"
	"fmt"
	"net/http"
)

// VerifyResult classifies the outcome of a liveness probe.
type VerifyResult struct {
	OK      bool
	Message string
}

// Verify validates the URL shape, then issues a lightweight HEAD probe
// (following redirects). Throttling responses are reported like any other
// non-2xx status; there is no retry.
func (c *Client) Verify(ctx context.Context, rawURL string) VerifyResult {
	if !IsWatchURL(rawURL) {
		return VerifyResult{OK: false, Message: "Invalid YouTube URL format"}
	}

	resp, err := c.head(ctx, rawURL)
	if err != nil {
		return VerifyResult{OK: false, Message: classifyTransportError(err)}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		return VerifyResult{OK: true, Message: "OK"}
	case resp.StatusCode == http.StatusNotFound:
		return VerifyResult{OK: false, Message: "Video not found (404)"}
	default:
		return VerifyResult{OK: false, Message: fmt.Sprintf("HTTP %d", resp.StatusCode)}
	}
}
