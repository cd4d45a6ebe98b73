package youtube

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Marker phrases YouTube embeds in pages for gated or withdrawn content.
// Matched case-insensitively against the raw page body.
var restrictionMarkers = []string{
	"this video may be inappropriate for some users",
	"sign in to confirm your age",
	"this video is not available",
	"age-restricted",
	"content warning",
	"age_gated",
	"confirm your age",
	"restricted content",
	"content_age_gate",
}

var unavailableMarkers = []string{
	"video is not available",
	"private video",
}

// RestrictionResult reports whether a video appears to be access-gated.
type RestrictionResult struct {
	Restricted bool
	Message    string
}

// CheckRestriction fetches the watch page and scans for gating markers.
// A fetch failure deliberately reports "not restricted" with a diagnostic:
// the system prefers a false negative over blocking content on a network
// hiccup.
func (c *Client) CheckRestriction(ctx context.Context, rawURL string) RestrictionResult {
	resp, err := c.get(ctx, rawURL)
	if err != nil {
		return RestrictionResult{
			Restricted: false,
			Message:    fmt.Sprintf("%s while checking age restriction", classifyTransportError(err)),
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return RestrictionResult{
			Restricted: false,
			Message:    fmt.Sprintf("Could not check age restriction (HTTP %d)", resp.StatusCode),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return RestrictionResult{
			Restricted: false,
			Message:    "read error while checking age restriction",
		}
	}
	content := strings.ToLower(string(body))

	for _, marker := range restrictionMarkers {
		if strings.Contains(content, marker) {
			return RestrictionResult{Restricted: true, Message: "Age-restricted content detected"}
		}
	}
	for _, marker := range unavailableMarkers {
		if strings.Contains(content, marker) {
			return RestrictionResult{Restricted: true, Message: "Content not publicly available"}
		}
	}

	return RestrictionResult{Restricted: false, Message: "No age restrictions detected"}
}
