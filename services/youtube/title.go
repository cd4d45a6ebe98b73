package youtube

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/text/unicode/norm"

	stdhtml "html"
)

// Heuristics run in priority order; the first candidate that survives the
// sidebar-artifact filter wins. YouTube embeds the title in several places
// depending on layout generation, so no single pattern is reliable.
var titleHeuristics = []struct {
	name    string
	extract func(page string) (string, bool)
}{
	{"page title tag", regexExtractor(`(?is)<title>(.+?) - YouTube</title>`)},
	{"json-ld name", regexExtractor(`(?is)"name":"([^"]+)".*?"@type":"VideoObject"`)},
	{"og:title meta", metaExtractor("property", "og:title")},
	{"videoDetails json", regexExtractor(`(?is)"videoDetails":{"videoId":"[^"]+","title":"([^"]+)"`)},
	{"title runs json", regexExtractor(`(?is)"title":{"runs":\[{"text":"([^"]+)"}`)},
	{"title near lengthSeconds", regexExtractor(`(?is)"title":"([^"]+)".*?"lengthSeconds"`)},
	{"name=title meta", metaExtractor("name", "title")},
}

// Phrases that indicate a match landed on sidebar or engagement markup
// rather than the video title.
var sidebarArtifacts = []string{"comments", "subscribers", "views", "likes"}

// ExtractTitle fetches the watch page and recovers a human-readable title.
// It returns a diagnostic error when the page is unreachable or no heuristic
// produces a usable candidate; callers fall back to FallbackTitle.
func (c *Client) ExtractTitle(ctx context.Context, rawURL string) (string, error) {
	resp, err := c.get(ctx, rawURL)
	if err != nil {
		return "", fmt.Errorf("%s", classifyTransportError(err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read page: %w", err)
	}
	page := string(body)

	for _, h := range titleHeuristics {
		raw, ok := h.extract(page)
		if !ok {
			continue
		}
		title := cleanTitle(raw)
		if looksLikeSidebarArtifact(title) {
			continue
		}
		return title, nil
	}

	return "", fmt.Errorf("could not extract video title from any pattern")
}

func regexExtractor(pattern string) func(string) (string, bool) {
	re := regexp.MustCompile(pattern)
	return func(page string) (string, bool) {
		m := re.FindStringSubmatch(page)
		if m == nil {
			return "", false
		}
		return m[1], true
	}
}

// metaExtractor tokenizes the page and returns the content attribute of the
// first <meta> tag whose attrName attribute equals attrValue.
func metaExtractor(attrName, attrValue string) func(string) (string, bool) {
	return func(page string) (string, bool) {
		z := html.NewTokenizer(strings.NewReader(page))
		for {
			switch z.Next() {
			case html.ErrorToken:
				return "", false
			case html.StartTagToken, html.SelfClosingTagToken:
				tok := z.Token()
				if tok.Data != "meta" {
					continue
				}
				var matched bool
				var content string
				for _, attr := range tok.Attr {
					if attr.Key == attrName && strings.EqualFold(attr.Val, attrValue) {
						matched = true
					}
					if attr.Key == "content" {
						content = attr.Val
					}
				}
				if matched && content != "" {
					return content, true
				}
			}
		}
	}
}

// unicodeEscapes undoes the JSON-style escapes YouTube uses inside embedded
// script blobs.
var unicodeEscapes = strings.NewReplacer(
	`\u0026`, "&",
	`\u003c`, "<",
	`\u003e`, ">",
	`\"`, `"`,
)

func cleanTitle(raw string) string {
	title := stdhtml.UnescapeString(raw)
	title = unicodeEscapes.Replace(title)
	title = norm.NFC.String(title)
	return strings.TrimSpace(title)
}

func looksLikeSidebarArtifact(title string) bool {
	lower := strings.ToLower(title)
	for _, phrase := range sidebarArtifacts {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}
