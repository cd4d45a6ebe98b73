package youtube

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// SearchResult is one scraped entry from the results page.
type SearchResult struct {
	VideoID      string `json:"videoId"`
	Title        string `json:"title"`
	URL          string `json:"url"`
	Duration     string `json:"duration"`
	Thumbnail    string `json:"thumbnail"`
	HasFullMovie bool   `json:"hasFullMovie"`
}

// Result-page layouts rotate; each pattern captures (videoId, title,
// duration) for one generation of the markup.
var searchPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?s)"videoId":"([^"]+)".*?"title":{"runs":\[{"text":"([^"]+)"}.*?"lengthText":{"simpleText":"([^"]+)"}`),
	regexp.MustCompile(`(?s)"videoId":"([^"]+)".*?"title":{"simpleText":"([^"]+)"}.*?"lengthText":{"simpleText":"([^"]+)"}`),
	regexp.MustCompile(`(?s)"videoId":"([^"]+)"[^}]*"title":\{"[^}]*"text":"([^"]+)"[^}]*\}[^}]*"lengthText":\{"simpleText":"([^"]+)"`),
}

var (
	videoIDPattern  = regexp.MustCompile(`"videoId":"([^"]+)"`)
	runsTextPattern = regexp.MustCompile(`"title":{"runs":\[{"text":"([^"]+)"}`)
)

// Obvious non-feature content that should not be offered as a movie result.
var skipKeywords = []string{"trailer", "teaser", "clip", "scene", "behind the scenes", "review", "reaction"}

// Search scrapes the public results page for likely full movies. Best-effort
// by nature: upstream markup changes break it silently, and the caller is
// expected to treat an empty or failed result as "nothing found".
func (c *Client) Search(ctx context.Context, query string, maxResults int) ([]SearchResult, error) {
	if maxResults <= 0 {
		maxResults = 10
	}

	searchURL := "https://www.youtube.com/results?search_query=" + url.QueryEscape(query+" full movie")
	resp, err := c.get(ctx, searchURL)
	if err != nil {
		return nil, fmt.Errorf("%s while searching", classifyTransportError(err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to search YouTube (HTTP %d)", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read search results: %w", err)
	}
	page := string(body)

	var matches [][]string
	for _, pattern := range searchPatterns {
		matches = pattern.FindAllStringSubmatch(page, -1)
		if matches != nil {
			break
		}
	}
	if matches == nil {
		// Last resort: collect IDs and titles separately and pair them up.
		ids := videoIDPattern.FindAllStringSubmatch(page, -1)
		titles := runsTextPattern.FindAllStringSubmatch(page, -1)
		n := min(len(ids), len(titles))
		for i := 0; i < n; i++ {
			matches = append(matches, []string{"", ids[i][1], titles[i][1], "Unknown"})
		}
		if matches == nil {
			return nil, fmt.Errorf("could not extract video information from search results")
		}
	}

	seen := make(map[string]bool)
	var results []SearchResult
	for _, m := range matches {
		if len(results) >= maxResults {
			break
		}
		videoID, title := m[1], m[2]
		duration := "Unknown"
		if len(m) > 3 && m[3] != "" {
			duration = m[3]
		}

		if seen[videoID] {
			continue
		}
		seen[videoID] = true

		// Shorts and clips are never full movies.
		if secs, ok := parseDurationSeconds(duration); ok && secs < 300 {
			continue
		}

		title = cleanTitle(title)
		if containsAny(strings.ToLower(title), skipKeywords) {
			continue
		}

		results = append(results, SearchResult{
			VideoID:      videoID,
			Title:        title,
			URL:          WatchURL(videoID),
			Duration:     duration,
			Thumbnail:    ThumbnailURL(videoID),
			HasFullMovie: strings.Contains(strings.ToLower(title), "full movie"),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].HasFullMovie != results[j].HasFullMovie {
			return results[i].HasFullMovie
		}
		return results[i].Title > results[j].Title
	})

	return results, nil
}

// parseDurationSeconds handles MM:SS durations; longer HH:MM:SS values are
// never short enough to filter, so they are left unparsed.
func parseDurationSeconds(duration string) (int, bool) {
	parts := strings.Split(duration, ":")
	if len(parts) != 2 {
		return 0, false
	}
	minutes, err1 := strconv.Atoi(parts[0])
	seconds, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil {
		return 0, false
	}
	return minutes*60 + seconds, true
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
