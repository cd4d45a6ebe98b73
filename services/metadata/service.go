package metadata

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"regexp"
	"strings"
	"time"

	"reelpick/models"
)

var (
	// ErrInvalidAPIKey aborts a variant search immediately; repeating a
	// rejected call for every variant only burns quota.
	ErrInvalidAPIKey = errors.New("invalid OMDb API key")

	// ErrNotFound means no variant produced a hit.
	ErrNotFound = errors.New("movie not found")
)

// attemptDelay is the pause between variant lookups, to stay inside OMDb's
// informal rate tolerance.
const attemptDelay = 100 * time.Millisecond

// DefaultCacheTTL is the freshness window after which a cached record is
// treated as absent.
const DefaultCacheTTL = 24 * time.Hour

// Attempt records one variant lookup for diagnostics.
type Attempt struct {
	Term       string `json:"term"`
	StatusCode int    `json:"statusCode,omitempty"`
	Error      string `json:"error,omitempty"`
}

// cacheStore is the slice of the metadata cache repository the service needs.
type cacheStore interface {
	GetInfo(movieID int64) (*models.MovieInfo, error)
	UpsertInfo(info *models.MovieInfo) error
	DeleteInfo(movieID int64) error
}

// Service fetches OMDb metadata by title, trying normalized variants of the
// title, and layers the movie_info table cache on top.
type Service struct {
	client *omdbClient
	cache  cacheStore
	ttl    time.Duration
	delay  time.Duration
	now    func() time.Time
}

// NewService creates a metadata service. httpc may be nil; ttl <= 0 uses
// DefaultCacheTTL.
func NewService(apiKey string, httpc *http.Client, cache cacheStore, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Service{
		client: newOMDbClient(apiKey, httpc),
		cache:  cache,
		ttl:    ttl,
		delay:  attemptDelay,
		now:    time.Now,
	}
}

// variantBuilders produce the search variants in priority order. They are
// applied lazily so a search that hits early never constructs the rest.
var variantBuilders = []func(string) string{
	func(t string) string { return t },
	strings.TrimSpace,
	normalizeWhitespace,
	func(t string) string { return strings.ReplaceAll(t, "&", "and") },
	stripFillerWords,
}

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	fillerWords   = regexp.MustCompile(`(?i)\b(movie|film|full|hd|4k|trailer|official)\b`)
)

func normalizeWhitespace(title string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(title, " "))
}

func stripFillerWords(title string) string {
	return normalizeWhitespace(fillerWords.ReplaceAllString(title, " "))
}

// IsFresh reports whether a record cached at cachedAt is still inside the
// freshness window at the given instant.
func IsFresh(cachedAt time.Time, maxAge time.Duration, now time.Time) bool {
	return now.Sub(cachedAt) <= maxAge
}

// Fetch searches OMDb with successive variants of the title, stopping at the
// first hit. It returns the attempts made alongside the result or error; the
// error is ErrInvalidAPIKey, ErrNotFound, or a transport failure that aborted
// the search.
func (s *Service) Fetch(ctx context.Context, title string) (*models.MovieInfo, []Attempt, error) {
	var attempts []Attempt
	tried := make(map[string]bool)

	for i, build := range variantBuilders {
		term := build(title)
		if strings.TrimSpace(term) == "" || tried[term] {
			continue
		}
		tried[term] = true

		if len(attempts) > 0 {
			s.sleep(ctx)
		}
		attempt := Attempt{Term: term}

		data, status, err := s.client.lookup(ctx, term)
		attempt.StatusCode = status
		switch {
		case err != nil && status == 0:
			// Transport failure terminates the whole search, not just
			// this variant.
			attempt.Error = err.Error()
			attempts = append(attempts, attempt)
			return nil, attempts, fmt.Errorf("OMDb request failed: %w", err)
		case err != nil:
			attempt.Error = fmt.Sprintf("invalid response: %v", err)
		case data == nil:
			if status == http.StatusUnauthorized {
				attempt.Error = "unauthorized"
				attempts = append(attempts, attempt)
				return nil, attempts, ErrInvalidAPIKey
			}
			attempt.Error = fmt.Sprintf("HTTP %d", status)
		case data.Response == "True":
			attempts = append(attempts, attempt)
			log.Printf("[metadata] found %q with variant #%d %q", title, i+1, term)
			return &models.MovieInfo{
				Plot:       defaultStr(data.Plot, "No plot available"),
				Year:       defaultStr(data.Year, "Unknown"),
				Director:   defaultStr(data.Director, "Unknown"),
				Actors:     defaultStr(data.Actors, "Unknown"),
				Genre:      defaultStr(data.Genre, "Unknown"),
				Runtime:    defaultStr(data.Runtime, "Unknown"),
				IMDBRating: defaultStr(data.IMDBRating, "N/A"),
				Poster:     data.Poster,
				FoundWith:  term,
			}, attempts, nil
		default:
			attempt.Error = defaultStr(data.Error, "unknown error")
			if strings.Contains(data.Error, "Invalid API key") {
				attempts = append(attempts, attempt)
				return nil, attempts, ErrInvalidAPIKey
			}
			// Rate limiting is recorded but the remaining variants still
			// get their chance.
			if strings.Contains(data.Error, "Request limit reached") {
				attempt.Error = "rate limited: " + data.Error
			}
		}
		attempts = append(attempts, attempt)
	}

	return nil, attempts, fmt.Errorf("%w after %d search variations", ErrNotFound, len(attempts))
}

// Lookup is the cache-aware entry point: a fresh cache row is returned with
// FromCache set; otherwise OMDb is searched with a cleaned-up title and the
// result written back in one atomic upsert.
func (s *Service) Lookup(ctx context.Context, movieID int64, title string) (*models.MovieInfo, error) {
	cached, err := s.cache.GetInfo(movieID)
	if err != nil {
		// A malformed cache row is a cache miss, not a failure.
		log.Printf("[metadata] cache read failed for movie %d: %v", movieID, err)
	}
	if cached != nil && IsFresh(cached.CachedAt, s.ttl, s.now()) {
		cached.FromCache = true
		return cached, nil
	}

	info, _, err := s.Fetch(ctx, CleanSearchTitle(title))
	if err != nil {
		return nil, err
	}

	info.MovieID = movieID
	info.CachedAt = s.now().UTC()
	if err := s.cache.UpsertInfo(info); err != nil {
		// The fetch still succeeded; report the result and log the miss.
		log.Printf("[metadata] cache write failed for movie %d: %v", movieID, err)
	}
	info.FromCache = false
	return info, nil
}

// Refresh drops any cached row and fetches anew.
func (s *Service) Refresh(ctx context.Context, movieID int64, title string) (*models.MovieInfo, error) {
	if err := s.cache.DeleteInfo(movieID); err != nil {
		log.Printf("[metadata] cache clear failed for movie %d: %v", movieID, err)
	}
	return s.Lookup(ctx, movieID, title)
}

var searchTitleCleanups = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\s*-\s*Official Trailer.*$`),
	regexp.MustCompile(`(?i)\s*-\s*Trailer.*$`),
	regexp.MustCompile(`(?i)\s*-\s*Full Movie.*$`),
	regexp.MustCompile(`\s*\[.*?\]\s*$`),
	regexp.MustCompile(`(?i)\s*\(.*?trailer.*?\)\s*$`),
	regexp.MustCompile(`\s*\((19|20)\d{2}\)\s*$`),
}

// CleanSearchTitle strips YouTube-style suffixes (trailer markers, bracketed
// tags, trailing years) that hurt OMDb search accuracy.
func CleanSearchTitle(title string) string {
	for _, re := range searchTitleCleanups {
		title = re.ReplaceAllString(title, "")
	}
	return strings.TrimSpace(title)
}

func (s *Service) sleep(ctx context.Context) {
	if s.delay <= 0 {
		return
	}
	select {
	case <-time.After(s.delay):
	case <-ctx.Done():
	}
}

func defaultStr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
