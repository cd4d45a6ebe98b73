package refresh

import (
	"context"
	"errors"
	"log"
	"strconv"
	"time"

	"reelpick/internal/database"
	"reelpick/models"
	"reelpick/services/jobs"
	"reelpick/services/metadata"
	"reelpick/services/youtube"
)

// Pacing between entries, chosen to keep the scraping and OMDb traffic well
// under anything YouTube or OMDb would throttle.
const (
	verifyDelay   = 500 * time.Millisecond
	metadataDelay = 100 * time.Millisecond
)

// Summary reports the outcome of one batch pass.
type Summary struct {
	Total      int `json:"total"`
	Succeeded  int `json:"succeeded"`
	Failed     int `json:"failed"`
	Restricted int `json:"restricted,omitempty"`
}

// Service runs whole-library maintenance passes: link verification, metadata
// cache refresh, and age-restriction sweeps. Each entry's result is written
// to the catalog immediately, so an interrupted pass keeps its progress.
type Service struct {
	movies *database.MovieRepository
	info   *database.InfoRepository
	yt     *youtube.Client
	meta   *metadata.Service
	runner *jobs.Service

	entryDelay func(kind string) time.Duration
	now        func() time.Time
}

// NewService wires the batch service to the catalog, the YouTube client, the
// metadata service, and the job executor.
func NewService(movies *database.MovieRepository, info *database.InfoRepository, yt *youtube.Client, meta *metadata.Service, runner *jobs.Service) *Service {
	return &Service{
		movies: movies,
		info:   info,
		yt:     yt,
		meta:   meta,
		runner: runner,
		entryDelay: func(kind string) time.Duration {
			if kind == "metadata" {
				return metadataDelay
			}
			return verifyDelay
		},
		now: time.Now,
	}
}

// VerifyAll checks every catalog URL and records the outcome per entry.
func (s *Service) VerifyAll(ctx context.Context) (*Summary, error) {
	movies, err := s.movies.ListMovies(0, 0)
	if err != nil {
		return nil, err
	}

	summary := &Summary{Total: len(movies)}
	for i, m := range movies {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		if i > 0 {
			s.sleep(ctx, "verify")
		}

		result := s.yt.Verify(ctx, m.URL)
		if err := s.movies.SetVerification(m.ID, result.OK, s.now().UTC()); err != nil {
			log.Printf("[refresh] verify: recording movie %d failed: %v", m.ID, err)
			summary.Failed++
			continue
		}
		if result.OK {
			summary.Succeeded++
		} else {
			summary.Failed++
			log.Printf("[refresh] verify: movie %d (%s): %s", m.ID, m.Title, result.Message)
		}
	}

	log.Printf("[refresh] verified %d/%d movies", summary.Succeeded, summary.Total)
	return summary, nil
}

// RefreshMetadata re-fetches OMDb metadata for every entry. With clearFirst
// the whole cache is dropped up front, so every entry gets a live fetch.
func (s *Service) RefreshMetadata(ctx context.Context, clearFirst bool) (*Summary, error) {
	if clearFirst {
		if err := s.info.DeleteAll(); err != nil {
			return nil, err
		}
		log.Println("[refresh] metadata cache cleared")
	}

	movies, err := s.movies.ListMovies(0, 0)
	if err != nil {
		return nil, err
	}

	summary := &Summary{Total: len(movies)}
	for i, m := range movies {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		if i > 0 {
			s.sleep(ctx, "metadata")
		}

		_, err := s.meta.Lookup(ctx, m.ID, m.Title)
		switch {
		case errors.Is(err, metadata.ErrInvalidAPIKey):
			// Every later entry would fail the same way.
			summary.Failed += len(movies) - i
			return summary, err
		case err != nil:
			summary.Failed++
			log.Printf("[refresh] metadata: movie %d (%s): %v", m.ID, m.Title, err)
		default:
			summary.Succeeded++
		}
	}

	log.Printf("[refresh] refreshed metadata for %d/%d movies", summary.Succeeded, summary.Total)
	return summary, nil
}

// CheckRestrictions sweeps the library for age-restricted entries.
func (s *Service) CheckRestrictions(ctx context.Context) (*Summary, error) {
	movies, err := s.movies.ListMovies(0, 0)
	if err != nil {
		return nil, err
	}

	summary := &Summary{Total: len(movies)}
	for i, m := range movies {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		if i > 0 {
			s.sleep(ctx, "restriction")
		}

		result := s.yt.CheckRestriction(ctx, m.URL)
		if err := s.movies.SetAgeRestriction(m.ID, result.Restricted, s.now().UTC()); err != nil {
			log.Printf("[refresh] restriction: recording movie %d failed: %v", m.ID, err)
			summary.Failed++
			continue
		}
		summary.Succeeded++
		if result.Restricted {
			summary.Restricted++
			log.Printf("[refresh] restriction: movie %d (%s) flagged: %s", m.ID, m.Title, result.Message)
		}
	}

	log.Printf("[refresh] restriction sweep: %d flagged of %d movies", summary.Restricted, summary.Total)
	return summary, nil
}

// EnrichMovie runs the single-entry pipeline used after create or edit:
// verify the link, fetch metadata, and check the restriction flag. Failures
// are logged, not returned; the entry already exists either way.
func (s *Service) EnrichMovie(ctx context.Context, movie *models.Movie) {
	result := s.yt.Verify(ctx, movie.URL)
	if err := s.movies.SetVerification(movie.ID, result.OK, s.now().UTC()); err != nil {
		log.Printf("[refresh] enrich: verify movie %d: %v", movie.ID, err)
	}

	if _, err := s.meta.Lookup(ctx, movie.ID, movie.Title); err != nil {
		log.Printf("[refresh] enrich: metadata for movie %d: %v", movie.ID, err)
	}

	restriction := s.yt.CheckRestriction(ctx, movie.URL)
	if err := s.movies.SetAgeRestriction(movie.ID, restriction.Restricted, s.now().UTC()); err != nil {
		log.Printf("[refresh] enrich: restriction for movie %d: %v", movie.ID, err)
	}
}

// Submit helpers hand the batch passes to the bounded executor so HTTP
// handlers can return immediately.

func (s *Service) SubmitVerifyAll() (*jobs.Job, error) {
	return s.runner.Submit("verify-all", func(ctx context.Context) error {
		_, err := s.VerifyAll(ctx)
		return err
	})
}

func (s *Service) SubmitRefreshMetadata(clearFirst bool) (*jobs.Job, error) {
	return s.runner.Submit("refresh-metadata", func(ctx context.Context) error {
		_, err := s.RefreshMetadata(ctx, clearFirst)
		return err
	})
}

func (s *Service) SubmitCheckRestrictions() (*jobs.Job, error) {
	return s.runner.Submit("check-restrictions", func(ctx context.Context) error {
		_, err := s.CheckRestrictions(ctx)
		return err
	})
}

// SubmitEnrichMovie queues the post-create pipeline; the name carries the
// movie ID so concurrent creates do not collide.
func (s *Service) SubmitEnrichMovie(movie *models.Movie) (*jobs.Job, error) {
	m := *movie
	return s.runner.Submit("enrich-movie-"+strconv.FormatInt(m.ID, 10), func(ctx context.Context) error {
		s.EnrichMovie(ctx, &m)
		return nil
	})
}

func (s *Service) sleep(ctx context.Context, kind string) {
	d := s.entryDelay(kind)
	if d <= 0 {
		return
	}
	select {
	case <-time.After(d):
	case <-ctx.Done():
	}
}
