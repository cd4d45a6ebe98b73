package database

import (
	"database/sql"
	"fmt"
	"time"

	"reelpick/models"
)

// InfoRepository provides access to the movie_info metadata cache table.
type InfoRepository struct {
	conn *sql.DB
}

// NewInfoRepository creates a metadata cache repository.
func NewInfoRepository(conn *sql.DB) *InfoRepository {
	return &InfoRepository{conn: conn}
}

// UpsertInfo writes the cached record for a movie in a single atomic
// statement, so a reader never observes the movie with no cache row during a
// refresh.
func (r *InfoRepository) UpsertInfo(info *models.MovieInfo) error {
	if info.CachedAt.IsZero() {
		info.CachedAt = time.Now().UTC()
	}
	_, err := r.conn.Exec(
		`INSERT INTO movie_info (movie_id, plot, year, director, actors, genre, runtime, imdb_rating, poster, found_with, cached_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(movie_id) DO UPDATE SET
		   plot = excluded.plot,
		   year = excluded.year,
		   director = excluded.director,
		   actors = excluded.actors,
		   genre = excluded.genre,
		   runtime = excluded.runtime,
		   imdb_rating = excluded.imdb_rating,
		   poster = excluded.poster,
		   found_with = excluded.found_with,
		   cached_at = excluded.cached_at`,
		info.MovieID, info.Plot, info.Year, info.Director, info.Actors, info.Genre,
		info.Runtime, info.IMDBRating, info.Poster, info.FoundWith,
		info.CachedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("upsert movie info: %w", err)
	}
	return nil
}

// GetInfo returns the cached record for a movie regardless of age, or nil
// when no row exists. Freshness is the caller's concern.
func (r *InfoRepository) GetInfo(movieID int64) (*models.MovieInfo, error) {
	row := r.conn.QueryRow(
		`SELECT movie_id, plot, year, director, actors, genre, runtime, imdb_rating, poster, found_with, cached_at
		 FROM movie_info WHERE movie_id = ?`, movieID)

	var (
		info     models.MovieInfo
		cachedAt string
	)
	err := row.Scan(&info.MovieID, &info.Plot, &info.Year, &info.Director, &info.Actors,
		&info.Genre, &info.Runtime, &info.IMDBRating, &info.Poster, &info.FoundWith, &cachedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan movie info: %w", err)
	}
	t, err := time.Parse(time.RFC3339, cachedAt)
	if err != nil {
		return nil, fmt.Errorf("malformed cached_at %q: %w", cachedAt, err)
	}
	info.CachedAt = t
	return &info, nil
}

// DeleteInfo removes the cached record for one movie. Missing rows are not an
// error; the cache may simply be cold.
func (r *InfoRepository) DeleteInfo(movieID int64) error {
	if _, err := r.conn.Exec(`DELETE FROM movie_info WHERE movie_id = ?`, movieID); err != nil {
		return fmt.Errorf("delete movie info: %w", err)
	}
	return nil
}

// DeleteAll clears the whole metadata cache.
func (r *InfoRepository) DeleteAll() error {
	if _, err := r.conn.Exec(`DELETE FROM movie_info`); err != nil {
		return fmt.Errorf("clear movie info: %w", err)
	}
	return nil
}

// CountInfo returns the number of cached records.
func (r *InfoRepository) CountInfo() (int, error) {
	var n int
	if err := r.conn.QueryRow(`SELECT COUNT(*) FROM movie_info`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count movie info: %w", err)
	}
	return n, nil
}

// OldestCachedAt returns the timestamp of the oldest cache row, or nil when
// the cache is empty.
func (r *InfoRepository) OldestCachedAt() (*time.Time, error) {
	var raw sql.NullString
	err := r.conn.QueryRow(`SELECT MIN(cached_at) FROM movie_info`).Scan(&raw)
	if err != nil {
		return nil, fmt.Errorf("oldest cached_at: %w", err)
	}
	return parseTimePtr(raw), nil
}

// ListWithInfo returns all movies joined with whatever cached metadata they
// have, newest-first. Movies without a cache row come back with empty
// metadata fields.
func (r *InfoRepository) ListWithInfo() ([]models.MovieWithInfo, error) {
	rows, err := r.conn.Query(
		`SELECT m.id, m.title, m.url, m.verified, m.last_verified, m.age_restricted, m.age_checked_at, m.user_id,
		        COALESCE(c.genre, ''), COALESCE(c.year, ''), COALESCE(c.imdb_rating, ''), COALESCE(c.poster, '')
		 FROM movies m
		 LEFT JOIN movie_info c ON m.id = c.movie_id
		 ORDER BY m.id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list movies with info: %w", err)
	}
	defer rows.Close()
	return scanMoviesWithInfo(rows)
}

// ListByGenre returns movies whose cached genre matches (substring,
// case-insensitive via LIKE), sorted by the requested column.
func (r *InfoRepository) ListByGenre(genre, sortBy, order string) ([]models.MovieWithInfo, error) {
	sortColumns := map[string]string{
		"title":    "m.title",
		"year":     "c.year",
		"rating":   `CASE WHEN c.imdb_rating = 'N/A' OR c.imdb_rating = '' THEN 0 ELSE CAST(c.imdb_rating AS REAL) END`,
		"add_date": "m.id",
	}
	column, ok := sortColumns[sortBy]
	if !ok {
		column = sortColumns["title"]
	}
	direction := "ASC"
	if order == "desc" {
		direction = "DESC"
	}

	rows, err := r.conn.Query(
		`SELECT m.id, m.title, m.url, m.verified, m.last_verified, m.age_restricted, m.age_checked_at, m.user_id,
		        c.genre, c.year, c.imdb_rating, c.poster
		 FROM movies m
		 JOIN movie_info c ON m.id = c.movie_id
		 WHERE c.genre LIKE ?
		 ORDER BY `+column+` `+direction,
		"%"+genre+"%")
	if err != nil {
		return nil, fmt.Errorf("list movies by genre: %w", err)
	}
	defer rows.Close()
	return scanMoviesWithInfo(rows)
}

func scanMoviesWithInfo(rows *sql.Rows) ([]models.MovieWithInfo, error) {
	var out []models.MovieWithInfo
	for rows.Next() {
		var (
			m            models.MovieWithInfo
			verified     int
			restricted   int
			lastVerified sql.NullString
			ageCheckedAt sql.NullString
		)
		err := rows.Scan(&m.ID, &m.Title, &m.URL, &verified, &lastVerified, &restricted, &ageCheckedAt,
			&m.Movie.UserID, &m.Genre, &m.Year, &m.IMDBRating, &m.Poster)
		if err != nil {
			return nil, fmt.Errorf("scan movie with info: %w", err)
		}
		m.Verified = verified != 0
		m.AgeRestricted = restricted != 0
		m.LastVerified = parseTimePtr(lastVerified)
		m.AgeCheckedAt = parseTimePtr(ageCheckedAt)
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate movies with info: %w", err)
	}
	return out, nil
}
