package database

import (
	"database/sql"
	"fmt"
	"time"

	"reelpick/models"
)

// MovieRepository provides access to the movies table.
type MovieRepository struct {
	conn *sql.DB
}

// NewMovieRepository creates a movie repository.
func NewMovieRepository(conn *sql.DB) *MovieRepository {
	return &MovieRepository{conn: conn}
}

// CreateMovie inserts a new movie and sets its ID. A verified movie always
// gets a last_verified timestamp.
func (r *MovieRepository) CreateMovie(m *models.Movie) error {
	if m.Verified && m.LastVerified == nil {
		now := time.Now().UTC()
		m.LastVerified = &now
	}
	res, err := r.conn.Exec(
		`INSERT INTO movies (title, url, verified, last_verified, age_restricted, age_checked_at, user_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		m.Title, m.URL, boolToInt(m.Verified), formatTimePtr(m.LastVerified),
		boolToInt(m.AgeRestricted), formatTimePtr(m.AgeCheckedAt), m.UserID,
	)
	if err != nil {
		return fmt.Errorf("insert movie: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("movie insert id: %w", err)
	}
	m.ID = id
	return nil
}

// GetMovie returns the movie with the given ID, or nil if it does not exist.
func (r *MovieRepository) GetMovie(id int64) (*models.Movie, error) {
	row := r.conn.QueryRow(selectMovie+` WHERE id = ?`, id)
	return scanMovie(row)
}

// GetMovieByURL returns the movie with the given URL, or nil. Used for
// duplicate detection on import.
func (r *MovieRepository) GetMovieByURL(url string) (*models.Movie, error) {
	row := r.conn.QueryRow(selectMovie+` WHERE url = ? LIMIT 1`, url)
	return scanMovie(row)
}

// ListMovies returns movies ordered newest-first. A non-positive limit
// returns all movies past the offset.
func (r *MovieRepository) ListMovies(limit, offset int) ([]models.Movie, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := r.conn.Query(selectMovie+` ORDER BY id DESC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list movies: %w", err)
	}
	defer rows.Close()
	return scanMovies(rows)
}

// ListMoviesByUser returns all movies owned by the given user, newest-first.
func (r *MovieRepository) ListMoviesByUser(userID string) ([]models.Movie, error) {
	rows, err := r.conn.Query(selectMovie+` WHERE user_id = ? ORDER BY id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list movies by user: %w", err)
	}
	defer rows.Close()
	return scanMovies(rows)
}

// UpdateMovie updates the editable fields of a movie. Setting verified true
// stamps last_verified; setting it false clears the timestamp.
func (r *MovieRepository) UpdateMovie(id int64, title, url string, verified bool) error {
	var lastVerified any
	if verified {
		lastVerified = time.Now().UTC().Format(time.RFC3339)
	}
	res, err := r.conn.Exec(
		`UPDATE movies SET title = ?, url = ?, verified = ?, last_verified = ? WHERE id = ?`,
		title, url, boolToInt(verified), lastVerified, id,
	)
	if err != nil {
		return fmt.Errorf("update movie: %w", err)
	}
	return requireRowAffected(res, "movie")
}

// SetVerification records the outcome of a verification pass. The check
// timestamp is written for both outcomes so "last checked" stays accurate.
func (r *MovieRepository) SetVerification(id int64, verified bool, checkedAt time.Time) error {
	res, err := r.conn.Exec(
		`UPDATE movies SET verified = ?, last_verified = ? WHERE id = ?`,
		boolToInt(verified), checkedAt.UTC().Format(time.RFC3339), id,
	)
	if err != nil {
		return fmt.Errorf("set verification: %w", err)
	}
	return requireRowAffected(res, "movie")
}

// SetAgeRestriction records the outcome of a restriction check.
func (r *MovieRepository) SetAgeRestriction(id int64, restricted bool, checkedAt time.Time) error {
	res, err := r.conn.Exec(
		`UPDATE movies SET age_restricted = ?, age_checked_at = ? WHERE id = ?`,
		boolToInt(restricted), checkedAt.UTC().Format(time.RFC3339), id,
	)
	if err != nil {
		return fmt.Errorf("set age restriction: %w", err)
	}
	return requireRowAffected(res, "movie")
}

// DeleteMovie removes a movie; its cached metadata row goes with it via the
// foreign key cascade.
func (r *MovieRepository) DeleteMovie(id int64) error {
	res, err := r.conn.Exec(`DELETE FROM movies WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete movie: %w", err)
	}
	return requireRowAffected(res, "movie")
}

// ReassignMovies moves every movie owned by fromUserID to toUserID and
// returns how many rows changed.
func (r *MovieRepository) ReassignMovies(fromUserID, toUserID string) (int64, error) {
	res, err := r.conn.Exec(`UPDATE movies SET user_id = ? WHERE user_id = ?`, toUserID, fromUserID)
	if err != nil {
		return 0, fmt.Errorf("reassign movies: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reassign movies count: %w", err)
	}
	return n, nil
}

// CountMovies returns the total number of movies.
func (r *MovieRepository) CountMovies() (int, error) {
	return r.countWhere("")
}

// CountVerified returns the number of verified movies.
func (r *MovieRepository) CountVerified() (int, error) {
	return r.countWhere("WHERE verified = 1")
}

// CountAgeRestricted returns the number of age-restricted movies.
func (r *MovieRepository) CountAgeRestricted() (int, error) {
	return r.countWhere("WHERE age_restricted = 1")
}

// LastVerification returns the most recent verification timestamp, or nil
// when no movie has ever been checked.
func (r *MovieRepository) LastVerification() (*time.Time, error) {
	return r.maxTime("last_verified")
}

// LastAgeCheck returns the most recent restriction-check timestamp, or nil.
func (r *MovieRepository) LastAgeCheck() (*time.Time, error) {
	return r.maxTime("age_checked_at")
}

const selectMovie = `SELECT id, title, url, verified, last_verified, age_restricted, age_checked_at, user_id FROM movies`

func (r *MovieRepository) countWhere(where string) (int, error) {
	var n int
	if err := r.conn.QueryRow(`SELECT COUNT(*) FROM movies ` + where).Scan(&n); err != nil {
		return 0, fmt.Errorf("count movies: %w", err)
	}
	return n, nil
}

func (r *MovieRepository) maxTime(column string) (*time.Time, error) {
	var raw sql.NullString
	err := r.conn.QueryRow(`SELECT MAX(` + column + `) FROM movies WHERE ` + column + ` IS NOT NULL`).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("max %s: %w", column, err)
	}
	return parseTimePtr(raw), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMovie(row rowScanner) (*models.Movie, error) {
	var (
		m            models.Movie
		verified     int
		restricted   int
		lastVerified sql.NullString
		ageCheckedAt sql.NullString
	)
	err := row.Scan(&m.ID, &m.Title, &m.URL, &verified, &lastVerified, &restricted, &ageCheckedAt, &m.UserID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan movie: %w", err)
	}
	m.Verified = verified != 0
	m.AgeRestricted = restricted != 0
	m.LastVerified = parseTimePtr(lastVerified)
	m.AgeCheckedAt = parseTimePtr(ageCheckedAt)
	return &m, nil
}

func scanMovies(rows *sql.Rows) ([]models.Movie, error) {
	var movies []models.Movie
	for rows.Next() {
		m, err := scanMovie(rows)
		if err != nil {
			return nil, err
		}
		movies = append(movies, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate movies: %w", err)
	}
	return movies, nil
}

func requireRowAffected(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", what, err)
	}
	if n == 0 {
		return fmt.Errorf("%s not found", what)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func formatTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

func parseTimePtr(raw sql.NullString) *time.Time {
	if !raw.Valid || raw.String == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, raw.String)
	if err != nil {
		return nil
	}
	return &t
}
