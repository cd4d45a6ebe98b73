package models

import "time"

// Movie is one user-curated YouTube link with its verification and
// restriction state.
type Movie struct {
	ID            int64      `json:"id"`
	Title         string     `json:"title"`
	URL           string     `json:"url"`
	Verified      bool       `json:"verified"`
	LastVerified  *time.Time `json:"lastVerified,omitempty"`
	AgeRestricted bool       `json:"ageRestricted"`
	AgeCheckedAt  *time.Time `json:"ageCheckedAt,omitempty"`
	UserID        string     `json:"userId,omitempty"`
}

// MovieInfo is the cached OMDb record for one movie. At most one row exists
// per movie; rows older than the freshness window are treated as absent.
type MovieInfo struct {
	MovieID    int64     `json:"movieId"`
	Plot       string    `json:"plot"`
	Year       string    `json:"year"`
	Director   string    `json:"director"`
	Actors     string    `json:"actors"`
	Genre      string    `json:"genre"`
	Runtime    string    `json:"runtime"`
	IMDBRating string    `json:"imdbRating"`
	Poster     string    `json:"poster"`
	FoundWith  string    `json:"foundWith"`
	CachedAt   time.Time `json:"cachedAt"`
	FromCache  bool      `json:"fromCache"`
}

// MovieWithInfo joins a movie with whatever cached metadata it has.
type MovieWithInfo struct {
	Movie
	Genre      string `json:"genre"`
	Year       string `json:"year"`
	IMDBRating string `json:"imdbRating"`
	Poster     string `json:"poster"`
}
