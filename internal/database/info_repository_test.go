package database

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reelpick/models"
)

func setupInfoRepo(t *testing.T) (*MovieRepository, *InfoRepository) {
	t.Helper()
	db := setupTestDB(t)
	return NewMovieRepository(db.Connection()), NewInfoRepository(db.Connection())
}

func sampleInfo(movieID int64) *models.MovieInfo {
	return &models.MovieInfo{
		MovieID:    movieID,
		Plot:       "A hacker discovers reality is a simulation.",
		Year:       "1999",
		Director:   "Lana Wachowski, Lilly Wachowski",
		Actors:     "Keanu Reeves",
		Genre:      "Action, Sci-Fi",
		Runtime:    "136 min",
		IMDBRating: "8.7",
		Poster:     "https://img.example.com/matrix.jpg",
		FoundWith:  "The Matrix",
		CachedAt:   time.Now().UTC().Truncate(time.Second),
	}
}

func TestUpsertAndGetInfo(t *testing.T) {
	movies, infos := setupInfoRepo(t)
	m := addMovie(t, movies, "The Matrix", "https://www.youtube.com/watch?v=mtx12345678")

	require.NoError(t, infos.UpsertInfo(sampleInfo(m.ID)))

	got, err := infos.GetInfo(m.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "1999", got.Year)
	assert.Equal(t, "Action, Sci-Fi", got.Genre)
	assert.Equal(t, "The Matrix", got.FoundWith)
	assert.False(t, got.CachedAt.IsZero())
}

func TestUpsertInfoReplacesExistingRow(t *testing.T) {
	movies, infos := setupInfoRepo(t)
	m := addMovie(t, movies, "The Matrix", "https://www.youtube.com/watch?v=mtx12345678")

	require.NoError(t, infos.UpsertInfo(sampleInfo(m.ID)))

	updated := sampleInfo(m.ID)
	updated.Plot = "Updated plot."
	updated.CachedAt = time.Now().UTC().Add(time.Hour).Truncate(time.Second)
	require.NoError(t, infos.UpsertInfo(updated))

	got, err := infos.GetInfo(m.ID)
	require.NoError(t, err)
	assert.Equal(t, "Updated plot.", got.Plot)

	// Still exactly one row for the movie.
	n, err := infos.CountInfo()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestGetInfoMissing(t *testing.T) {
	_, infos := setupInfoRepo(t)

	got, err := infos.GetInfo(404)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestDeleteMovieCascadesInfo(t *testing.T) {
	movies, infos := setupInfoRepo(t)
	m := addMovie(t, movies, "The Matrix", "https://www.youtube.com/watch?v=mtx12345678")
	require.NoError(t, infos.UpsertInfo(sampleInfo(m.ID)))

	require.NoError(t, movies.DeleteMovie(m.ID))

	got, err := infos.GetInfo(m.ID)
	require.NoError(t, err)
	assert.Nil(t, got, "cache row should be removed with its movie")
}

func TestDeleteAllInfo(t *testing.T) {
	movies, infos := setupInfoRepo(t)
	a := addMovie(t, movies, "A", "https://www.youtube.com/watch?v=inf11111111")
	b := addMovie(t, movies, "B", "https://www.youtube.com/watch?v=inf22222222")
	require.NoError(t, infos.UpsertInfo(sampleInfo(a.ID)))
	require.NoError(t, infos.UpsertInfo(sampleInfo(b.ID)))

	require.NoError(t, infos.DeleteAll())

	n, err := infos.CountInfo()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestListWithInfoIncludesUncachedMovies(t *testing.T) {
	movies, infos := setupInfoRepo(t)
	cached := addMovie(t, movies, "Cached", "https://www.youtube.com/watch?v=lst11111111")
	addMovie(t, movies, "Uncached", "https://www.youtube.com/watch?v=lst22222222")
	require.NoError(t, infos.UpsertInfo(sampleInfo(cached.ID)))

	all, err := infos.ListWithInfo()
	require.NoError(t, err)
	require.Len(t, all, 2)

	// Newest first, so the uncached movie leads with empty metadata.
	assert.Equal(t, "Uncached", all[0].Title)
	assert.Empty(t, all[0].Genre)
	assert.Equal(t, "Cached", all[1].Title)
	assert.Equal(t, "Action, Sci-Fi", all[1].Genre)
}

func TestListByGenre(t *testing.T) {
	movies, infos := setupInfoRepo(t)

	scifi := addMovie(t, movies, "The Matrix", "https://www.youtube.com/watch?v=gen11111111")
	drama := addMovie(t, movies, "Casablanca", "https://www.youtube.com/watch?v=gen22222222")

	si := sampleInfo(scifi.ID)
	require.NoError(t, infos.UpsertInfo(si))

	di := sampleInfo(drama.ID)
	di.Genre = "Drama, Romance"
	di.Year = "1942"
	di.IMDBRating = "8.5"
	require.NoError(t, infos.UpsertInfo(di))

	got, err := infos.ListByGenre("Sci-Fi", "title", "asc")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "The Matrix", got[0].Title)

	byRating, err := infos.ListByGenre("", "rating", "desc")
	require.NoError(t, err)
	require.Len(t, byRating, 2)
	assert.Equal(t, "The Matrix", byRating[0].Title)
}

func TestOldestCachedAt(t *testing.T) {
	movies, infos := setupInfoRepo(t)

	oldest, err := infos.OldestCachedAt()
	require.NoError(t, err)
	assert.Nil(t, oldest)

	m := addMovie(t, movies, "The Matrix", "https://www.youtube.com/watch?v=old11111111")
	info := sampleInfo(m.ID)
	require.NoError(t, infos.UpsertInfo(info))

	oldest, err = infos.OldestCachedAt()
	require.NoError(t, err)
	require.NotNil(t, oldest)
	assert.True(t, oldest.Equal(info.CachedAt))
}
