package database

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reelpick/models"
)

func setupMovieRepo(t *testing.T) *MovieRepository {
	t.Helper()
	db := setupTestDB(t)
	return NewMovieRepository(db.Connection())
}

func addMovie(t *testing.T, repo *MovieRepository, title, url string) *models.Movie {
	t.Helper()
	m := &models.Movie{Title: title, URL: url}
	require.NoError(t, repo.CreateMovie(m))
	require.NotZero(t, m.ID)
	return m
}

func TestCreateAndGetMovie(t *testing.T) {
	repo := setupMovieRepo(t)

	created := addMovie(t, repo, "The Matrix", "https://www.youtube.com/watch?v=abc12345678")

	got, err := repo.GetMovie(created.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "The Matrix", got.Title)
	assert.Equal(t, created.URL, got.URL)
	assert.False(t, got.Verified)
	assert.Nil(t, got.LastVerified)
}

func TestGetMovieMissing(t *testing.T) {
	repo := setupMovieRepo(t)

	got, err := repo.GetMovie(999)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestGetMovieByURL(t *testing.T) {
	repo := setupMovieRepo(t)
	created := addMovie(t, repo, "Heat", "https://www.youtube.com/watch?v=heat1234567")

	got, err := repo.GetMovieByURL(created.URL)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, created.ID, got.ID)

	got, err = repo.GetMovieByURL("https://www.youtube.com/watch?v=nosuchvideo")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestListMovies(t *testing.T) {
	repo := setupMovieRepo(t)
	addMovie(t, repo, "Alien", "https://www.youtube.com/watch?v=alien123456")
	addMovie(t, repo, "Blade Runner", "https://www.youtube.com/watch?v=blade123456")
	addMovie(t, repo, "Casablanca", "https://www.youtube.com/watch?v=casa1234567")

	all, err := repo.ListMovies(10, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)

	page, err := repo.ListMovies(2, 1)
	require.NoError(t, err)
	assert.Len(t, page, 2)
}

func TestUpdateMovie(t *testing.T) {
	repo := setupMovieRepo(t)
	m := addMovie(t, repo, "Old Title", "https://www.youtube.com/watch?v=old12345678")

	err := repo.UpdateMovie(m.ID, "New Title", "https://www.youtube.com/watch?v=new12345678", true)
	require.NoError(t, err)

	got, err := repo.GetMovie(m.ID)
	require.NoError(t, err)
	assert.Equal(t, "New Title", got.Title)
	assert.True(t, got.Verified)
}

func TestUpdateMovieMissing(t *testing.T) {
	repo := setupMovieRepo(t)

	err := repo.UpdateMovie(42, "Title", "https://www.youtube.com/watch?v=ghost123456", false)
	require.Error(t, err)
}

func TestSetVerification(t *testing.T) {
	repo := setupMovieRepo(t)
	m := addMovie(t, repo, "Verified Movie", "https://www.youtube.com/watch?v=ver12345678")

	checkedAt := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, repo.SetVerification(m.ID, true, checkedAt))

	got, err := repo.GetMovie(m.ID)
	require.NoError(t, err)
	assert.True(t, got.Verified)
	require.NotNil(t, got.LastVerified)
	assert.True(t, got.LastVerified.Equal(checkedAt))

	// A failed check still records when it happened.
	later := checkedAt.Add(time.Hour)
	require.NoError(t, repo.SetVerification(m.ID, false, later))

	got, err = repo.GetMovie(m.ID)
	require.NoError(t, err)
	assert.False(t, got.Verified)
	require.NotNil(t, got.LastVerified)
	assert.True(t, got.LastVerified.Equal(later))
}

func TestSetAgeRestriction(t *testing.T) {
	repo := setupMovieRepo(t)
	m := addMovie(t, repo, "Restricted Movie", "https://www.youtube.com/watch?v=age12345678")

	checkedAt := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, repo.SetAgeRestriction(m.ID, true, checkedAt))

	got, err := repo.GetMovie(m.ID)
	require.NoError(t, err)
	assert.True(t, got.AgeRestricted)
	require.NotNil(t, got.AgeCheckedAt)
}

func TestDeleteMovie(t *testing.T) {
	repo := setupMovieRepo(t)
	m := addMovie(t, repo, "Doomed", "https://www.youtube.com/watch?v=doom1234567")

	require.NoError(t, repo.DeleteMovie(m.ID))

	got, err := repo.GetMovie(m.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	require.Error(t, repo.DeleteMovie(m.ID))
}

func TestReassignMovies(t *testing.T) {
	db := setupTestDB(t)
	repo := NewMovieRepository(db.Connection())

	for _, url := range []string{
		"https://www.youtube.com/watch?v=own11111111",
		"https://www.youtube.com/watch?v=own22222222",
	} {
		m := &models.Movie{Title: "Owned", URL: url, UserID: "user-a"}
		require.NoError(t, repo.CreateMovie(m))
	}
	other := &models.Movie{Title: "Other", URL: "https://www.youtube.com/watch?v=own33333333", UserID: "user-b"}
	require.NoError(t, repo.CreateMovie(other))

	moved, err := repo.ReassignMovies("user-a", "user-b")
	require.NoError(t, err)
	assert.Equal(t, int64(2), moved)

	mine, err := repo.ListMoviesByUser("user-b")
	require.NoError(t, err)
	assert.Len(t, mine, 3)
}

func TestMovieCounts(t *testing.T) {
	repo := setupMovieRepo(t)
	a := addMovie(t, repo, "A", "https://www.youtube.com/watch?v=cnt11111111")
	b := addMovie(t, repo, "B", "https://www.youtube.com/watch?v=cnt22222222")
	addMovie(t, repo, "C", "https://www.youtube.com/watch?v=cnt33333333")

	now := time.Now().UTC()
	require.NoError(t, repo.SetVerification(a.ID, true, now))
	require.NoError(t, repo.SetAgeRestriction(b.ID, true, now))

	total, err := repo.CountMovies()
	require.NoError(t, err)
	assert.Equal(t, 3, total)

	verified, err := repo.CountVerified()
	require.NoError(t, err)
	assert.Equal(t, 1, verified)

	restricted, err := repo.CountAgeRestricted()
	require.NoError(t, err)
	assert.Equal(t, 1, restricted)

	last, err := repo.LastVerification()
	require.NoError(t, err)
	require.NotNil(t, last)
}

func TestLastVerificationEmpty(t *testing.T) {
	repo := setupMovieRepo(t)

	last, err := repo.LastVerification()
	require.NoError(t, err)
	assert.Nil(t, last)
}
