package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reelpick/internal/database"
	"reelpick/models"
	"reelpick/services/accounts"
	"reelpick/services/backup"
	"reelpick/services/jobs"
	"reelpick/services/metadata"
	"reelpick/services/refresh"
	"reelpick/services/sessions"
	"reelpick/services/youtube"
	"reelpick/utils"
)

type roundTripFunc func(req *http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

type bodyCloser struct{ *strings.Reader }

func (b *bodyCloser) Close() error { return nil }

func fakeResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       &bodyCloser{Reader: strings.NewReader(body)},
	}
}

// fakeUpstream answers YouTube and OMDb traffic. /watch?v=gone 404s, every
// other video serves a page with a standard title, OMDb always hits.
func fakeUpstream(req *http.Request) (*http.Response, error) {
	host := req.URL.Host
	switch {
	case strings.Contains(host, "omdbapi.com"):
		return fakeResponse(http.StatusOK,
			`{"Response":"True","Title":"The Matrix","Year":"1999","Plot":"A hacker learns the truth.","Director":"Lana Wachowski","Actors":"Keanu Reeves","Genre":"Sci-Fi","Runtime":"136 min","imdbRating":"8.7","Poster":"https://img.example.com/matrix.jpg"}`), nil
	case strings.Contains(host, "img.example.com"):
		// A tiny real PNG header so mimetype sniffing sees an image.
		return fakeResponse(http.StatusOK, "\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), nil
	case strings.Contains(req.URL.Path, "/results"):
		return fakeResponse(http.StatusOK,
			`{"videoId":"srch1111111","title":{"runs":[{"text":"The Matrix Full Movie"}]},"lengthText":{"simpleText":"2:16:04"}}`), nil
	default:
		switch req.URL.Query().Get("v") {
		case "gone":
			return fakeResponse(http.StatusNotFound, ""), nil
		case "abc123":
			// A page no title heuristic can use.
			return fakeResponse(http.StatusOK, `<html><body>loading</body></html>`), nil
		}
		return fakeResponse(http.StatusOK,
			`<html><head><title>The Matrix (1999) - YouTube</title></head></html>`), nil
	}
}

type testApp struct {
	router   *mux.Router
	movies   *database.MovieRepository
	info     *database.InfoRepository
	accounts *accounts.Service
	token    string
	admin    *models.User
}

func setupTestApp(t *testing.T) *testApp {
	t.Helper()

	db, err := database.NewDB(database.Config{DatabasePath: filepath.Join(t.TempDir(), "movies.db")})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	httpc := &http.Client{Transport: roundTripFunc(fakeUpstream)}

	movies := database.NewMovieRepository(db.Connection())
	info := database.NewInfoRepository(db.Connection())
	users := database.NewUserRepository(db.Connection())

	accountsSvc := accounts.NewService(users, movies)
	sessionsSvc, err := sessions.NewService("", time.Hour)
	require.NoError(t, err)

	metaSvc := metadata.NewService("testkey", httpc, info, time.Hour)
	yt := youtube.NewClient(httpc)

	runner := jobs.NewService(16)
	require.NoError(t, runner.Start(context.Background()))
	t.Cleanup(runner.Stop)

	refreshSvc := refresh.NewService(movies, info, yt, metaSvc, runner)

	backupSvc, err := backup.NewService(t.TempDir())
	require.NoError(t, err)

	admin, err := accountsSvc.Register(accounts.Registration{
		Username: "admin",
		Email:    "admin@example.com",
		Password: "admin-password",
		IsAdmin:  true,
	})
	require.NoError(t, err)

	session, err := sessionsSvc.Create(admin, false, "test", "127.0.0.1")
	require.NoError(t, err)

	router := utils.NewRouter()
	RegisterRoutes(router, Services{
		Movies:   movies,
		Info:     info,
		Accounts: accountsSvc,
		Sessions: sessionsSvc,
		Metadata: metaSvc,
		Refresh:  refreshSvc,
		Jobs:     runner,
		Backups:  backupSvc,
		YouTube:  yt,
		HTTP:     httpc,
	})

	return &testApp{
		router:   router,
		movies:   movies,
		info:     info,
		accounts: accountsSvc,
		token:    session.Token,
		admin:    admin,
	}
}

func (app *testApp) request(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Authorization", "Bearer "+app.token)
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	app.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}

func TestHealthEndpoint(t *testing.T) {
	app := setupTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	app.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ok")
}

func TestLoginFlow(t *testing.T) {
	app := setupTestApp(t)

	rec := httptest.NewRecorder()
	body := bytes.NewReader([]byte(`{"username":"admin","password":"admin-password"}`))
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", body)
	app.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody[LoginResponse](t, rec)
	assert.NotEmpty(t, resp.Token)
	assert.True(t, resp.IsAdmin)

	// Bad password.
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/auth/login",
		bytes.NewReader([]byte(`{"username":"admin","password":"wrong"}`)))
	app.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRegisterAndLogin(t *testing.T) {
	app := setupTestApp(t)

	rec := httptest.NewRecorder()
	body := bytes.NewReader([]byte(`{"username":"alice","email":"alice@example.com","password":"alice-password"}`))
	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", body)
	app.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	user := decodeBody[models.User](t, rec)
	assert.Equal(t, "alice", user.Username)
	assert.False(t, user.IsAdmin)

	// Duplicate username.
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/auth/register",
		bytes.NewReader([]byte(`{"username":"alice","email":"other@example.com","password":"alice-password"}`)))
	app.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/auth/login",
		bytes.NewReader([]byte(`{"username":"alice","password":"alice-password"}`)))
	app.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequestsWithoutTokenAreRejected(t *testing.T) {
	app := setupTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/api/movies", nil)
	rec := httptest.NewRecorder()
	app.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateMovie(t *testing.T) {
	app := setupTestApp(t)

	rec := app.request(t, http.MethodPost, "/api/movies", MovieRequest{
		Title: "The Matrix",
		URL:   "https://www.youtube.com/watch?v=m4trix01abc",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	movie := decodeBody[models.Movie](t, rec)
	assert.Equal(t, "The Matrix", movie.Title)
	assert.Equal(t, app.admin.ID, movie.UserID)
	assert.NotZero(t, movie.ID)
}

func TestCreateMovieFetchesMissingTitle(t *testing.T) {
	app := setupTestApp(t)

	rec := app.request(t, http.MethodPost, "/api/movies", MovieRequest{
		URL: "https://www.youtube.com/watch?v=m4trix01abc",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	movie := decodeBody[models.Movie](t, rec)
	assert.Equal(t, "The Matrix (1999)", movie.Title)
}

func TestCreateMovieFallbackTitle(t *testing.T) {
	app := setupTestApp(t)

	rec := app.request(t, http.MethodPost, "/api/movies", MovieRequest{
		URL: "https://youtube.com/watch?v=abc123",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	movie := decodeBody[models.Movie](t, rec)
	assert.Contains(t, movie.Title, "abc123")
	assert.False(t, movie.Verified)
}

func TestCreateMovieRejectsDuplicateURL(t *testing.T) {
	app := setupTestApp(t)

	url := "https://www.youtube.com/watch?v=m4trix01abc"
	rec := app.request(t, http.MethodPost, "/api/movies", MovieRequest{Title: "One", URL: url})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = app.request(t, http.MethodPost, "/api/movies", MovieRequest{Title: "Two", URL: url})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCreateMovieRejectsNonYouTubeURL(t *testing.T) {
	app := setupTestApp(t)

	rec := app.request(t, http.MethodPost, "/api/movies", MovieRequest{
		Title: "Nope",
		URL:   "https://vimeo.com/12345",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateMovieURLResetsVerification(t *testing.T) {
	app := setupTestApp(t)

	movie := &models.Movie{
		Title:    "Old",
		URL:      "https://www.youtube.com/watch?v=oldvideo123",
		Verified: true,
		UserID:   app.admin.ID,
	}
	require.NoError(t, app.movies.CreateMovie(movie))

	// The new URL 404s upstream, so background re-verification cannot
	// flip the flag back while the test is looking at it.
	rec := app.request(t, http.MethodPut, fmt.Sprintf("/api/movies/%d", movie.ID), MovieRequest{
		Title: "New",
		URL:   "https://www.youtube.com/watch?v=gone",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	updated := decodeBody[models.Movie](t, rec)
	assert.Equal(t, "New", updated.Title)
	assert.False(t, updated.Verified)
}

func TestDeleteMovieCascadesInfo(t *testing.T) {
	app := setupTestApp(t)

	movie := &models.Movie{Title: "Doomed", URL: "https://www.youtube.com/watch?v=doomed12345", UserID: app.admin.ID}
	require.NoError(t, app.movies.CreateMovie(movie))
	require.NoError(t, app.info.UpsertInfo(&models.MovieInfo{MovieID: movie.ID, Plot: "p", CachedAt: time.Now()}))

	rec := app.request(t, http.MethodDelete, fmt.Sprintf("/api/movies/%d", movie.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	info, err := app.info.GetInfo(movie.ID)
	require.NoError(t, err)
	assert.Nil(t, info)
}

func TestRandomMovie(t *testing.T) {
	app := setupTestApp(t)

	rec := app.request(t, http.MethodGet, "/api/movies/random", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	require.NoError(t, app.movies.CreateMovie(&models.Movie{
		Title: "Only One", URL: "https://www.youtube.com/watch?v=theonlyone1", UserID: app.admin.ID,
	}))

	rec = app.request(t, http.MethodGet, "/api/movies/random", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	movie := decodeBody[models.Movie](t, rec)
	assert.Equal(t, "Only One", movie.Title)
}

func TestMovieInfoCacheFlow(t *testing.T) {
	app := setupTestApp(t)

	movie := &models.Movie{Title: "The Matrix", URL: "https://www.youtube.com/watch?v=m4trix01abc", UserID: app.admin.ID}
	require.NoError(t, app.movies.CreateMovie(movie))

	// First request fetches live.
	rec := app.request(t, http.MethodGet, fmt.Sprintf("/api/movies/%d/info", movie.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	info := decodeBody[models.MovieInfo](t, rec)
	assert.False(t, info.FromCache)
	assert.Equal(t, "Sci-Fi", info.Genre)

	// Second request is served from cache.
	rec = app.request(t, http.MethodGet, fmt.Sprintf("/api/movies/%d/info", movie.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	info = decodeBody[models.MovieInfo](t, rec)
	assert.True(t, info.FromCache)
}

func TestVerifySingleMovie(t *testing.T) {
	app := setupTestApp(t)

	movie := &models.Movie{Title: "Gone", URL: "https://www.youtube.com/watch?v=gone", UserID: app.admin.ID}
	require.NoError(t, app.movies.CreateMovie(movie))

	rec := app.request(t, http.MethodPost, fmt.Sprintf("/api/movies/%d/verify", movie.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Verified bool   `json:"verified"`
		Message  string `json:"message"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.False(t, resp.Verified)
	assert.Contains(t, resp.Message, "404")
}

func TestFetchTitleFallback(t *testing.T) {
	app := setupTestApp(t)

	rec := app.request(t, http.MethodPost, "/api/fetch-title", URLRequest{
		URL: "https://www.youtube.com/watch?v=m4trix01abc",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Title    string `json:"title"`
		Fallback bool   `json:"fallback"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "The Matrix (1999)", resp.Title)
	assert.False(t, resp.Fallback)
}

func TestValidateURL(t *testing.T) {
	app := setupTestApp(t)

	rec := app.request(t, http.MethodPost, "/api/validate-url", URLRequest{
		URL: "https://www.youtube.com/watch?v=m4trix01abc",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Valid   bool   `json:"valid"`
		Message string `json:"message"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.True(t, resp.Valid)
}

func TestAdminStats(t *testing.T) {
	app := setupTestApp(t)

	rec := app.request(t, http.MethodGet, "/api/admin/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "movies")
	assert.Contains(t, rec.Body.String(), "users")
}

func TestAdminEndpointsRejectNonAdmin(t *testing.T) {
	app := setupTestApp(t)

	user, err := app.accounts.Register(accounts.Registration{
		Username: "viewer",
		Email:    "viewer@example.com",
		Password: "viewer-password",
	})
	require.NoError(t, err)

	// Log in as the non-admin.
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login",
		bytes.NewReader([]byte(`{"username":"viewer","password":"viewer-password"}`)))
	app.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	login := decodeBody[LoginResponse](t, rec)
	require.Equal(t, user.ID, login.UserID)

	req = httptest.NewRequest(http.MethodGet, "/api/admin/stats", nil)
	req.Header.Set("Authorization", "Bearer "+login.Token)
	rec = httptest.NewRecorder()
	app.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAdminVerifyAllQueuesJob(t *testing.T) {
	app := setupTestApp(t)

	rec := app.request(t, http.MethodPost, "/api/admin/verify-all", nil)
	require.Equal(t, http.StatusAccepted, rec.Code)

	job := decodeBody[jobs.Job](t, rec)
	assert.Equal(t, "verify-all", job.Name)
}

func TestAdminUserLifecycle(t *testing.T) {
	app := setupTestApp(t)

	rec := app.request(t, http.MethodPost, "/api/admin/users", CreateUserRequest{
		Username: "bob",
		Email:    "bob@example.com",
		Password: "bob-password-1",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	bob := decodeBody[models.User](t, rec)

	rec = app.request(t, http.MethodPut, "/api/admin/users/"+bob.ID+"/active", SetUserActiveRequest{Active: false})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = app.request(t, http.MethodDelete, "/api/admin/users/"+bob.ID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = app.request(t, http.MethodDelete, "/api/admin/users/"+app.admin.ID, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearchYouTube(t *testing.T) {
	app := setupTestApp(t)

	rec := app.request(t, http.MethodGet, "/api/search-youtube?q=the+matrix", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Results []youtube.SearchResult `json:"results"`
		Count   int                    `json:"count"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Equal(t, 1, resp.Count)
	assert.Equal(t, "srch1111111", resp.Results[0].VideoID)
	assert.True(t, resp.Results[0].HasFullMovie)

	rec = app.request(t, http.MethodGet, "/api/search-youtube", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestImportFromSearch(t *testing.T) {
	app := setupTestApp(t)

	rec := app.request(t, http.MethodPost, "/api/import-from-search", ImportRequest{
		VideoID: "srch1111111",
		Title:   "The Matrix Full Movie",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	movie := decodeBody[models.Movie](t, rec)
	assert.Equal(t, "https://www.youtube.com/watch?v=srch1111111", movie.URL)
	assert.Equal(t, app.admin.ID, movie.UserID)

	// Same video again is a duplicate.
	rec = app.request(t, http.MethodPost, "/api/import-from-search", ImportRequest{
		VideoID: "srch1111111",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestPosterProxy(t *testing.T) {
	app := setupTestApp(t)

	rec := app.request(t, http.MethodGet, "/api/poster?url=https://img.example.com/matrix.jpg", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))

	rec = app.request(t, http.MethodGet, "/api/poster?url=N/A", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminBackupLifecycle(t *testing.T) {
	app := setupTestApp(t)

	rec := app.request(t, http.MethodPost, "/api/admin/backups", nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created struct {
		Filename string `json:"filename"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&created))
	require.NotEmpty(t, created.Filename)

	rec = app.request(t, http.MethodGet, "/api/admin/backups", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), created.Filename)

	rec = app.request(t, http.MethodGet, "/api/admin/backups/"+created.Filename, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/zip", rec.Header().Get("Content-Type"))

	rec = app.request(t, http.MethodDelete, "/api/admin/backups/"+created.Filename, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
