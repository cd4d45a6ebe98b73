package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/time/rate"

	"reelpick/api"
	"reelpick/internal/database"
	"reelpick/services/accounts"
	"reelpick/services/backup"
	"reelpick/services/jobs"
	"reelpick/services/metadata"
	"reelpick/services/refresh"
	"reelpick/services/sessions"
	"reelpick/services/youtube"
)

// Services bundles everything the HTTP layer depends on.
type Services struct {
	Movies   *database.MovieRepository
	Info     *database.InfoRepository
	Accounts *accounts.Service
	Sessions *sessions.Service
	Metadata *metadata.Service
	Refresh  *refresh.Service
	Jobs     *jobs.Service
	Backups  *backup.Service
	YouTube  *youtube.Client
	HTTP     *http.Client
}

// RegisterRoutes mounts the full API surface on the router.
func RegisterRoutes(r *mux.Router, s Services) {
	auth := NewAuthenticator(s.Sessions)

	authH := NewAuthHandler(s.Accounts, s.Sessions)
	moviesH := NewMoviesHandler(s.Movies, s.Info, s.YouTube, s.Refresh)
	metaH := NewMetadataHandler(s.Movies, s.Info, s.Metadata)
	adminH := NewAdminHandler(s.Movies, s.Info, s.Accounts, s.Sessions, s.Refresh, s.Jobs, s.Backups)
	utilH := NewUtilityHandler(s.YouTube)
	searchH := NewSearchHandler(s.Movies, s.YouTube, s.Refresh)
	imagesH := NewImagesHandler(s.HTTP)

	// Brute-force guard on login: 5 attempts per minute per IP.
	loginLimiter := api.NewIPRateLimiter(rate.Every(12*time.Second), 5)

	mounted := r.PathPrefix("/api").Subrouter()

	// Auth
	mounted.HandleFunc("/auth/login", api.RateLimitHandlerFunc(loginLimiter, authH.Login)).Methods(http.MethodPost)
	mounted.HandleFunc("/auth/register", api.RateLimitHandlerFunc(loginLimiter, authH.Register)).Methods(http.MethodPost)
	mounted.HandleFunc("/auth/logout", authH.Logout).Methods(http.MethodPost)
	mounted.HandleFunc("/auth/me", auth.RequireAuth(authH.Me)).Methods(http.MethodGet)
	mounted.HandleFunc("/auth/profile", auth.RequireAuth(authH.UpdateProfile)).Methods(http.MethodPut)
	mounted.HandleFunc("/auth/password", auth.RequireAuth(authH.ChangePassword)).Methods(http.MethodPost)

	// Catalog
	mounted.HandleFunc("/movies", auth.RequireAuth(moviesH.List)).Methods(http.MethodGet)
	mounted.HandleFunc("/movies", auth.RequireAuth(moviesH.Create)).Methods(http.MethodPost)
	mounted.HandleFunc("/movies/random", auth.RequireAuth(moviesH.Random)).Methods(http.MethodGet)
	mounted.HandleFunc("/movies/{id:[0-9]+}", auth.RequireAuth(moviesH.Get)).Methods(http.MethodGet)
	mounted.HandleFunc("/movies/{id:[0-9]+}", auth.RequireAuth(moviesH.Update)).Methods(http.MethodPut)
	mounted.HandleFunc("/movies/{id:[0-9]+}", auth.RequireAuth(moviesH.Delete)).Methods(http.MethodDelete)
	mounted.HandleFunc("/movies/{id:[0-9]+}/verify", auth.RequireAuth(moviesH.Verify)).Methods(http.MethodPost)

	// Metadata
	mounted.HandleFunc("/movies/{id:[0-9]+}/info", auth.RequireAuth(metaH.Get)).Methods(http.MethodGet)
	mounted.HandleFunc("/movies/{id:[0-9]+}/info/refresh", auth.RequireAuth(metaH.Refresh)).Methods(http.MethodPost)
	mounted.HandleFunc("/movies/{id:[0-9]+}/info", auth.RequireAuth(metaH.ClearCache)).Methods(http.MethodDelete)

	// Utilities
	mounted.HandleFunc("/fetch-title", auth.RequireAuth(utilH.FetchTitle)).Methods(http.MethodPost)
	mounted.HandleFunc("/validate-url", auth.RequireAuth(utilH.ValidateURL)).Methods(http.MethodPost)

	// Discovery
	mounted.HandleFunc("/search-youtube", auth.RequireAuth(searchH.Search)).Methods(http.MethodGet)
	mounted.HandleFunc("/import-from-search", auth.RequireAuth(searchH.Import)).Methods(http.MethodPost)

	// Images
	mounted.HandleFunc("/poster", imagesH.Poster).Methods(http.MethodGet)

	// Admin
	admin := mounted.PathPrefix("/admin").Subrouter()
	admin.HandleFunc("/stats", auth.RequireAdmin(adminH.Stats)).Methods(http.MethodGet)
	admin.HandleFunc("/verify-all", auth.RequireAdmin(adminH.VerifyAll)).Methods(http.MethodPost)
	admin.HandleFunc("/refresh-cache", auth.RequireAdmin(adminH.RefreshCache)).Methods(http.MethodPost)
	admin.HandleFunc("/check-restrictions", auth.RequireAdmin(adminH.CheckRestrictions)).Methods(http.MethodPost)
	admin.HandleFunc("/clear-cache", auth.RequireAdmin(adminH.ClearAllCache)).Methods(http.MethodPost)
	admin.HandleFunc("/jobs", auth.RequireAdmin(adminH.Jobs)).Methods(http.MethodGet)
	admin.HandleFunc("/users", auth.RequireAdmin(adminH.Users)).Methods(http.MethodGet)
	admin.HandleFunc("/users", auth.RequireAdmin(adminH.CreateUser)).Methods(http.MethodPost)
	admin.HandleFunc("/users/{id}/active", auth.RequireAdmin(adminH.SetUserActive)).Methods(http.MethodPut)
	admin.HandleFunc("/users/{id}", auth.RequireAdmin(adminH.DeleteUser)).Methods(http.MethodDelete)
	admin.HandleFunc("/backups", auth.RequireAdmin(adminH.Backups)).Methods(http.MethodGet)
	admin.HandleFunc("/backups", auth.RequireAdmin(adminH.CreateBackup)).Methods(http.MethodPost)
	admin.HandleFunc("/backups/{filename}", auth.RequireAdmin(adminH.DownloadBackup)).Methods(http.MethodGet)
	admin.HandleFunc("/backups/{filename}", auth.RequireAdmin(adminH.DeleteBackup)).Methods(http.MethodDelete)
}
