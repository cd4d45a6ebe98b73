package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"reelpick/internal/database"
	"reelpick/services/accounts"
	"reelpick/services/backup"
	"reelpick/services/jobs"
	"reelpick/services/refresh"
	"reelpick/services/sessions"
)

// AdminHandler serves the admin dashboard endpoints: library statistics,
// batch maintenance jobs, and user management.
type AdminHandler struct {
	movies   *database.MovieRepository
	info     *database.InfoRepository
	accounts *accounts.Service
	sessions *sessions.Service
	refresh  *refresh.Service
	jobs     *jobs.Service
	backups  *backup.Service
}

func NewAdminHandler(
	movies *database.MovieRepository,
	info *database.InfoRepository,
	accountsSvc *accounts.Service,
	sessionsSvc *sessions.Service,
	refreshSvc *refresh.Service,
	jobsSvc *jobs.Service,
	backupSvc *backup.Service,
) *AdminHandler {
	return &AdminHandler{
		movies:   movies,
		info:     info,
		accounts: accountsSvc,
		sessions: sessionsSvc,
		refresh:  refreshSvc,
		jobs:     jobsSvc,
		backups:  backupSvc,
	}
}

// Stats returns the dashboard counters.
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	total, err := h.movies.CountMovies()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load stats")
		return
	}
	verified, _ := h.movies.CountVerified()
	restricted, _ := h.movies.CountAgeRestricted()
	cached, _ := h.info.CountInfo()
	lastVerified, _ := h.movies.LastVerification()
	lastAgeCheck, _ := h.movies.LastAgeCheck()
	oldestCache, _ := h.info.OldestCachedAt()

	userStats, err := h.accounts.Stats()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load user stats")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"movies": map[string]any{
			"total":         total,
			"verified":      verified,
			"ageRestricted": restricted,
			"cachedInfo":    cached,
			"lastVerified":  lastVerified,
			"lastAgeCheck":  lastAgeCheck,
			"oldestCache":   oldestCache,
		},
		"users":    userStats,
		"sessions": h.sessions.Count(),
	})
}

// VerifyAll queues a full link verification pass.
func (h *AdminHandler) VerifyAll(w http.ResponseWriter, r *http.Request) {
	h.submit(w, func() (*jobs.Job, error) { return h.refresh.SubmitVerifyAll() })
}

// RefreshCache queues a metadata refresh pass. ?clear=true drops the whole
// cache first.
func (h *AdminHandler) RefreshCache(w http.ResponseWriter, r *http.Request) {
	clearFirst := r.URL.Query().Get("clear") == "true"
	h.submit(w, func() (*jobs.Job, error) { return h.refresh.SubmitRefreshMetadata(clearFirst) })
}

// CheckRestrictions queues an age-restriction sweep.
func (h *AdminHandler) CheckRestrictions(w http.ResponseWriter, r *http.Request) {
	h.submit(w, func() (*jobs.Job, error) { return h.refresh.SubmitCheckRestrictions() })
}

func (h *AdminHandler) submit(w http.ResponseWriter, fn func() (*jobs.Job, error)) {
	job, err := fn()
	switch {
	case errors.Is(err, jobs.ErrAlreadyRunning):
		writeError(w, http.StatusConflict, "this job is already running")
	case errors.Is(err, jobs.ErrQueueFull):
		writeError(w, http.StatusTooManyRequests, "job queue is full, try again later")
	case err != nil:
		log.Printf("[admin] job submission failed: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to queue job")
	default:
		writeJSON(w, http.StatusAccepted, job)
	}
}

// ClearAllCache drops every cached metadata row immediately.
func (h *AdminHandler) ClearAllCache(w http.ResponseWriter, r *http.Request) {
	if err := h.info.DeleteAll(); err != nil {
		log.Printf("[admin] clearing cache failed: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to clear cache")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cache cleared"})
}

// Jobs lists recent background jobs, newest first.
func (h *AdminHandler) Jobs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"jobs": h.jobs.List()})
}

// Users lists all accounts.
func (h *AdminHandler) Users(w http.ResponseWriter, r *http.Request) {
	users, err := h.accounts.List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list users")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": users})
}

// CreateUserRequest represents an admin-created account.
type CreateUserRequest struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	IsAdmin   bool   `json:"isAdmin"`
}

// CreateUser registers a new account.
func (h *AdminHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.accounts.Register(accounts.Registration{
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		IsAdmin:   req.IsAdmin,
	})
	if err != nil {
		switch {
		case errors.Is(err, accounts.ErrUsernameExists), errors.Is(err, accounts.ErrEmailExists):
			writeError(w, http.StatusConflict, err.Error())
		case errors.Is(err, accounts.ErrUsernameRequired),
			errors.Is(err, accounts.ErrEmailRequired),
			errors.Is(err, accounts.ErrPasswordRequired),
			errors.Is(err, accounts.ErrPasswordTooShort):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			log.Printf("[admin] create user failed: %v", err)
			writeError(w, http.StatusInternalServerError, "failed to create user")
		}
		return
	}

	writeJSON(w, http.StatusCreated, user)
}

// SetUserActiveRequest toggles an account.
type SetUserActiveRequest struct {
	Active bool `json:"active"`
}

// SetUserActive enables or disables an account; disabling also revokes the
// user's sessions.
func (h *AdminHandler) SetUserActive(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["id"]

	var req SetUserActiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.accounts.SetActive(userID, req.Active); err != nil {
		switch {
		case errors.Is(err, accounts.ErrUserNotFound):
			writeError(w, http.StatusNotFound, "user not found")
		case errors.Is(err, accounts.ErrNoAdminRemains):
			writeError(w, http.StatusConflict, "cannot disable the last admin")
		default:
			writeError(w, http.StatusInternalServerError, "failed to update user")
		}
		return
	}

	if !req.Active {
		h.sessions.RevokeAllForUser(userID)
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

// DeleteUser removes an account, reassigning its movies to the oldest admin.
func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["id"]
	session, _ := sessionFromContext(r.Context())

	if err := h.accounts.Delete(userID, session.UserID); err != nil {
		switch {
		case errors.Is(err, accounts.ErrUserNotFound):
			writeError(w, http.StatusNotFound, "user not found")
		case errors.Is(err, accounts.ErrCannotDeleteSelf):
			writeError(w, http.StatusBadRequest, "cannot delete your own account")
		case errors.Is(err, accounts.ErrNoAdminRemains):
			writeError(w, http.StatusConflict, "cannot delete the last admin")
		default:
			log.Printf("[admin] delete user failed: %v", err)
			writeError(w, http.StatusInternalServerError, "failed to delete user")
		}
		return
	}

	h.sessions.RevokeAllForUser(userID)

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// Backups lists the archives on disk.
func (h *AdminHandler) Backups(w http.ResponseWriter, r *http.Request) {
	backups, err := h.backups.List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list backups")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"backups": backups})
}

// CreateBackup archives the data directory and prunes old archives.
func (h *AdminHandler) CreateBackup(w http.ResponseWriter, r *http.Request) {
	info, err := h.backups.Create()
	if err != nil {
		log.Printf("[admin] backup failed: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to create backup")
		return
	}
	if _, err := h.backups.Prune(); err != nil {
		log.Printf("[admin] pruning backups failed: %v", err)
	}
	writeJSON(w, http.StatusCreated, info)
}

// DownloadBackup streams one archive.
func (h *AdminHandler) DownloadBackup(w http.ResponseWriter, r *http.Request) {
	filename := mux.Vars(r)["filename"]

	rc, size, err := h.backups.Open(filename)
	if err != nil {
		h.writeBackupError(w, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", "attachment; filename=\""+filename+"\"")
	w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
	io.Copy(w, rc)
}

// DeleteBackup removes one archive.
func (h *AdminHandler) DeleteBackup(w http.ResponseWriter, r *http.Request) {
	if err := h.backups.Delete(mux.Vars(r)["filename"]); err != nil {
		h.writeBackupError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *AdminHandler) writeBackupError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, backup.ErrInvalidName):
		writeError(w, http.StatusBadRequest, "invalid backup filename")
	case errors.Is(err, backup.ErrBackupNotFound):
		writeError(w, http.StatusNotFound, "backup not found")
	default:
		writeError(w, http.StatusInternalServerError, "backup operation failed")
	}
}
