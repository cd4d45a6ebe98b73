package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"reelpick/services/accounts"
	"reelpick/services/sessions"
)

// AuthHandler handles authentication and profile endpoints.
type AuthHandler struct {
	accounts *accounts.Service
	sessions *sessions.Service
}

func NewAuthHandler(accountsSvc *accounts.Service, sessionsSvc *sessions.Service) *AuthHandler {
	return &AuthHandler{accounts: accountsSvc, sessions: sessionsSvc}
}

// LoginRequest represents the login request body.
type LoginRequest struct {
	Username   string `json:"username"`
	Password   string `json:"password"`
	RememberMe bool   `json:"rememberMe"`
}

// LoginResponse represents the login response.
type LoginResponse struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expiresAt"`
	UserID    string `json:"userId"`
	Username  string `json:"username"`
	IsAdmin   bool   `json:"isAdmin"`
}

// Login authenticates a user and returns a session token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.accounts.Authenticate(req.Username, req.Password)
	if err != nil {
		if errors.Is(err, accounts.ErrAccountDisabled) {
			writeError(w, http.StatusForbidden, "account is disabled")
			return
		}
		writeError(w, http.StatusUnauthorized, "invalid username or password")
		return
	}

	session, err := h.sessions.Create(user, req.RememberMe, r.Header.Get("User-Agent"), getClientIPAddress(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create session")
		return
	}

	writeJSON(w, http.StatusOK, LoginResponse{
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt.Format(time.RFC3339),
		UserID:    user.ID,
		Username:  user.Username,
		IsAdmin:   user.IsAdmin,
	})
}

// RegisterRequest represents the signup request body.
type RegisterRequest struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// Register creates a new non-admin account.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
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
	})
	if err != nil {
		switch {
		case errors.Is(err, accounts.ErrUsernameExists):
			writeError(w, http.StatusConflict, "username already taken")
		case errors.Is(err, accounts.ErrEmailExists):
			writeError(w, http.StatusConflict, "email already registered")
		case errors.Is(err, accounts.ErrUsernameRequired),
			errors.Is(err, accounts.ErrEmailRequired),
			errors.Is(err, accounts.ErrPasswordRequired),
			errors.Is(err, accounts.ErrPasswordTooShort):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "failed to create account")
		}
		return
	}

	writeJSON(w, http.StatusCreated, user)
}

// Logout invalidates the current session.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token := extractBearerToken(r)
	if token == "" {
		writeError(w, http.StatusBadRequest, "no session token")
		return
	}

	if err := h.sessions.Revoke(token); err != nil && !errors.Is(err, sessions.ErrSessionNotFound) {
		writeError(w, http.StatusInternalServerError, "failed to revoke session")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

// Me returns the current authenticated user.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	user, err := h.accounts.Get(session.UserID)
	if err != nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// UpdateProfileRequest represents a profile edit.
type UpdateProfileRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
}

// UpdateProfile edits the current user's name and email.
func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	session, _ := sessionFromContext(r.Context())

	var req UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.accounts.UpdateProfile(session.UserID, req.FirstName, req.LastName, req.Email)
	if err != nil {
		switch {
		case errors.Is(err, accounts.ErrEmailExists):
			writeError(w, http.StatusConflict, "email already registered")
		case errors.Is(err, accounts.ErrEmailRequired):
			writeError(w, http.StatusBadRequest, "email is required")
		default:
			writeError(w, http.StatusInternalServerError, "failed to update profile")
		}
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// ChangePasswordRequest represents a password change.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// ChangePassword changes the current user's password and revokes their other
// sessions.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	session, _ := sessionFromContext(r.Context())

	var req ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.accounts.ChangePassword(session.UserID, req.CurrentPassword, req.NewPassword); err != nil {
		switch {
		case errors.Is(err, accounts.ErrInvalidCredentials):
			writeError(w, http.StatusUnauthorized, "current password is incorrect")
		case errors.Is(err, accounts.ErrPasswordTooShort), errors.Is(err, accounts.ErrPasswordRequired):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "failed to change password")
		}
		return
	}

	h.sessions.RevokeAllForUser(session.UserID)

	writeJSON(w, http.StatusOK, map[string]string{"status": "password changed"})
}
