package handlers

import (
	"context"
	"net/http"

	"reelpick/models"
	"reelpick/services/sessions"
)

type contextKey string

const sessionContextKey contextKey = "session"

// Authenticator gates handlers behind a valid session token.
type Authenticator struct {
	sessions *sessions.Service
}

func NewAuthenticator(sessionsSvc *sessions.Service) *Authenticator {
	return &Authenticator{sessions: sessionsSvc}
}

// RequireAuth rejects requests without a valid bearer token and stores the
// session in the request context.
func (a *Authenticator) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := extractBearerToken(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, "not authenticated")
			return
		}

		session, err := a.sessions.Validate(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid or expired session")
			return
		}

		ctx := context.WithValue(r.Context(), sessionContextKey, session)
		next(w, r.WithContext(ctx))
	}
}

// RequireAdmin additionally rejects non-admin sessions.
func (a *Authenticator) RequireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return a.RequireAuth(func(w http.ResponseWriter, r *http.Request) {
		session, ok := sessionFromContext(r.Context())
		if !ok || !session.IsAdmin {
			writeError(w, http.StatusForbidden, "admin access required")
			return
		}
		next(w, r)
	})
}

func sessionFromContext(ctx context.Context) (models.Session, bool) {
	session, ok := ctx.Value(sessionContextKey).(models.Session)
	return session, ok
}
