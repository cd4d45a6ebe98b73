package sessions

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"reelpick/models"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session expired")
	ErrInvalidToken    = errors.New("invalid token")
)

const (
	// DefaultSessionDuration is the lifetime of a normal login session.
	DefaultSessionDuration = 30 * 24 * time.Hour

	// RememberMeDuration is the lifetime of a "remember me" session.
	RememberMeDuration = 365 * 24 * time.Hour

	// TokenLength is the number of random bytes in a session token.
	TokenLength = 32
)

// Service manages bearer session tokens. Sessions live in memory and are
// mirrored to sessions.json so logins survive a restart.
type Service struct {
	mu       sync.RWMutex
	path     string
	sessions map[string]models.Session
	duration time.Duration
}

// NewService creates a sessions service. With an empty storageDir sessions
// are memory-only.
func NewService(storageDir string, duration time.Duration) (*Service, error) {
	if duration <= 0 {
		duration = DefaultSessionDuration
	}

	svc := &Service{
		sessions: make(map[string]models.Session),
		duration: duration,
	}

	if strings.TrimSpace(storageDir) != "" {
		if err := os.MkdirAll(storageDir, 0o755); err != nil {
			return nil, fmt.Errorf("create sessions dir: %w", err)
		}
		svc.path = filepath.Join(storageDir, "sessions.json")
		if err := svc.load(); err != nil {
			return nil, err
		}
	}

	go svc.cleanupLoop()

	return svc, nil
}

// Create issues a session for the given user. rememberMe extends the
// lifetime to RememberMeDuration.
func (s *Service) Create(user *models.User, rememberMe bool, userAgent, ipAddress string) (models.Session, error) {
	token, err := generateToken()
	if err != nil {
		return models.Session{}, err
	}

	duration := s.duration
	if rememberMe {
		duration = RememberMeDuration
	}

	now := time.Now().UTC()
	session := models.Session{
		Token:     token,
		UserID:    user.ID,
		IsAdmin:   user.IsAdmin,
		ExpiresAt: now.Add(duration),
		CreatedAt: now,
		UserAgent: userAgent,
		IPAddress: ipAddress,
	}

	s.mu.Lock()
	s.sessions[token] = session
	if err := s.saveLocked(); err != nil {
		delete(s.sessions, token)
		s.mu.Unlock()
		return models.Session{}, err
	}
	s.mu.Unlock()

	return session, nil
}

// Validate checks a token and returns its session. Expired sessions are
// removed as a side effect.
func (s *Service) Validate(token string) (models.Session, error) {
	if token == "" {
		return models.Session{}, ErrInvalidToken
	}

	s.mu.RLock()
	session, ok := s.sessions[token]
	s.mu.RUnlock()

	if !ok {
		return models.Session{}, ErrSessionNotFound
	}

	if session.IsExpired() {
		s.mu.Lock()
		delete(s.sessions, token)
		_ = s.saveLocked()
		s.mu.Unlock()
		return models.Session{}, ErrSessionExpired
	}

	return session, nil
}

// Revoke invalidates a single session.
func (s *Service) Revoke(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[token]; !ok {
		return ErrSessionNotFound
	}

	delete(s.sessions, token)
	return s.saveLocked()
}

// RevokeAllForUser invalidates every session held by a user. Called on
// password change, deactivation, and deletion.
func (s *Service) RevokeAllForUser(userID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for token, session := range s.sessions {
		if session.UserID == userID {
			delete(s.sessions, token)
			count++
		}
	}
	if count > 0 {
		_ = s.saveLocked()
	}
	return count
}

// ListForUser returns the user's unexpired sessions.
func (s *Service) ListForUser(userID string) []models.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Session
	for _, session := range s.sessions {
		if session.UserID == userID && !session.IsExpired() {
			out = append(out, session)
		}
	}
	return out
}

// Cleanup drops all expired sessions and reports how many were removed.
func (s *Service) Cleanup() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	now := time.Now()
	for token, session := range s.sessions {
		if now.After(session.ExpiresAt) {
			delete(s.sessions, token)
			count++
		}
	}
	if count > 0 {
		_ = s.saveLocked()
	}
	return count
}

// Count returns the number of live sessions.
func (s *Service) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *Service) cleanupLoop() {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for range ticker.C {
		s.Cleanup()
	}
}

func generateToken() (string, error) {
	bytes := make([]byte, TokenLength)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(bytes), nil
}

func (s *Service) load() error {
	file, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("open sessions file: %w", err)
	}
	defer file.Close()

	var stored []models.Session
	if err := json.NewDecoder(file).Decode(&stored); err != nil {
		return fmt.Errorf("decode sessions: %w", err)
	}

	now := time.Now()
	s.sessions = make(map[string]models.Session, len(stored))
	for _, session := range stored {
		if strings.TrimSpace(session.Token) == "" || now.After(session.ExpiresAt) {
			continue
		}
		s.sessions[session.Token] = session
	}
	return nil
}

// saveLocked mirrors the session map to disk via a temp-file rename. Caller
// holds mu.
func (s *Service) saveLocked() error {
	if s.path == "" {
		return nil
	}

	sessions := make([]models.Session, 0, len(s.sessions))
	for _, session := range s.sessions {
		sessions = append(sessions, session)
	}

	tmp := s.path + ".tmp"
	file, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create sessions temp file: %w", err)
	}

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(sessions); err != nil {
		file.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("encode sessions: %w", err)
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("close sessions temp file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace sessions file: %w", err)
	}
	return nil
}
