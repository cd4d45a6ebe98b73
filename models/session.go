package models

import "time"

// Session is an authenticated browser session identified by its token.
type Session struct {
	Token     string    `json:"token"`
	UserID    string    `json:"userId"`
	IsAdmin   bool      `json:"isAdmin"`
	ExpiresAt time.Time `json:"expiresAt"`
	CreatedAt time.Time `json:"createdAt"`
	UserAgent string    `json:"userAgent,omitempty"`
	IPAddress string    `json:"ipAddress,omitempty"`
}

// IsExpired reports whether the session is past its expiration time.
func (s Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}
