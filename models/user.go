package models

import (
	"strings"
	"time"
)

// User is a registered library owner.
type User struct {
	ID           string     `json:"id"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	FirstName    string     `json:"firstName,omitempty"`
	LastName     string     `json:"lastName,omitempty"`
	IsAdmin      bool       `json:"isAdmin"`
	IsActive     bool       `json:"isActive"`
	CreatedAt    time.Time  `json:"createdAt"`
	LastLogin    *time.Time `json:"lastLogin,omitempty"`
}

// FullName returns the user's first and last name joined.
func (u User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// DisplayName returns the full name when set, otherwise the username.
func (u User) DisplayName() string {
	if full := u.FullName(); full != "" {
		return full
	}
	return u.Username
}
