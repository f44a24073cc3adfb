package models

import "time"

// User represents a parent account in the system
type User struct {
	ID             int64     `json:"id"`
	Username       string    `json:"username"`
	PasswordHash   string    `json:"-"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	Gender         string    `json:"gender,omitempty"`
	ProfilePicture string    `json:"profilePicture,omitempty"`
	IsAdmin        bool      `json:"isAdmin"`
	OAuthProvider  string    `json:"-"`
	OAuthSubject   string    `json:"-"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// Session represents an authenticated session
type Session struct {
	ID        string
	UserID    int64
	ExpiresAt time.Time
	CreatedAt time.Time
}

// IsExpired checks if the session has expired at now
func (s *Session) IsExpired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
