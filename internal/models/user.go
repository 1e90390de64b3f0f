package models

import "time"

// User represents the authenticated identity as reported by the auth backend.
// The ID is the backend's opaque user identifier.
type User struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name,omitempty"`
	AvatarURL   string    `json:"avatar_url,omitempty"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
}

// Session represents a live authenticated session bound to the current
// client process. The tokens are opaque to this application; only the auth
// backend interprets them.
type Session struct {
	User           *User     `json:"user"`
	AccessToken    string    `json:"access_token"`
	RefreshToken   string    `json:"refresh_token"`
	ExpiresAt      time.Time `json:"expires_at"`
	LastActivityAt time.Time `json:"last_activity_at"`
}

// IsValid reports whether the session carries an identity. A session with a
// nil user must never be treated as authenticated.
func (s *Session) IsValid() bool {
	return s != nil && s.User != nil && s.AccessToken != ""
}
