// internal/models/session.go
package models

import "time"

// Session represents an authenticated user session. Session issuance is
// owned by the external auth provider; this service only resolves tokens.
type Session struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"userId" db:"user_id"`
	Token     string    `json:"token" db:"token"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	ExpiresAt time.Time `json:"expiresAt" db:"expires_at"`
	IsActive  bool      `json:"isActive" db:"is_active"`
}

// IsExpired checks if session has expired
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}
