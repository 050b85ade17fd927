// internal/models/token.go
package models

import "time"

// AccessToken is an opaque magic-link token granting a company contact
// access to exactly one application. The token string carries at least
// 256 bits of entropy and is never derivable from another token.
type AccessToken struct {
	Token         string                 `json:"token" db:"token"`
	ApplicationID string                 `json:"applicationId" db:"application_id"`
	JobID         string                 `json:"jobId" db:"job_id"`
	CompanyEmail  string                 `json:"companyEmail" db:"company_email"`
	ExpiresAt     time.Time              `json:"expiresAt" db:"expires_at"`
	UsedAt        *time.Time             `json:"usedAt,omitempty" db:"used_at"`
	Metadata      map[string]interface{} `json:"metadata,omitempty" db:"metadata"`
	CreatedAt     time.Time              `json:"createdAt" db:"created_at"`
}

// IsExpired reports whether the token is past its expiry. An expired
// token never resolves, regardless of prior validity.
func (t *AccessToken) IsExpired() bool {
	return time.Now().After(t.ExpiresAt)
}
