// internal/services/magiclink/models.go
package magiclink

import "jobmatcher/internal/models"

// LinkData is the token view exposed to the company portal. The raw row's
// metadata stays internal.
type LinkData struct {
	Token         string `json:"token"`
	CompanyEmail  string `json:"companyEmail"`
	JobID         string `json:"jobId"`
	ApplicationID string `json:"applicationId"`
	ExpiresAt     string `json:"expiresAt"` // ISO 8601
}

// ResolvedLink bundles everything the portal needs to render one
// application behind a valid token.
type ResolvedLink struct {
	Application *models.Application `json:"application"`
	Job         *models.Job         `json:"job"`
	LinkData    *LinkData           `json:"linkData"`
}
