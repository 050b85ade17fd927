// internal/models/alert.go
package models

import "time"

// Alert frequencies
const (
	FrequencyDaily    = "daily"
	FrequencyWeekly   = "weekly"
	FrequencyRealtime = "realtime"
)

// ValidFrequency reports whether f is a recognized alert frequency.
func ValidFrequency(f string) bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyRealtime:
		return true
	}
	return false
}

// JobAlert is a saved search that drives the email digest.
type JobAlert struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"userId" db:"user_id"`
	Name      string    `json:"name" db:"name"`
	Keywords  string    `json:"keywords" db:"keywords"`
	Frequency string    `json:"frequency" db:"frequency"`
	Active    bool      `json:"active" db:"active"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// Job is the minimal job posting view used when matching alerts.
type Job struct {
	ID       string    `json:"id" db:"id"`
	Title    string    `json:"title" db:"title"`
	Company  string    `json:"company" db:"company"`
	Location string    `json:"location" db:"location"`
	PostedAt time.Time `json:"postedAt" db:"posted_at"`
}
