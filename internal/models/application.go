// internal/models/application.go
package models

import "time"

// Application statuses
const (
	StatusApplied     = "applied"
	StatusUnderReview = "under_review"
	StatusInterview   = "interview"
	StatusOffer       = "offer"
	StatusHired       = "hired"
	StatusRejected    = "rejected"
	StatusWithdrawn   = "withdrawn"
)

// Application is a user's job application. Rows are never deleted in the
// normal flow; terminal statuses close the record instead.
type Application struct {
	ID                string     `json:"id" db:"id"`
	UserID            string     `json:"userId" db:"user_id"`
	JobID             string     `json:"jobId" db:"job_id"`
	JobTitle          string     `json:"jobTitle" db:"job_title"`
	Company           string     `json:"company" db:"company"`
	Status            string     `json:"status" db:"status"`
	StatusUpdatedAt   time.Time  `json:"statusUpdatedAt" db:"status_updated_at"`
	CompanyNotes      string     `json:"companyNotes,omitempty" db:"company_notes"`
	InterviewDate     *time.Time `json:"interviewDate,omitempty" db:"interview_date"`
	InterviewerName   string     `json:"interviewerName,omitempty" db:"interviewer_name"`
	InterviewLocation string     `json:"interviewLocation,omitempty" db:"interview_location"`
	AppliedAt         time.Time  `json:"appliedAt" db:"applied_at"`
}

// IsTerminal reports whether no further transitions are accepted.
func (a *Application) IsTerminal() bool {
	return IsTerminalStatus(a.Status)
}

// IsValidStatus reports whether s is a recognized application status.
func IsValidStatus(s string) bool {
	switch s {
	case StatusApplied, StatusUnderReview, StatusInterview, StatusOffer,
		StatusHired, StatusRejected, StatusWithdrawn:
		return true
	}
	return false
}

// IsTerminalStatus reports whether s permits no further transitions.
func IsTerminalStatus(s string) bool {
	switch s {
	case StatusHired, StatusRejected, StatusWithdrawn:
		return true
	}
	return false
}

// StatusDisplayName returns the human-readable form used in notifications
// and emails.
func StatusDisplayName(s string) string {
	switch s {
	case StatusApplied:
		return "Applied"
	case StatusUnderReview:
		return "Under Review"
	case StatusInterview:
		return "Interview Scheduled"
	case StatusOffer:
		return "Offer Received"
	case StatusHired:
		return "Hired"
	case StatusRejected:
		return "Not Selected"
	case StatusWithdrawn:
		return "Withdrawn"
	default:
		return s
	}
}
