// internal/services/digest/models.go
package digest

// RecipientResult reports the outcome for one alert's email.
type RecipientResult struct {
	UserID  string `json:"userId"`
	Email   string `json:"email"`
	AlertID string `json:"alertId"`
	Status  string `json:"status"`
	Matches int    `json:"matches"`
	Error   string `json:"error,omitempty"`
}

// Result summarizes one digest run.
type Result struct {
	Success      bool              `json:"success"`
	Frequency    string            `json:"frequency"`
	EmailsSent   int               `json:"emailsSent"`
	EmailsFailed int               `json:"emailsFailed"`
	Results      []RecipientResult `json:"results"`
}

const (
	StatusSent    = "sent"
	StatusFailed  = "failed"
	StatusSkipped = "skipped"
)
