// internal/services/appstate/models.go
package appstate

import "time"

// Fields carries the optional companion data of a transition. Nil means
// "not provided": the prior stored value is left untouched, never reset.
type Fields struct {
	CompanyNotes      *string
	InterviewDate     *time.Time
	InterviewerName   *string
	InterviewLocation *string
}
