// internal/services/appstate/service.go
package appstate

import (
	"context"
	"database/sql"
	"errors"
	"time"

	stderrors "jobmatcher/internal/common/errors"
	"jobmatcher/internal/common/logger"
	"jobmatcher/internal/common/metrics"
	"jobmatcher/internal/models"
)

// Service governs application status transitions. Writes are single-row
// conditional updates; concurrent conflicting writes are last-write-wins.
type Service struct {
	db     *sql.DB
	logger logger.Logger
	now    func() time.Time
}

func NewService(db *sql.DB, log logger.Logger) *Service {
	return &Service{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"service": "appstate"}),
		now:    time.Now,
	}
}

// Transition moves an application to newStatus and stamps
// status_updated_at. Terminal states accept no further transitions; the
// idempotent resubmission of the same terminal status is a no-op success.
func (s *Service) Transition(ctx context.Context, applicationID, newStatus string, fields Fields) (*models.Application, error) {
	if !models.IsValidStatus(newStatus) {
		return nil, stderrors.NewInvalidTransitionError(newStatus)
	}

	current, err := s.load(ctx, applicationID)
	if err != nil {
		return nil, err
	}

	if current.IsTerminal() {
		if current.Status == newStatus {
			return current, nil
		}
		return nil, stderrors.NewAlreadyTerminalError(applicationID, current.Status)
	}

	// Interview companion fields only apply on a transition to interview.
	var interviewDate *time.Time
	var interviewer, location *string
	if newStatus == models.StatusInterview {
		interviewDate = fields.InterviewDate
		interviewer = fields.InterviewerName
		location = fields.InterviewLocation
	}

	updatedAt := s.now().UTC()
	query := `UPDATE user_job_applications SET
			status = $1,
			status_updated_at = $2,
			company_notes = COALESCE($3, company_notes),
			interview_date = COALESCE($4, interview_date),
			interviewer_name = COALESCE($5, interviewer_name),
			interview_location = COALESCE($6, interview_location)
		WHERE id = $7
		RETURNING id, user_id, job_id, job_title, company, status, status_updated_at,
			COALESCE(company_notes, ''), interview_date,
			COALESCE(interviewer_name, ''), COALESCE(interview_location, ''), applied_at`

	var updated models.Application
	err = s.db.QueryRowContext(ctx, query,
		newStatus, updatedAt, fields.CompanyNotes, interviewDate, interviewer, location, applicationID,
	).Scan(
		&updated.ID, &updated.UserID, &updated.JobID, &updated.JobTitle, &updated.Company,
		&updated.Status, &updated.StatusUpdatedAt, &updated.CompanyNotes, &updated.InterviewDate,
		&updated.InterviewerName, &updated.InterviewLocation, &updated.AppliedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Row vanished between load and update.
			return nil, stderrors.NewNotFoundError("application", applicationID)
		}
		return nil, stderrors.NewDatabaseError(err)
	}

	metrics.StatusTransitions.WithLabelValues(newStatus).Inc()
	s.logger.Info("application status updated", map[string]interface{}{
		"applicationId": updated.ID,
		"from":          current.Status,
		"to":            updated.Status,
	})

	return &updated, nil
}

// Get returns one application by id.
func (s *Service) Get(ctx context.Context, applicationID string) (*models.Application, error) {
	return s.load(ctx, applicationID)
}

func (s *Service) load(ctx context.Context, id string) (*models.Application, error) {
	query := `SELECT id, user_id, job_id, job_title, company, status, status_updated_at,
		COALESCE(company_notes, ''), interview_date,
		COALESCE(interviewer_name, ''), COALESCE(interview_location, ''), applied_at
		FROM user_job_applications WHERE id = $1`

	var a models.Application
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&a.ID, &a.UserID, &a.JobID, &a.JobTitle, &a.Company, &a.Status, &a.StatusUpdatedAt,
		&a.CompanyNotes, &a.InterviewDate, &a.InterviewerName, &a.InterviewLocation, &a.AppliedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, stderrors.NewNotFoundError("application", id)
		}
		return nil, stderrors.NewDatabaseError(err)
	}
	return &a, nil
}
