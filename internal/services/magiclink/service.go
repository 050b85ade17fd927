// internal/services/magiclink/service.go
package magiclink

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	stderrors "jobmatcher/internal/common/errors"
	"jobmatcher/internal/common/logger"
	"jobmatcher/internal/common/metrics"
	"jobmatcher/internal/models"
)

// tokenBytes gives 256 bits of entropy per token.
const tokenBytes = 32

const defaultTTL = 168 * time.Hour // 7 days

type Service struct {
	db      *sql.DB
	logger  logger.Logger
	baseURL string
	ttl     time.Duration
	now     func() time.Time
}

func NewService(db *sql.DB, log logger.Logger, baseURL string, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Service{
		db:      db,
		logger:  log.WithFields(map[string]interface{}{"service": "magiclink"}),
		baseURL: baseURL,
		ttl:     ttl,
		now:     time.Now,
	}
}

// Issue generates a cryptographically random token bound to exactly one
// application and stores it with expires_at = now + ttl.
func (s *Service) Issue(ctx context.Context, applicationID, jobID, companyEmail string) (*models.AccessToken, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}
	token := hex.EncodeToString(buf)

	now := s.now().UTC()
	expiresAt := now.Add(s.ttl)
	metadata := map[string]interface{}{
		"created_by": "system",
		"purpose":    "application_management",
	}
	metaJSON, _ := json.Marshal(metadata)

	query := `INSERT INTO company_access_tokens
		(token, application_id, job_id, company_email, expires_at, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err := s.db.ExecContext(ctx, query, token, applicationID, jobID, companyEmail, expiresAt, metaJSON, now); err != nil {
		return nil, stderrors.NewDatabaseError(err)
	}

	return &models.AccessToken{
		Token:         token,
		ApplicationID: applicationID,
		JobID:         jobID,
		CompanyEmail:  companyEmail,
		ExpiresAt:     expiresAt,
		Metadata:      metadata,
		CreatedAt:     now,
	}, nil
}

// Resolve looks up a token. Unknown and expired tokens fail identically so
// the caller cannot tell which it was.
func (s *Service) Resolve(ctx context.Context, token string) (*models.AccessToken, error) {
	query := `SELECT token, application_id, job_id, company_email, expires_at, used_at, created_at
		FROM company_access_tokens WHERE token = $1`

	var t models.AccessToken
	err := s.db.QueryRowContext(ctx, query, token).Scan(
		&t.Token, &t.ApplicationID, &t.JobID, &t.CompanyEmail, &t.ExpiresAt, &t.UsedAt, &t.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			metrics.TokenResolutions.WithLabelValues("invalid").Inc()
			return nil, stderrors.NewTokenInvalidError()
		}
		return nil, stderrors.NewDatabaseError(err)
	}

	if s.now().After(t.ExpiresAt) {
		metrics.TokenResolutions.WithLabelValues("expired").Inc()
		return nil, stderrors.NewTokenInvalidError()
	}

	metrics.TokenResolutions.WithLabelValues("ok").Inc()
	return &t, nil
}

// ResolveApplication resolves the token and loads the bound application
// plus its job summary.
func (s *Service) ResolveApplication(ctx context.Context, token string) (*ResolvedLink, error) {
	t, err := s.Resolve(ctx, token)
	if err != nil {
		return nil, err
	}

	app, err := s.loadApplication(ctx, t.ApplicationID)
	if err != nil {
		return nil, err
	}

	job, err := s.loadJob(ctx, t.JobID)
	if err != nil {
		return nil, err
	}

	return &ResolvedLink{
		Application: app,
		Job:         job,
		LinkData: &LinkData{
			Token:         t.Token,
			CompanyEmail:  t.CompanyEmail,
			JobID:         t.JobID,
			ApplicationID: t.ApplicationID,
			ExpiresAt:     t.ExpiresAt.UTC().Format(time.RFC3339),
		},
	}, nil
}

// MarkUsed sets used_at. Best-effort: callers log the returned error but
// never fail their primary operation on it.
func (s *Service) MarkUsed(ctx context.Context, token string) error {
	query := `UPDATE company_access_tokens SET used_at = $1 WHERE token = $2`
	if _, err := s.db.ExecContext(ctx, query, s.now().UTC(), token); err != nil {
		return stderrors.NewDatabaseError(err)
	}
	return nil
}

// CleanupExpired deletes tokens past their expiry and returns how many were
// removed. Run periodically from the scheduler.
func (s *Service) CleanupExpired(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM company_access_tokens WHERE expires_at < $1`, s.now().UTC())
	if err != nil {
		return 0, stderrors.NewDatabaseError(err)
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		s.logger.Info("cleaned up expired tokens", map[string]interface{}{"count": n})
	}
	return n, nil
}

// URL returns the full magic link for inclusion in an outbound email.
func (s *Service) URL(token string) string {
	return fmt.Sprintf("%s/company/application/%s", s.baseURL, token)
}

// Application ids are scanned as strings here regardless of the column's
// concrete type; nothing downstream coerces ids again.
func (s *Service) loadApplication(ctx context.Context, id string) (*models.Application, error) {
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

func (s *Service) loadJob(ctx context.Context, id string) (*models.Job, error) {
	query := `SELECT id, title, company, COALESCE(location, ''), posted_at FROM jobs WHERE id = $1`

	var j models.Job
	err := s.db.QueryRowContext(ctx, query, id).Scan(&j.ID, &j.Title, &j.Company, &j.Location, &j.PostedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, stderrors.NewNotFoundError("job", id)
		}
		return nil, stderrors.NewDatabaseError(err)
	}
	return &j, nil
}
