// internal/services/digest/service.go
package digest

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"

	stderrors "jobmatcher/internal/common/errors"
	"jobmatcher/internal/common/logger"
	"jobmatcher/internal/common/metrics"
	"jobmatcher/internal/models"
)

// Define interfaces for mocking
type SESService interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

type alertRecipient struct {
	alert models.JobAlert
	email string
	name  string
}

// Service assembles and sends the job-alert email digest. Digests go only
// to paid-tier users with active alerts of the requested frequency.
type Service struct {
	db        *sql.DB
	logger    logger.Logger
	sesClient SESService
	fromEmail string
	baseURL   string
	now       func() time.Time
}

func NewService(db *sql.DB, log logger.Logger, sesClient SESService, fromEmail, baseURL string) *Service {
	return &Service{
		db:        db,
		logger:    log.WithFields(map[string]interface{}{"service": "digest"}),
		sesClient: sesClient,
		fromEmail: fromEmail,
		baseURL:   baseURL,
		now:       time.Now,
	}
}

// Run executes one digest pass for the given frequency. A single failed
// send never aborts the pass; every recipient gets an attempt.
func (s *Service) Run(ctx context.Context, frequency string) (*Result, error) {
	var window time.Duration
	switch frequency {
	case models.FrequencyDaily:
		window = 24 * time.Hour
	case models.FrequencyWeekly:
		window = 7 * 24 * time.Hour
	default:
		return nil, stderrors.NewInvalidInputError(fmt.Sprintf("unsupported digest frequency: %s", frequency))
	}

	since := s.now().UTC().Add(-window)

	recipients, err := s.loadRecipients(ctx, frequency)
	if err != nil {
		return nil, err
	}

	jobs, err := s.loadRecentJobs(ctx, since)
	if err != nil {
		return nil, err
	}

	result := &Result{Success: true, Frequency: frequency, Results: []RecipientResult{}}
	for _, r := range recipients {
		matched := matchJobs(jobs, r.alert.Keywords)
		rr := RecipientResult{
			UserID:  r.alert.UserID,
			Email:   r.email,
			AlertID: r.alert.ID,
			Matches: len(matched),
		}

		if len(matched) == 0 {
			rr.Status = StatusSkipped
			result.Results = append(result.Results, rr)
			continue
		}

		subject, body := s.buildDigest(r, matched, frequency)
		if err := s.sendEmail(ctx, r.email, subject, body); err != nil {
			s.logger.Error("digest email failed", map[string]interface{}{
				"alertId": r.alert.ID,
				"userId":  r.alert.UserID,
				"error":   err.Error(),
			})
			metrics.EmailsSent.WithLabelValues("digest", "failed").Inc()
			rr.Status = StatusFailed
			rr.Error = err.Error()
			result.EmailsFailed++
		} else {
			metrics.EmailsSent.WithLabelValues("digest", "sent").Inc()
			rr.Status = StatusSent
			result.EmailsSent++
		}
		result.Results = append(result.Results, rr)
	}

	s.logger.Info("digest run complete", map[string]interface{}{
		"frequency":    frequency,
		"recipients":   len(recipients),
		"emailsSent":   result.EmailsSent,
		"emailsFailed": result.EmailsFailed,
	})

	return result, nil
}

func (s *Service) loadRecipients(ctx context.Context, frequency string) ([]alertRecipient, error) {
	query := `SELECT a.id, a.user_id, a.name, a.keywords, a.frequency, a.active, a.created_at,
			u.email, u.name
		FROM job_alerts a
		JOIN users u ON u.id = a.user_id
		WHERE a.active = true
		  AND a.frequency = $1
		  AND u.subscription_status = $2
		  AND (u.subscription_period_end IS NULL OR u.subscription_period_end > $3)
		ORDER BY a.created_at`

	rows, err := s.db.QueryContext(ctx, query, frequency, models.TierPro, s.now().UTC())
	if err != nil {
		return nil, stderrors.NewDatabaseError(err)
	}
	defer rows.Close()

	var recipients []alertRecipient
	for rows.Next() {
		var r alertRecipient
		if err := rows.Scan(
			&r.alert.ID, &r.alert.UserID, &r.alert.Name, &r.alert.Keywords,
			&r.alert.Frequency, &r.alert.Active, &r.alert.CreatedAt,
			&r.email, &r.name,
		); err != nil {
			return nil, stderrors.NewDatabaseError(err)
		}
		recipients = append(recipients, r)
	}
	if err := rows.Err(); err != nil {
		return nil, stderrors.NewDatabaseError(err)
	}

	return recipients, nil
}

func (s *Service) loadRecentJobs(ctx context.Context, since time.Time) ([]models.Job, error) {
	query := `SELECT id, title, company, COALESCE(location, ''), posted_at
		FROM jobs WHERE posted_at >= $1 ORDER BY posted_at DESC`

	rows, err := s.db.QueryContext(ctx, query, since)
	if err != nil {
		return nil, stderrors.NewDatabaseError(err)
	}
	defer rows.Close()

	var jobs []models.Job
	for rows.Next() {
		var j models.Job
		if err := rows.Scan(&j.ID, &j.Title, &j.Company, &j.Location, &j.PostedAt); err != nil {
			return nil, stderrors.NewDatabaseError(err)
		}
		jobs = append(jobs, j)
	}
	if err := rows.Err(); err != nil {
		return nil, stderrors.NewDatabaseError(err)
	}

	return jobs, nil
}

// matchJobs does a case-insensitive substring match of each comma-separated
// keyword against the job title and company. Empty keywords match nothing.
func matchJobs(jobs []models.Job, keywords string) []models.Job {
	var terms []string
	for _, k := range strings.Split(keywords, ",") {
		if t := strings.ToLower(strings.TrimSpace(k)); t != "" {
			terms = append(terms, t)
		}
	}
	if len(terms) == 0 {
		return nil
	}

	var matched []models.Job
	for _, job := range jobs {
		haystack := strings.ToLower(job.Title + " " + job.Company)
		for _, t := range terms {
			if strings.Contains(haystack, t) {
				matched = append(matched, job)
				break
			}
		}
	}
	return matched
}

func (s *Service) buildDigest(r alertRecipient, jobs []models.Job, frequency string) (string, string) {
	subject := fmt.Sprintf("Your %s job digest: %d new match", frequency, len(jobs))
	if len(jobs) != 1 {
		subject += "es"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\n", r.name)
	fmt.Fprintf(&b, "New jobs matching your alert %q:\n\n", r.alert.Name)
	for _, job := range jobs {
		fmt.Fprintf(&b, "- %s at %s", job.Title, job.Company)
		if job.Location != "" {
			fmt.Fprintf(&b, " (%s)", job.Location)
		}
		fmt.Fprintf(&b, "\n  %s/jobs/%s\n", s.baseURL, job.ID)
	}
	b.WriteString("\nManage your alerts: " + s.baseURL + "/alerts\n")

	return subject, b.String()
}

func (s *Service) sendEmail(ctx context.Context, to, subject, body string) error {
	_, err := s.sesClient.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject)},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(body)},
				Html: &types.Content{Data: aws.String(body)},
			},
		},
		Source: aws.String(s.fromEmail),
	})
	if err != nil {
		return stderrors.NewEmailSendFailedError(err)
	}
	return nil
}
