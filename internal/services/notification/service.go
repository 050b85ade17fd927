// internal/services/notification/service.go
package notification

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/google/uuid"

	stderrors "jobmatcher/internal/common/errors"
	"jobmatcher/internal/common/logger"
	"jobmatcher/internal/common/metrics"
	"jobmatcher/internal/models"
)

// Define interfaces for mocking
type SESService interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

type SNSService interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SubscriptionChecker gates detailed content behind the paid tier.
type SubscriptionChecker interface {
	HasProAccess(ctx context.Context, userID string) bool
}

type Service struct {
	config    *Config
	db        *sql.DB
	logger    logger.Logger
	sesClient SESService
	snsClient SNSService
	subs      SubscriptionChecker
	now       func() time.Time
	newID     func() string
}

func NewService(config *Config, db *sql.DB, log logger.Logger, sesClient SESService, snsClient SNSService, subs SubscriptionChecker) *Service {
	return &Service{
		config:    config,
		db:        db,
		logger:    log.WithFields(map[string]interface{}{"service": "notification"}),
		sesClient: sesClient,
		snsClient: snsClient,
		subs:      subs,
		now:       time.Now,
		newID:     func() string { return uuid.New().String() },
	}
}

// NotifyStatusChange writes an in-app notification for the application's
// owner and delivers it over the enabled channels. Free-tier users get a
// teaser for interview or offer updates and for any update carrying company
// notes; the detailed content is never persisted for them.
func (s *Service) NotifyStatusChange(ctx context.Context, app *models.Application) (*models.Notification, error) {
	user, err := s.getRecipient(ctx, app.UserID)
	if err != nil {
		return nil, err
	}

	template, exists := statusTemplates[app.Status]
	if !exists {
		return nil, stderrors.NewNotificationFailedError(fmt.Errorf("no template for status: %s", app.Status))
	}

	isPro := s.subs.HasProAccess(ctx, app.UserID)
	gated := app.Status == models.StatusInterview || app.Status == models.StatusOffer || app.CompanyNotes != ""

	title := renderTemplate(template["title"], nil)
	message := renderTemplate(template["message"], map[string]interface{}{
		"jobTitle": app.JobTitle,
		"company":  app.Company,
	})
	requiresPro := false

	if gated {
		if isPro {
			message = appendDetails(message, app)
		} else {
			title = teaserTitle
			message = teaserMessage
			requiresPro = true
		}
	}

	notif := &models.Notification{
		ID:            s.newID(),
		UserID:        app.UserID,
		ApplicationID: app.ID,
		Type:          models.NotificationTypeStatusUpdate,
		Title:         title,
		Message:       message,
		RequiresPro:   requiresPro,
		CreatedAt:     s.now().UTC(),
	}

	query := `INSERT INTO user_notifications
		(id, user_id, application_id, type, title, message, is_read, requires_pro, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, false, $7, $8)`
	if _, err := s.db.ExecContext(ctx, query,
		notif.ID, notif.UserID, notif.ApplicationID, notif.Type,
		notif.Title, notif.Message, notif.RequiresPro, notif.CreatedAt,
	); err != nil {
		return nil, stderrors.NewDatabaseError(err)
	}
	metrics.NotificationsCreated.WithLabelValues(fmt.Sprintf("%t", requiresPro)).Inc()

	// Teaser emails reuse the teaser title so the subject line cannot leak
	// the gated status either.
	emailSubject := title
	if !requiresPro {
		emailSubject = fmt.Sprintf("%s: %s at %s", models.StatusDisplayName(app.Status), app.JobTitle, app.Company)
	}

	emailBody := fmt.Sprintf("%s\n\nView your applications: %s/applications", message, s.config.BaseURL)

	if s.config.EmailEnabled && user.Email != "" {
		if err := s.sendEmail(ctx, user.Email, emailSubject, emailBody); err != nil {
			metrics.EmailsSent.WithLabelValues("status", "failed").Inc()
			s.logger.Error("email send failed", map[string]interface{}{
				"error":  err.Error(),
				"userId": user.ID,
			})
		} else {
			metrics.EmailsSent.WithLabelValues("status", "sent").Inc()
		}
	}

	// SMS only for the high-signal statuses, and only with full content.
	highPriority := app.Status == models.StatusInterview || app.Status == models.StatusOffer
	if s.config.SMSEnabled && user.Phone != "" && highPriority && isPro {
		if err := s.sendSMS(ctx, user.Phone, message); err != nil {
			s.logger.Error("SMS send failed", map[string]interface{}{
				"error":  err.Error(),
				"userId": user.ID,
			})
		}
	}

	return notif, nil
}

// ListForUser returns the user's notifications, newest first.
func (s *Service) ListForUser(ctx context.Context, userID string, limit int) ([]models.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	query := `SELECT id, user_id, application_id, type, title, message, is_read, requires_pro, created_at, read_at
		FROM user_notifications WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`

	rows, err := s.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, stderrors.NewDatabaseError(err)
	}
	defer rows.Close()

	notifications := []models.Notification{}
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(
			&n.ID, &n.UserID, &n.ApplicationID, &n.Type, &n.Title, &n.Message,
			&n.IsRead, &n.RequiresPro, &n.CreatedAt, &n.ReadAt,
		); err != nil {
			return nil, stderrors.NewDatabaseError(err)
		}
		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		return nil, stderrors.NewDatabaseError(err)
	}

	return notifications, nil
}

// MarkAsRead flags one notification as read. The user filter makes reading
// another user's notification indistinguishable from a missing one.
func (s *Service) MarkAsRead(ctx context.Context, notificationID, userID string) error {
	query := `UPDATE user_notifications SET is_read = true, read_at = $1
		WHERE id = $2 AND user_id = $3 AND is_read = false`

	res, err := s.db.ExecContext(ctx, query, s.now().UTC(), notificationID, userID)
	if err != nil {
		return stderrors.NewDatabaseError(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if read, err := s.alreadyRead(ctx, notificationID, userID); err == nil && read {
			return nil
		}
		return stderrors.NewNotFoundError("notification", notificationID)
	}
	return nil
}

func (s *Service) alreadyRead(ctx context.Context, notificationID, userID string) (bool, error) {
	var isRead bool
	err := s.db.QueryRowContext(ctx,
		`SELECT is_read FROM user_notifications WHERE id = $1 AND user_id = $2`,
		notificationID, userID,
	).Scan(&isRead)
	if err != nil {
		return false, err
	}
	return isRead, nil
}

func (s *Service) getRecipient(ctx context.Context, userID string) (*models.User, error) {
	query := `SELECT id, name, email, COALESCE(phone, '') FROM users WHERE id = $1`

	var u models.User
	err := s.db.QueryRowContext(ctx, query, userID).Scan(&u.ID, &u.Name, &u.Email, &u.Phone)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, stderrors.NewNotFoundError("user", userID)
		}
		return nil, stderrors.NewDatabaseError(err)
	}
	return &u, nil
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
		Source: aws.String(s.config.FromEmail),
	})
	if err != nil {
		return stderrors.NewEmailSendFailedError(err)
	}
	return nil
}

func (s *Service) sendSMS(ctx context.Context, to, message string) error {
	_, err := s.snsClient.Publish(ctx, &sns.PublishInput{
		PhoneNumber: aws.String(to),
		Message:     aws.String(message),
	})
	return err
}

func appendDetails(message string, app *models.Application) string {
	details := message
	if app.InterviewDate != nil {
		details += fmt.Sprintf(" Interview scheduled for %s.", app.InterviewDate.UTC().Format("Jan 2, 2006 at 15:04 MST"))
	}
	if app.InterviewerName != "" {
		details += fmt.Sprintf(" You will meet %s.", app.InterviewerName)
	}
	if app.InterviewLocation != "" {
		details += fmt.Sprintf(" Location: %s.", app.InterviewLocation)
	}
	if app.CompanyNotes != "" {
		details += fmt.Sprintf(" Company notes: %s", app.CompanyNotes)
	}
	return details
}
