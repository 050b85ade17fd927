// internal/services/notification/service_test.go
package notification

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	stderrors "jobmatcher/internal/common/errors"
	"jobmatcher/internal/common/logger"
	"jobmatcher/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Mock Services
// ==========================

type MockSESService struct {
	SendEmailFunc func(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

func (m *MockSESService) SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	return m.SendEmailFunc(ctx, params, optFns...)
}

type MockSNSService struct {
	PublishFunc func(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

func (m *MockSNSService) Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
	return m.PublishFunc(ctx, params, optFns...)
}

type stubSubs struct{ pro bool }

func (s stubSubs) HasProAccess(ctx context.Context, userID string) bool { return s.pro }

// ==========================
// Test Helper Functions
// ==========================

func createTestConfig() *Config {
	return &Config{
		EmailEnabled: true,
		SMSEnabled:   true,
		FromEmail:    "noreply@jobs.example.com",
		BaseURL:      "https://jobs.example.com",
	}
}

func createTestService(t *testing.T, db *sql.DB, sesClient SESService, snsClient SNSService, pro bool) *Service {
	svc := NewService(createTestConfig(), db, logger.NewTestLogger(t), sesClient, snsClient, stubSubs{pro: pro})
	svc.newID = func() string { return "notif-1" }
	svc.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return svc
}

func okSES() *MockSESService {
	return &MockSESService{
		SendEmailFunc: func(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
			return &ses.SendEmailOutput{}, nil
		},
	}
}

func okSNS() *MockSNSService {
	return &MockSNSService{
		PublishFunc: func(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
			return &sns.PublishOutput{}, nil
		},
	}
}

func interviewApp() *models.Application {
	date := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)
	return &models.Application{
		ID:                "app-1",
		UserID:            "user-1",
		JobID:             "job-1",
		JobTitle:          "Go Engineer",
		Company:           "Acme",
		Status:            models.StatusInterview,
		InterviewDate:     &date,
		InterviewerName:   "Dana",
		InterviewLocation: "HQ",
		CompanyNotes:      "bring portfolio",
	}
}

func expectUserRow(mock sqlmock.Sqlmock, phone string) {
	rows := sqlmock.NewRows([]string{"id", "name", "email", "phone"}).
		AddRow("user-1", "Sam", "sam@example.com", phone)
	mock.ExpectQuery("SELECT id, name, email").WithArgs("user-1").WillReturnRows(rows)
}

func expectInsert(mock sqlmock.Sqlmock) {
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO user_notifications")).
		WillReturnResult(sqlmock.NewResult(1, 1))
}

// ==========================
// NotifyStatusChange Tests
// ==========================

func TestService_NotifyStatusChange_ProGetsDetails(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	var sentBody string
	sesClient := &MockSESService{
		SendEmailFunc: func(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
			sentBody = *params.Message.Body.Text.Data
			return &ses.SendEmailOutput{}, nil
		},
	}
	smsSent := false
	snsClient := &MockSNSService{
		PublishFunc: func(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
			smsSent = true
			return &sns.PublishOutput{}, nil
		},
	}

	svc := createTestService(t, db, sesClient, snsClient, true)
	expectUserRow(mock, "+15551234567")
	expectInsert(mock)

	notif, err := svc.NotifyStatusChange(context.Background(), interviewApp())
	require.NoError(t, err)

	assert.False(t, notif.RequiresPro)
	assert.Contains(t, notif.Message, "Acme")
	assert.Contains(t, notif.Message, "Dana")
	assert.Contains(t, notif.Message, "bring portfolio")
	assert.Contains(t, sentBody, "Dana")
	assert.True(t, smsSent)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestService_NotifyStatusChange_FreeGetsTeaser(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	smsSent := false
	snsClient := &MockSNSService{
		PublishFunc: func(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
			smsSent = true
			return &sns.PublishOutput{}, nil
		},
	}

	svc := createTestService(t, db, okSES(), snsClient, false)
	expectUserRow(mock, "+15551234567")
	expectInsert(mock)

	notif, err := svc.NotifyStatusChange(context.Background(), interviewApp())
	require.NoError(t, err)

	assert.True(t, notif.RequiresPro)
	assert.Equal(t, teaserMessage, notif.Message)
	// Gated details never leave the service for free tier.
	assert.NotContains(t, notif.Message, "Dana")
	assert.NotContains(t, notif.Message, "bring portfolio")
	assert.False(t, smsSent)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestService_NotifyStatusChange_UngatedStatus(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	svc := createTestService(t, db, okSES(), okSNS(), false)
	expectUserRow(mock, "")
	expectInsert(mock)

	app := &models.Application{
		ID: "app-1", UserID: "user-1", JobTitle: "Go Engineer",
		Company: "Acme", Status: models.StatusUnderReview,
	}
	notif, err := svc.NotifyStatusChange(context.Background(), app)
	require.NoError(t, err)

	// Plain status updates are not gated even for free tier.
	assert.False(t, notif.RequiresPro)
	assert.Contains(t, notif.Message, "reviewing your application")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestService_NotifyStatusChange_EmailFailureDoesNotFail(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	sesClient := &MockSESService{
		SendEmailFunc: func(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
			return nil, errors.New("ses throttled")
		},
	}

	svc := createTestService(t, db, sesClient, okSNS(), true)
	expectUserRow(mock, "")
	expectInsert(mock)

	app := &models.Application{
		ID: "app-1", UserID: "user-1", JobTitle: "Go Engineer",
		Company: "Acme", Status: models.StatusRejected,
	}
	notif, err := svc.NotifyStatusChange(context.Background(), app)

	// The in-app notification is already durable; delivery failure is logged.
	require.NoError(t, err)
	assert.Equal(t, "notif-1", notif.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestService_NotifyStatusChange_UnknownUser(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	svc := createTestService(t, db, okSES(), okSNS(), true)
	mock.ExpectQuery("SELECT id, name, email").WithArgs("user-1").WillReturnError(sql.ErrNoRows)

	_, err = svc.NotifyStatusChange(context.Background(), interviewApp())
	require.Error(t, err)
	stdErr := err.(*stderrors.StandardError)
	assert.Equal(t, stderrors.ErrCodeNotFound, stdErr.Code)
}

// ==========================
// Read-State Tests
// ==========================

func TestService_MarkAsRead(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	svc := createTestService(t, db, okSES(), okSNS(), true)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE user_notifications SET is_read = true")).
		WithArgs(sqlmock.AnyArg(), "notif-1", "user-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, svc.MarkAsRead(context.Background(), "notif-1", "user-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestService_MarkAsRead_AlreadyRead(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	svc := createTestService(t, db, okSES(), okSNS(), true)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE user_notifications SET is_read = true")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT is_read FROM user_notifications").
		WithArgs("notif-1", "user-1").
		WillReturnRows(sqlmock.NewRows([]string{"is_read"}).AddRow(true))

	require.NoError(t, svc.MarkAsRead(context.Background(), "notif-1", "user-1"))
}

func TestService_MarkAsRead_WrongOwner(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	svc := createTestService(t, db, okSES(), okSNS(), true)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE user_notifications SET is_read = true")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT is_read FROM user_notifications").
		WithArgs("notif-1", "intruder").
		WillReturnError(sql.ErrNoRows)

	err = svc.MarkAsRead(context.Background(), "notif-1", "intruder")
	require.Error(t, err)
	stdErr := err.(*stderrors.StandardError)
	assert.Equal(t, stderrors.ErrCodeNotFound, stdErr.Code)
}

func TestService_ListForUser(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	svc := createTestService(t, db, okSES(), okSNS(), true)
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "user_id", "application_id", "type", "title", "message",
		"is_read", "requires_pro", "created_at", "read_at"}).
		AddRow("n-2", "user-1", "app-1", models.NotificationTypeStatusUpdate, "Interview Invitation", "...", false, false, created, nil).
		AddRow("n-1", "user-1", "app-1", models.NotificationTypeStatusUpdate, "Application Under Review", "...", true, false, created.Add(-time.Hour), nil)
	mock.ExpectQuery("SELECT id, user_id, application_id").
		WithArgs("user-1", 50).
		WillReturnRows(rows)

	notifications, err := svc.ListForUser(context.Background(), "user-1", 0)
	require.NoError(t, err)

	require.Len(t, notifications, 2)
	assert.Equal(t, "n-2", notifications[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
