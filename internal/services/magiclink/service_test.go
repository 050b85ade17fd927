// internal/services/magiclink/service_test.go
package magiclink

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	stderrors "jobmatcher/internal/common/errors"
	"jobmatcher/internal/common/logger"
	"jobmatcher/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

func createTestService(t *testing.T, db *sql.DB) *Service {
	return NewService(db, logger.NewTestLogger(t), "https://jobs.example.com", 168*time.Hour)
}

func tokenColumns() []string {
	return []string{"token", "application_id", "job_id", "company_email", "expires_at", "used_at", "created_at"}
}

func applicationColumns() []string {
	return []string{"id", "user_id", "job_id", "job_title", "company", "status", "status_updated_at",
		"company_notes", "interview_date", "interviewer_name", "interview_location", "applied_at"}
}

// ==========================
// Issue Tests
// ==========================

func TestService_Issue(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	svc := createTestService(t, db)
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO company_access_tokens")).
		WithArgs(sqlmock.AnyArg(), "app-1", "job-1", "hr@acme.test", fixed.Add(168*time.Hour), sqlmock.AnyArg(), fixed).
		WillReturnResult(sqlmock.NewResult(1, 1))

	token, err := svc.Issue(context.Background(), "app-1", "job-1", "hr@acme.test")
	require.NoError(t, err)

	// 32 random bytes hex encoded
	assert.Len(t, token.Token, 64)
	assert.Equal(t, "app-1", token.ApplicationID)
	assert.Equal(t, fixed.Add(168*time.Hour), token.ExpiresAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestService_Issue_UniqueTokens(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	svc := createTestService(t, db)
	mock.ExpectExec("INSERT INTO company_access_tokens").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO company_access_tokens").WillReturnResult(sqlmock.NewResult(1, 1))

	first, err := svc.Issue(context.Background(), "app-1", "job-1", "hr@acme.test")
	require.NoError(t, err)
	second, err := svc.Issue(context.Background(), "app-1", "job-1", "hr@acme.test")
	require.NoError(t, err)

	assert.NotEqual(t, first.Token, second.Token)
}

// ==========================
// Resolve Tests
// ==========================

func TestService_Resolve(t *testing.T) {
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		setupMock   func(mock sqlmock.Sqlmock)
		expectError bool
		errorCode   stderrors.ErrorCode
	}{
		{
			name: "valid token resolves",
			setupMock: func(mock sqlmock.Sqlmock) {
				rows := sqlmock.NewRows(tokenColumns()).
					AddRow("tok-1", "app-1", "job-1", "hr@acme.test", fixed.Add(time.Hour), nil, fixed.Add(-time.Hour))
				mock.ExpectQuery("SELECT token, application_id").WithArgs("tok-1").WillReturnRows(rows)
			},
		},
		{
			name: "unknown token rejected",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("SELECT token, application_id").WithArgs("tok-1").WillReturnError(sql.ErrNoRows)
			},
			expectError: true,
			errorCode:   stderrors.ErrCodeTokenInvalid,
		},
		{
			name: "expired token rejected with the same code",
			setupMock: func(mock sqlmock.Sqlmock) {
				rows := sqlmock.NewRows(tokenColumns()).
					AddRow("tok-1", "app-1", "job-1", "hr@acme.test", fixed.Add(-time.Minute), nil, fixed.Add(-time.Hour))
				mock.ExpectQuery("SELECT token, application_id").WithArgs("tok-1").WillReturnRows(rows)
			},
			expectError: true,
			errorCode:   stderrors.ErrCodeTokenInvalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			svc := createTestService(t, db)
			svc.now = func() time.Time { return fixed }
			tt.setupMock(mock)

			token, err := svc.Resolve(context.Background(), "tok-1")
			if tt.expectError {
				require.Error(t, err)
				stdErr, ok := err.(*stderrors.StandardError)
				require.True(t, ok)
				assert.Equal(t, tt.errorCode, stdErr.Code)
			} else {
				require.NoError(t, err)
				assert.Equal(t, "app-1", token.ApplicationID)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestService_ResolveApplication(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := createTestService(t, db)
	svc.now = func() time.Time { return fixed }

	tokenRows := sqlmock.NewRows(tokenColumns()).
		AddRow("tok-1", "app-1", "job-1", "hr@acme.test", fixed.Add(time.Hour), nil, fixed.Add(-time.Hour))
	mock.ExpectQuery("SELECT token, application_id").WithArgs("tok-1").WillReturnRows(tokenRows)

	appRows := sqlmock.NewRows(applicationColumns()).
		AddRow("app-1", "user-1", "job-1", "Go Engineer", "Acme", models.StatusApplied,
			fixed.Add(-24*time.Hour), "", nil, "", "", fixed.Add(-48*time.Hour))
	mock.ExpectQuery("SELECT id, user_id, job_id").WithArgs("app-1").WillReturnRows(appRows)

	jobRows := sqlmock.NewRows([]string{"id", "title", "company", "location", "posted_at"}).
		AddRow("job-1", "Go Engineer", "Acme", "Remote", fixed.Add(-72*time.Hour))
	mock.ExpectQuery("SELECT id, title, company").WithArgs("job-1").WillReturnRows(jobRows)

	resolved, err := svc.ResolveApplication(context.Background(), "tok-1")
	require.NoError(t, err)

	assert.Equal(t, "app-1", resolved.Application.ID)
	assert.Equal(t, "Go Engineer", resolved.Job.Title)
	assert.Equal(t, "hr@acme.test", resolved.LinkData.CompanyEmail)
	assert.Equal(t, fixed.Add(time.Hour).Format(time.RFC3339), resolved.LinkData.ExpiresAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ==========================
// Housekeeping Tests
// ==========================

func TestService_MarkUsed(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	svc := createTestService(t, db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE company_access_tokens SET used_at")).
		WithArgs(sqlmock.AnyArg(), "tok-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, svc.MarkUsed(context.Background(), "tok-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestService_CleanupExpired(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	svc := createTestService(t, db)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM company_access_tokens WHERE expires_at <")).
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := svc.CleanupExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestService_URL(t *testing.T) {
	svc := NewService(nil, logger.NewNoOpLogger(), "https://jobs.example.com", 0)
	assert.Equal(t, "https://jobs.example.com/company/application/tok-1", svc.URL("tok-1"))
}
