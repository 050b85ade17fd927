// internal/services/session/service.go
package session

import (
	"context"
	"database/sql"
	"errors"
	"time"

	stderrors "jobmatcher/internal/common/errors"
	"jobmatcher/internal/common/logger"
	"jobmatcher/internal/models"
)

// Service resolves bearer session tokens to users. Session issuance lives
// with the external auth provider.
type Service struct {
	db     *sql.DB
	logger logger.Logger
}

func NewService(db *sql.DB, log logger.Logger) *Service {
	return &Service{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"service": "session"}),
	}
}

// Resolve returns the session for token, or Unauthorized when the token is
// unknown, inactive, or expired.
func (s *Service) Resolve(ctx context.Context, token string) (*models.Session, error) {
	if token == "" {
		return nil, stderrors.NewUnauthorizedError("missing session token")
	}

	query := `SELECT id, user_id, token, created_at, expires_at, is_active
		FROM sessions WHERE token = $1`

	var sess models.Session
	err := s.db.QueryRowContext(ctx, query, token).Scan(
		&sess.ID, &sess.UserID, &sess.Token, &sess.CreatedAt, &sess.ExpiresAt, &sess.IsActive,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, stderrors.NewUnauthorizedError("unknown session token")
		}
		return nil, stderrors.NewDatabaseError(err)
	}

	if !sess.IsActive || time.Now().After(sess.ExpiresAt) {
		return nil, stderrors.NewUnauthorizedError("session expired")
	}

	return &sess, nil
}
