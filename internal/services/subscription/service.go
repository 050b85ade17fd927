// internal/services/subscription/service.go
package subscription

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"jobmatcher/internal/common/logger"
	"jobmatcher/internal/models"
)

const cacheTTL = 5 * time.Minute

// Service resolves a user's subscription tier. Gating fails closed: any
// lookup error, a missing user, or a lapsed PRO period all read as free
// tier. There is no override path that disables gating.
type Service struct {
	db     *sql.DB
	redis  *redis.Client
	logger logger.Logger
	now    func() time.Time
}

func NewService(db *sql.DB, rdb *redis.Client, log logger.Logger) *Service {
	return &Service{
		db:     db,
		redis:  rdb,
		logger: log.WithFields(map[string]interface{}{"service": "subscription"}),
		now:    time.Now,
	}
}

// Lookup returns the user's tier, consulting the cache first.
func (s *Service) Lookup(ctx context.Context, userID string) *models.Subscription {
	cacheKey := "sub:" + userID
	if val, err := s.redis.Get(ctx, cacheKey).Result(); err == nil {
		var sub models.Subscription
		if err := json.Unmarshal([]byte(val), &sub); err == nil {
			return &sub
		}
	}

	sub := &models.Subscription{UserID: userID, Tier: models.TierFree}

	var status string
	var periodEnd *time.Time
	query := `SELECT subscription_status, subscription_period_end FROM users WHERE id = $1`
	err := s.db.QueryRowContext(ctx, query, userID).Scan(&status, &periodEnd)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.logger.Error("subscription lookup failed", map[string]interface{}{
				"userId": userID,
				"error":  err.Error(),
			})
		}
		return sub
	}

	if status == models.TierPro {
		if periodEnd == nil || s.now().Before(*periodEnd) {
			sub.Tier = models.TierPro
			sub.IsPro = true
			if periodEnd != nil {
				sub.ExpiresAt = periodEnd.UTC().Format(time.RFC3339)
			}
		}
	}

	if data, err := json.Marshal(sub); err == nil {
		s.redis.Set(ctx, cacheKey, data, cacheTTL)
	}

	return sub
}

// HasProAccess reports whether the user is on the paid tier.
func (s *Service) HasProAccess(ctx context.Context, userID string) bool {
	return s.Lookup(ctx, userID).IsPro
}

// Invalidate drops the cached tier, for use after a billing change.
func (s *Service) Invalidate(ctx context.Context, userID string) {
	s.redis.Del(ctx, "sub:"+userID)
}
