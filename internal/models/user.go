// internal/models/user.go
package models

import "time"

// Subscription tiers
const (
	TierFree = "FREE"
	TierPro  = "PRO"
)

type User struct {
	ID                    string     `json:"id" db:"id"`
	Name                  string     `json:"name" db:"name"`
	Email                 string     `json:"email" db:"email"`
	Phone                 string     `json:"phone,omitempty" db:"phone"`
	SubscriptionStatus    string     `json:"subscriptionStatus" db:"subscription_status"`
	SubscriptionPeriodEnd *time.Time `json:"subscriptionPeriodEnd,omitempty" db:"subscription_period_end"`
}

// Subscription is the cached view of a user's paid-tier standing.
type Subscription struct {
	UserID    string `json:"userId"`
	Tier      string `json:"tier"`
	IsPro     bool   `json:"isPro"`
	ExpiresAt string `json:"expiresAt,omitempty"`
}
