// internal/models/notification.go
package models

import "time"

// Notification types
const (
	NotificationTypeStatusUpdate = "status_update"
)

type Notification struct {
	ID            string     `json:"id" db:"id"`
	UserID        string     `json:"userId" db:"user_id"`
	ApplicationID string     `json:"applicationId" db:"application_id"`
	Type          string     `json:"type" db:"type"`
	Title         string     `json:"title" db:"title"`
	Message       string     `json:"message" db:"message"`
	IsRead        bool       `json:"isRead" db:"is_read"`
	RequiresPro   bool       `json:"requiresPro" db:"requires_pro"`
	CreatedAt     time.Time  `json:"createdAt" db:"created_at"`
	ReadAt        *time.Time `json:"readAt,omitempty" db:"read_at"`
}
