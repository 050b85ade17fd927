// internal/services/notification/config.go
package notification

// Config controls the outbound channels. Email and SMS can be toggled
// independently; in-app notifications are always written.
type Config struct {
	EmailEnabled bool
	SMSEnabled   bool
	FromEmail    string
	BaseURL      string
}
