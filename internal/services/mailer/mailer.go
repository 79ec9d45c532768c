// Package mailer defines the outbound email interface used by the services.
package mailer

import (
	"context"

	"telugulearn/internal/models"
)

// Mailer defines the interface for email sending functionality
type Mailer interface {
	// SendPasswordReset mails a one-time reset link to the user
	SendPasswordReset(ctx context.Context, user *models.User, resetToken string) error

	// SendBadgeEarned tells the user about a newly earned badge
	SendBadgeEarned(ctx context.Context, user *models.User, badge models.Badge) error

	// SendEmail sends a generic email with the given parameters
	SendEmail(ctx context.Context, to, subject, templateName string, data map[string]interface{}) error

	// IsEnabled returns whether email functionality is enabled
	IsEnabled() bool
}
