package services

import (
	"context"
	"sync"

	"telugulearn/internal/config"
	"telugulearn/internal/models"
	"telugulearn/internal/observability"
	"telugulearn/internal/services/mailer"
)

// SentEmail is a message captured by TestEmailService
type SentEmail struct {
	To       string
	Subject  string
	Template string
	Data     map[string]interface{}
}

// TestEmailService implements the Mailer interface for test mode.
// It renders nothing and sends nothing; messages are kept in memory.
type TestEmailService struct {
	cfg    *config.Config
	logger *observability.Logger

	mu   sync.Mutex
	sent []SentEmail
}

var _ mailer.Mailer = (*TestEmailService)(nil)

// NewTestEmailService creates a new TestEmailService instance
func NewTestEmailService(cfg *config.Config, logger *observability.Logger) *TestEmailService {
	return &TestEmailService{
		cfg:    cfg,
		logger: logger,
	}
}

// SendPasswordReset records a password reset email
func (e *TestEmailService) SendPasswordReset(ctx context.Context, user *models.User, resetToken string) error {
	data := passwordResetData(e.cfg, user, resetToken)
	data["Token"] = resetToken
	return e.SendEmail(ctx, user.Email, "Reset your Telugu Learn password", "password_reset", data)
}

// SendBadgeEarned records a badge email
func (e *TestEmailService) SendBadgeEarned(ctx context.Context, user *models.User, badge models.Badge) error {
	return e.SendEmail(ctx, user.Email, "New badge: "+badge.Name, "badge_earned", badgeEarnedData(e.cfg, user, badge))
}

// SendEmail logs and records the message
func (e *TestEmailService) SendEmail(ctx context.Context, to, subject, templateName string, data map[string]interface{}) error {
	e.logger.Info(ctx, "TEST MODE: Would send email", map[string]interface{}{
		"template":  templateName,
		"subject":   subject,
		"test_mode": true,
	})

	e.mu.Lock()
	defer e.mu.Unlock()
	e.sent = append(e.sent, SentEmail{To: to, Subject: subject, Template: templateName, Data: data})
	return nil
}

// IsEnabled always reports true so callers exercise the send path
func (e *TestEmailService) IsEnabled() bool {
	return true
}

// Sent returns a copy of the captured messages
func (e *TestEmailService) Sent() []SentEmail {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]SentEmail, len(e.sent))
	copy(out, e.sent)
	return out
}
