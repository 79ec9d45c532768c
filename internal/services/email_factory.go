package services

import (
	"context"

	"telugulearn/internal/config"
	"telugulearn/internal/observability"
	"telugulearn/internal/services/mailer"
)

// CreateEmailService creates an appropriate email service based on configuration.
// Test mode gets a TestEmailService, everything else the SMTP-backed service.
func CreateEmailService(cfg *config.Config, logger *observability.Logger) mailer.Mailer {
	if cfg.IsTest {
		logger.Info(context.Background(), "Using test email service", map[string]interface{}{
			"test_mode": true,
		})
		return NewTestEmailService(cfg, logger)
	}

	return NewEmailService(cfg, logger)
}
