// Package services provides the business logic of the learning backend.
package services

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"strings"
	"time"

	"telugulearn/internal/config"
	"telugulearn/internal/models"
	"telugulearn/internal/observability"
	"telugulearn/internal/services/mailer"
	contextutils "telugulearn/internal/utils"

	"go.opentelemetry.io/otel/attribute"
	"gopkg.in/mail.v2"
)

//go:embed templates/email/*.html
var emailTemplateFS embed.FS

var emailTemplates = template.Must(template.ParseFS(emailTemplateFS, "templates/email/*.html"))

// EmailService implements mailer.Mailer using gomail
type EmailService struct {
	cfg    *config.Config
	logger *observability.Logger
	dialer *mail.Dialer
}

var _ mailer.Mailer = (*EmailService)(nil)

// NewEmailService creates a new EmailService instance
func NewEmailService(cfg *config.Config, logger *observability.Logger) *EmailService {
	var dialer *mail.Dialer
	if cfg.Email.Enabled && cfg.Email.SMTP.Host != "" {
		dialer = mail.NewDialer(
			cfg.Email.SMTP.Host,
			cfg.Email.SMTP.Port,
			cfg.Email.SMTP.Username,
			cfg.Email.SMTP.Password,
		)
	}

	return &EmailService{
		cfg:    cfg,
		logger: logger,
		dialer: dialer,
	}
}

// SendPasswordReset mails a reset link built from the app base URL
func (e *EmailService) SendPasswordReset(ctx context.Context, user *models.User, resetToken string) (err error) {
	ctx, span := observability.TraceNotificationFunction(ctx, "SendPasswordReset", observability.AttributeUserID(user.ID))
	defer observability.FinishSpan(span, &err)

	return e.SendEmail(ctx, user.Email, "Reset your Telugu Learn password", "password_reset", passwordResetData(e.cfg, user, resetToken))
}

// SendBadgeEarned mails a congratulation for a new badge
func (e *EmailService) SendBadgeEarned(ctx context.Context, user *models.User, badge models.Badge) (err error) {
	ctx, span := observability.TraceNotificationFunction(ctx, "SendBadgeEarned",
		observability.AttributeUserID(user.ID), attribute.String("badge.code", badge.Code))
	defer observability.FinishSpan(span, &err)

	return e.SendEmail(ctx, user.Email, fmt.Sprintf("New badge: %s", badge.Name), "badge_earned", badgeEarnedData(e.cfg, user, badge))
}

// SendEmail sends a generic email with the given parameters
func (e *EmailService) SendEmail(ctx context.Context, to, subject, templateName string, data map[string]interface{}) (err error) {
	ctx, span := observability.TraceNotificationFunction(ctx, "SendEmail",
		attribute.String("email.subject", subject),
		attribute.String("email.template", templateName),
	)
	defer observability.FinishSpan(span, &err)

	if !e.IsEnabled() {
		e.logger.Info(ctx, "Email disabled, skipping email send", map[string]interface{}{
			"template": templateName,
		})
		return nil
	}
	if e.dialer == nil {
		return contextutils.ErrorWithContextf("email service not properly configured")
	}
	if to == "" {
		return contextutils.WrapError(contextutils.ErrMissingRequired, "recipient address is empty")
	}

	content, err := renderEmail(templateName, data)
	if err != nil {
		return err
	}

	m := mail.NewMessage()
	m.SetHeader("From", m.FormatAddress(e.cfg.Email.SMTP.FromAddress, e.cfg.Email.SMTP.FromName))
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", content)

	if err = e.dialer.DialAndSend(m); err != nil {
		e.logger.Error(ctx, "Failed to send email", err, map[string]interface{}{
			"template": templateName,
			"subject":  subject,
		})
		return contextutils.WrapError(err, "failed to send email")
	}

	e.logger.Info(ctx, "Email sent successfully", map[string]interface{}{
		"template": templateName,
		"subject":  subject,
	})
	return nil
}

// IsEnabled returns whether email functionality is enabled
func (e *EmailService) IsEnabled() bool {
	return e.cfg.Email.Enabled && e.cfg.Email.SMTP.Host != ""
}

func renderEmail(templateName string, data map[string]interface{}) (string, error) {
	tmpl := emailTemplates.Lookup(templateName + ".html")
	if tmpl == nil {
		return "", contextutils.ErrorWithContextf("unknown template: %s", templateName)
	}
	var buf strings.Builder
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", contextutils.WrapError(err, "failed to execute template")
	}
	return buf.String(), nil
}

func passwordResetData(cfg *config.Config, user *models.User, resetToken string) map[string]interface{} {
	ttl := cfg.Auth.ResetTokenTTL
	if ttl <= 0 {
		ttl = config.DefaultResetTokenTTL
	}
	return map[string]interface{}{
		"Username": user.Username,
		"ResetURL": fmt.Sprintf("%s/reset-password?token=%s", strings.TrimRight(cfg.Server.AppBaseURL, "/"), resetToken),
		"ValidFor": ttl.String(),
	}
}

func badgeEarnedData(cfg *config.Config, user *models.User, badge models.Badge) map[string]interface{} {
	return map[string]interface{}{
		"Username":         user.Username,
		"BadgeName":        badge.Name,
		"BadgeDescription": badge.Description,
		"Points":           badge.Points,
		"AppURL":           strings.TrimRight(cfg.Server.AppBaseURL, "/"),
		"SentAt":           time.Now().UTC().Format(time.RFC1123),
	}
}
