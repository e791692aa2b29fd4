package email

import (
	"context"
	"fmt"
	"strings"

	gomail "gopkg.in/gomail.v2"

	"formrelay/adapters"
	"formrelay/models"
)

// EmailAdapter delivers submissions over SMTP using the customer's own
// server credentials.
type EmailAdapter struct{}

func NewEmailAdapter() *EmailAdapter {
	return &EmailAdapter{}
}

func (a *EmailAdapter) Type() models.IntegrationType {
	return models.IntegrationTypeEmailSMTP
}

func (a *EmailAdapter) Deliver(
	ctx context.Context,
	config models.IntegrationConfig,
	payload models.SubmissionPayload,
) (string, error) {
	cfg := config.Email
	if cfg == nil || cfg.Host == "" || cfg.From == "" || len(cfg.To) == 0 {
		return "", adapters.NonRecoverableError("email config is missing or incomplete")
	}

	message := gomail.NewMessage()
	message.SetHeader("From", cfg.From)
	message.SetHeader("To", cfg.To...)
	message.SetHeader("Subject", fmt.Sprintf("New submission for %s", payload.FormName))
	message.SetBody("text/plain", adapters.RenderSubmissionText(payload))

	dialer := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)

	// gomail has no context support, so the call is raced against ctx
	return adapters.RunWithContext(ctx, func() (string, error) {
		if err := dialer.DialAndSend(message); err != nil {
			return "", classifySMTPError(err)
		}
		return fmt.Sprintf("email sent to %d recipient(s) via %s", len(cfg.To), cfg.Host), nil
	})
}

// classifySMTPError treats authentication rejections as terminal and
// everything else (connect failures, greeting timeouts, transient 4xx SMTP
// codes) as retryable.
func classifySMTPError(err error) error {
	msg := strings.ToLower(err.Error())
	authMarkers := []string{
		"535 ",
		"534 ",
		"530 ",
		"username and password not accepted",
		"authentication failed",
		"invalid credentials",
	}
	for _, marker := range authMarkers {
		if strings.Contains(msg, marker) {
			return adapters.NonRecoverableError("smtp authentication failed: %v", err)
		}
	}
	return adapters.RecoverableError("smtp delivery failed: %v", err)
}
