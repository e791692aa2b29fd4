package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"formrelay/adapters"
	"formrelay/models"
)

// WebhookAdapter posts the submission payload as JSON to a customer URL.
type WebhookAdapter struct {
	httpClient *http.Client
}

func NewWebhookAdapter(httpClient *http.Client) *WebhookAdapter {
	return &WebhookAdapter{httpClient: httpClient}
}

func (a *WebhookAdapter) Type() models.IntegrationType {
	return models.IntegrationTypeWebhook
}

func (a *WebhookAdapter) Deliver(
	ctx context.Context,
	config models.IntegrationConfig,
	payload models.SubmissionPayload,
) (string, error) {
	if config.Webhook == nil || config.Webhook.URL == "" {
		return "", adapters.NonRecoverableError("webhook config is missing or has no URL")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", adapters.NonRecoverableError("failed to marshal payload: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, config.Webhook.URL, bytes.NewReader(body))
	if err != nil {
		return "", adapters.NonRecoverableError("failed to build webhook request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if config.Webhook.Secret != "" {
		req.Header.Set("X-Signature-256", "sha256="+signBody(body, config.Webhook.Secret))
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", adapters.RecoverableError("webhook request failed: %v", err)
	}
	defer resp.Body.Close()

	// Drain so the connection can be reused
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return fmt.Sprintf("webhook delivered with status %d", resp.StatusCode), nil
	case resp.StatusCode == http.StatusRequestTimeout,
		resp.StatusCode == http.StatusTooManyRequests,
		resp.StatusCode >= 500:
		return "", adapters.RecoverableError("webhook returned status %d", resp.StatusCode)
	default:
		return "", adapters.NonRecoverableError("webhook returned status %d", resp.StatusCode)
	}
}

// signBody computes the hex encoded HMAC-SHA256 of the request body, so
// receivers can verify the payload came from us.
func signBody(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
