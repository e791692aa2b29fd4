package slack

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/slack-go/slack"

	"formrelay/adapters"
	"formrelay/models"
)

// SlackAdapter posts submissions to a Slack channel using the slack-go SDK
// with the customer's bot token.
type SlackAdapter struct {
	httpClient *http.Client
	// extraOptions lets tests point the SDK at a local server
	extraOptions []slack.Option
}

func NewSlackAdapter(httpClient *http.Client, extraOptions ...slack.Option) *SlackAdapter {
	return &SlackAdapter{httpClient: httpClient, extraOptions: extraOptions}
}

func (a *SlackAdapter) Type() models.IntegrationType {
	return models.IntegrationTypeSlack
}

func (a *SlackAdapter) Deliver(
	ctx context.Context,
	config models.IntegrationConfig,
	payload models.SubmissionPayload,
) (string, error) {
	cfg := config.Slack
	if cfg == nil || cfg.BotToken == "" || cfg.ChannelID == "" {
		return "", adapters.NonRecoverableError("slack config is missing or incomplete")
	}

	options := append([]slack.Option{slack.OptionHTTPClient(a.httpClient)}, a.extraOptions...)
	client := slack.New(cfg.BotToken, options...)

	text := adapters.RenderSubmissionText(payload)
	channel, timestamp, err := client.PostMessageContext(ctx, cfg.ChannelID, slack.MsgOptionText(text, false))
	if err != nil {
		return "", classifySlackError(err)
	}

	return fmt.Sprintf("slack message posted to %s at %s", channel, timestamp), nil
}

// classifySlackError maps SDK errors onto retry semantics: rate limits and
// server side trouble are retryable, API rejections like invalid_auth or
// channel_not_found are terminal.
func classifySlackError(err error) error {
	var rateLimited *slack.RateLimitedError
	if errors.As(err, &rateLimited) {
		return adapters.RecoverableError("slack rate limited, retry after %s: %v", rateLimited.RetryAfter, err)
	}

	var statusCode slack.StatusCodeError
	if errors.As(err, &statusCode) {
		if statusCode.Code == http.StatusTooManyRequests || statusCode.Code >= 500 {
			return adapters.RecoverableError("slack returned status %d: %v", statusCode.Code, err)
		}
		return adapters.NonRecoverableError("slack returned status %d: %v", statusCode.Code, err)
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return adapters.RecoverableError("slack request timed out: %v", err)
	}

	var slackErr slack.SlackErrorResponse
	if errors.As(err, &slackErr) {
		return adapters.NonRecoverableError("slack API rejected message: %v", err)
	}

	// API error strings like invalid_auth come through as plain errors
	switch err.Error() {
	case "invalid_auth", "not_authed", "account_inactive", "token_revoked",
		"channel_not_found", "not_in_channel", "is_archived", "msg_too_long":
		return adapters.NonRecoverableError("slack API rejected message: %v", err)
	}

	return adapters.RecoverableError("slack delivery failed: %v", err)
}
