package discord

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/bwmarrin/discordgo"

	"formrelay/adapters"
	"formrelay/models"
)

// DiscordAdapter posts submissions to a Discord channel using the discordgo
// SDK with the customer's bot token.
type DiscordAdapter struct {
	httpClient *http.Client
}

func NewDiscordAdapter(httpClient *http.Client) *DiscordAdapter {
	return &DiscordAdapter{httpClient: httpClient}
}

func (a *DiscordAdapter) Type() models.IntegrationType {
	return models.IntegrationTypeDiscord
}

func (a *DiscordAdapter) Deliver(
	ctx context.Context,
	config models.IntegrationConfig,
	payload models.SubmissionPayload,
) (string, error) {
	cfg := config.Discord
	if cfg == nil || cfg.BotToken == "" || cfg.ChannelID == "" {
		return "", adapters.NonRecoverableError("discord config is missing or incomplete")
	}

	session, err := discordgo.New("Bot " + cfg.BotToken)
	if err != nil {
		return "", adapters.NonRecoverableError("failed to create Discord session: %v", err)
	}
	session.Client = a.httpClient

	text := adapters.RenderSubmissionText(payload)
	message, err := session.ChannelMessageSend(cfg.ChannelID, text, discordgo.WithContext(ctx))
	if err != nil {
		return "", ClassifyDiscordError(err)
	}

	return fmt.Sprintf("discord message %s posted to channel %s", message.ID, cfg.ChannelID), nil
}

// ClassifyDiscordError maps discordgo errors onto retry semantics: rate
// limits and 5xx responses are retryable, other REST rejections (bad token,
// unknown channel, missing permissions) are terminal.
func ClassifyDiscordError(err error) error {
	var rateLimited *discordgo.RateLimitError
	if errors.As(err, &rateLimited) {
		return adapters.RecoverableError("discord rate limited, retry after %s: %v", rateLimited.RetryAfter, err)
	}

	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Response != nil {
		code := restErr.Response.StatusCode
		if code == http.StatusTooManyRequests || code >= 500 {
			return adapters.RecoverableError("discord returned status %d: %v", code, err)
		}
		return adapters.NonRecoverableError("discord returned status %d: %v", code, err)
	}

	return adapters.RecoverableError("discord delivery failed: %v", err)
}
