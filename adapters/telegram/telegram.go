package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"formrelay/adapters"
	"formrelay/models"
)

// TelegramAdapter sends submissions to a Telegram chat through the Bot API.
type TelegramAdapter struct {
	httpClient *http.Client
	// apiEndpoint lets tests point the SDK at a local server
	apiEndpoint string
}

func NewTelegramAdapter(httpClient *http.Client) *TelegramAdapter {
	return &TelegramAdapter{httpClient: httpClient, apiEndpoint: tgbotapi.APIEndpoint}
}

// NewTelegramAdapterWithEndpoint creates an adapter against a custom Bot API
// endpoint, used in tests.
func NewTelegramAdapterWithEndpoint(httpClient *http.Client, apiEndpoint string) *TelegramAdapter {
	return &TelegramAdapter{httpClient: httpClient, apiEndpoint: apiEndpoint}
}

func (a *TelegramAdapter) Type() models.IntegrationType {
	return models.IntegrationTypeTelegram
}

func (a *TelegramAdapter) Deliver(
	ctx context.Context,
	config models.IntegrationConfig,
	payload models.SubmissionPayload,
) (string, error) {
	cfg := config.Telegram
	if cfg == nil || cfg.BotToken == "" || cfg.ChatID == 0 {
		return "", adapters.NonRecoverableError("telegram config is missing or incomplete")
	}

	// tgbotapi has no context support, so the call is raced against ctx
	return adapters.RunWithContext(ctx, func() (string, error) {
		bot, err := tgbotapi.NewBotAPIWithClient(cfg.BotToken, a.apiEndpoint, a.httpClient)
		if err != nil {
			return "", classifyTelegramError(err)
		}

		message := tgbotapi.NewMessage(cfg.ChatID, adapters.RenderSubmissionText(payload))
		sent, err := bot.Send(message)
		if err != nil {
			return "", classifyTelegramError(err)
		}

		return fmt.Sprintf("telegram message %d sent to chat %d", sent.MessageID, cfg.ChatID), nil
	})
}

// classifyTelegramError maps Bot API errors onto retry semantics: rate
// limits and 5xx responses are retryable, client side rejections (bad token,
// chat not found, bot blocked) are terminal.
func classifyTelegramError(err error) error {
	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) {
		if apiErr.RetryAfter > 0 || apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= 500 {
			return adapters.RecoverableError("telegram returned code %d: %v", apiErr.Code, err)
		}
		if apiErr.Code >= 400 && apiErr.Code < 500 {
			return adapters.NonRecoverableError("telegram returned code %d: %v", apiErr.Code, err)
		}
	}
	return adapters.RecoverableError("telegram delivery failed: %v", err)
}
