package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"formrelay/adapters"
	"formrelay/models"
)

func telegramConfig() models.IntegrationConfig {
	return models.IntegrationConfig{Telegram: &models.TelegramConfig{
		BotToken: "123456:test-token",
		ChatID:   987654321,
	}}
}

func testPayload() models.SubmissionPayload {
	return models.SubmissionPayload{
		FormName:   "Contact Us",
		ReceivedAt: time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC),
		Fields:     map[string]any{"email": "ada@example.com"},
	}
}

// botAPIServer fakes the Telegram Bot API: getMe for the SDK self check plus
// a configurable sendMessage response.
func botAPIServer(t *testing.T, sendMessage http.HandlerFunc) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/bot123456:test-token/getMe", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"forms","username":"formsbot"}}`))
	})
	mux.HandleFunc("/bot123456:test-token/sendMessage", sendMessage)
	return httptest.NewServer(mux)
}

func TestTelegramAdapterDeliver(t *testing.T) {
	t.Run("sends rendered text to the configured chat", func(t *testing.T) {
		var gotChatID, gotText string
		server := botAPIServer(t, func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, r.ParseForm())
			gotChatID = r.Form.Get("chat_id")
			gotText = r.Form.Get("text")
			w.Header().Set("Content-Type", "application/json")
			response := map[string]any{
				"ok":     true,
				"result": map[string]any{"message_id": 42, "chat": map[string]any{"id": 987654321}},
			}
			_ = json.NewEncoder(w).Encode(response)
		})
		defer server.Close()

		adapter := NewTelegramAdapterWithEndpoint(server.Client(), server.URL+"/bot%s/%s")
		detail, err := adapter.Deliver(context.Background(), telegramConfig(), testPayload())

		require.NoError(t, err)
		assert.Contains(t, detail, "42")
		assert.Equal(t, "987654321", gotChatID)
		assert.Contains(t, gotText, "New submission for Contact Us")
		assert.Contains(t, gotText, "email: ada@example.com")
	})

	t.Run("unauthorized token is not recoverable", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"ok":false,"error_code":401,"description":"Unauthorized"}`))
		})
		server := httptest.NewServer(mux)
		defer server.Close()

		adapter := NewTelegramAdapterWithEndpoint(server.Client(), server.URL+"/bot%s/%s")
		_, err := adapter.Deliver(context.Background(), telegramConfig(), testPayload())

		require.Error(t, err)
		assert.False(t, adapters.IsRecoverable(err))
	})

	t.Run("missing config is not recoverable", func(t *testing.T) {
		adapter := NewTelegramAdapter(&http.Client{Timeout: time.Second})
		_, err := adapter.Deliver(context.Background(), models.IntegrationConfig{}, testPayload())

		require.Error(t, err)
		assert.False(t, adapters.IsRecoverable(err))
	})
}

func TestClassifyTelegramError(t *testing.T) {
	t.Run("retry_after is recoverable", func(t *testing.T) {
		err := classifyTelegramError(&tgbotapi.Error{
			Code:               429,
			Message:            "Too Many Requests",
			ResponseParameters: tgbotapi.ResponseParameters{RetryAfter: 30},
		})
		assert.True(t, adapters.IsRecoverable(err))
	})

	t.Run("server error is recoverable", func(t *testing.T) {
		err := classifyTelegramError(&tgbotapi.Error{Code: 502, Message: "Bad Gateway"})
		assert.True(t, adapters.IsRecoverable(err))
	})

	t.Run("bad request is not recoverable", func(t *testing.T) {
		err := classifyTelegramError(&tgbotapi.Error{Code: 400, Message: "Bad Request: chat not found"})
		assert.False(t, adapters.IsRecoverable(err))
	})

	t.Run("forbidden is not recoverable", func(t *testing.T) {
		err := classifyTelegramError(&tgbotapi.Error{Code: 403, Message: "Forbidden: bot was blocked by the user"})
		assert.False(t, adapters.IsRecoverable(err))
	})

	t.Run("network errors default to recoverable", func(t *testing.T) {
		err := classifyTelegramError(errors.New("dial tcp: connection refused"))
		assert.True(t, adapters.IsRecoverable(err))
	})
}
