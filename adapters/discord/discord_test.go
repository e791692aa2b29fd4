package discord

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"formrelay/adapters"
	"formrelay/models"
)

func TestDiscordAdapterDeliver(t *testing.T) {
	t.Run("missing config is not recoverable", func(t *testing.T) {
		adapter := NewDiscordAdapter(&http.Client{Timeout: time.Second})
		_, err := adapter.Deliver(context.Background(), models.IntegrationConfig{}, models.SubmissionPayload{})

		require.Error(t, err)
		assert.False(t, adapters.IsRecoverable(err))
	})
}

func TestClassifyDiscordError(t *testing.T) {
	restError := func(statusCode int) *discordgo.RESTError {
		return &discordgo.RESTError{
			Response: &http.Response{StatusCode: statusCode},
		}
	}

	t.Run("rate limit is recoverable", func(t *testing.T) {
		err := ClassifyDiscordError(&discordgo.RateLimitError{
			RateLimit: &discordgo.RateLimit{TooManyRequests: &discordgo.TooManyRequests{RetryAfter: 5 * time.Second}},
		})
		assert.True(t, adapters.IsRecoverable(err))
	})

	t.Run("status 503 is recoverable", func(t *testing.T) {
		assert.True(t, adapters.IsRecoverable(ClassifyDiscordError(restError(http.StatusServiceUnavailable))))
	})

	t.Run("status 429 is recoverable", func(t *testing.T) {
		assert.True(t, adapters.IsRecoverable(ClassifyDiscordError(restError(http.StatusTooManyRequests))))
	})

	t.Run("status 401 is not recoverable", func(t *testing.T) {
		assert.False(t, adapters.IsRecoverable(ClassifyDiscordError(restError(http.StatusUnauthorized))))
	})

	t.Run("status 404 is not recoverable", func(t *testing.T) {
		assert.False(t, adapters.IsRecoverable(ClassifyDiscordError(restError(http.StatusNotFound))))
	})

	t.Run("network errors default to recoverable", func(t *testing.T) {
		assert.True(t, adapters.IsRecoverable(ClassifyDiscordError(errors.New("dial tcp: i/o timeout"))))
	})
}
