package models

import (
	"fmt"
	"time"
)

type IntegrationType string

const (
	IntegrationTypeWebhook   IntegrationType = "webhook"
	IntegrationTypeEmailSMTP IntegrationType = "email-smtp"
	IntegrationTypeSlack     IntegrationType = "slack"
	IntegrationTypeDiscord   IntegrationType = "discord"
	IntegrationTypeTelegram  IntegrationType = "telegram"
)

// IntegrationTypes lists every supported delivery channel.
var IntegrationTypes = []IntegrationType{
	IntegrationTypeWebhook,
	IntegrationTypeEmailSMTP,
	IntegrationTypeSlack,
	IntegrationTypeDiscord,
	IntegrationTypeTelegram,
}

func (t IntegrationType) IsValid() bool {
	for _, known := range IntegrationTypes {
		if t == known {
			return true
		}
	}
	return false
}

type IntegrationScope string

const (
	IntegrationScopeOrganization IntegrationScope = "organization"
	IntegrationScopeForm         IntegrationScope = "form"
)

func (s IntegrationScope) IsValid() bool {
	return s == IntegrationScopeOrganization || s == IntegrationScopeForm
}

// Integration is a configured delivery destination. FormID is non-nil iff
// Scope is IntegrationScopeForm. At most one active integration exists per
// (organization, type) slot at organization scope and per (form, type) slot
// at form scope; inactive historical rows may coexist.
type Integration struct {
	ID        string            `db:"id"              json:"id"`
	Scope     IntegrationScope  `db:"scope"           json:"scope"`
	OrgID     OrgID             `db:"organization_id" json:"organization_id"`
	FormID    *string           `db:"form_id"         json:"form_id,omitempty"`
	Type      IntegrationType   `db:"integration_type" json:"type"`
	Name      string            `db:"name"            json:"name"`
	Config    IntegrationConfig `json:"config"`
	Active    bool              `db:"active"          json:"active"`
	CreatedAt time.Time         `db:"created_at"      json:"created_at"`
	UpdatedAt time.Time         `db:"updated_at"      json:"updated_at"`
}

// IntegrationConfig is the polymorphic config blob - only the field matching
// the integration type is populated.
type IntegrationConfig struct {
	Webhook  *WebhookConfig  `json:"webhook,omitempty"`
	Email    *EmailConfig    `json:"email,omitempty"`
	Slack    *SlackConfig    `json:"slack,omitempty"`
	Discord  *DiscordConfig  `json:"discord,omitempty"`
	Telegram *TelegramConfig `json:"telegram,omitempty"`
}

type WebhookConfig struct {
	URL    string `json:"url"`
	Secret string `json:"secret,omitempty"`
}

type EmailConfig struct {
	Host     string   `json:"host"`
	Port     int      `json:"port"`
	Username string   `json:"username"`
	Password string   `json:"password"`
	From     string   `json:"from"`
	To       []string `json:"to"`
}

type SlackConfig struct {
	BotToken  string `json:"bot_token"`
	ChannelID string `json:"channel_id"`
}

type DiscordConfig struct {
	BotToken  string `json:"bot_token"`
	ChannelID string `json:"channel_id"`
}

type TelegramConfig struct {
	BotToken string `json:"bot_token"`
	ChatID   int64  `json:"chat_id"`
}

// Validate checks that the config blob matching the given type is populated
// with its required fields and that no mismatched blob is set.
func (c *IntegrationConfig) Validate(integrationType IntegrationType) error {
	switch integrationType {
	case IntegrationTypeWebhook:
		if c.Webhook == nil {
			return fmt.Errorf("webhook config is required for webhook integrations")
		}
		if c.Webhook.URL == "" {
			return fmt.Errorf("webhook URL cannot be empty")
		}
	case IntegrationTypeEmailSMTP:
		if c.Email == nil {
			return fmt.Errorf("email config is required for email-smtp integrations")
		}
		if c.Email.Host == "" || c.Email.Port == 0 {
			return fmt.Errorf("email SMTP host and port are required")
		}
		if c.Email.From == "" || len(c.Email.To) == 0 {
			return fmt.Errorf("email from and to addresses are required")
		}
	case IntegrationTypeSlack:
		if c.Slack == nil {
			return fmt.Errorf("slack config is required for slack integrations")
		}
		if c.Slack.BotToken == "" || c.Slack.ChannelID == "" {
			return fmt.Errorf("slack bot token and channel ID are required")
		}
	case IntegrationTypeDiscord:
		if c.Discord == nil {
			return fmt.Errorf("discord config is required for discord integrations")
		}
		if c.Discord.BotToken == "" || c.Discord.ChannelID == "" {
			return fmt.Errorf("discord bot token and channel ID are required")
		}
	case IntegrationTypeTelegram:
		if c.Telegram == nil {
			return fmt.Errorf("telegram config is required for telegram integrations")
		}
		if c.Telegram.BotToken == "" || c.Telegram.ChatID == 0 {
			return fmt.Errorf("telegram bot token and chat ID are required")
		}
	default:
		return fmt.Errorf("unsupported integration type: %s", integrationType)
	}
	return nil
}
