package signupnotif

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"formrelay/models"
)

var (
	instance *SignupNotifier
	once     sync.Once
)

type SignupNotifier struct {
	webhookURL  string
	environment string
	appName     string
	mu          sync.RWMutex
}

// Init initializes the global signup notifier instance
func Init(webhookURL, environment string) {
	once.Do(func() {
		instance = &SignupNotifier{
			webhookURL:  webhookURL,
			environment: environment,
			appName:     "Formrelay",
		}
	})
}

// New sends a signup notification message to Slack
func New(orgID models.OrgID, message string) {
	if instance == nil {
		log.Printf("⚠️ Signup notifier not initialized, skipping notification: %s", message)
		return
	}

	instance.send(orgID, message)
}

func (s *SignupNotifier) send(orgID models.OrgID, message string) {
	if s.webhookURL == "" {
		return // Signup notifications disabled
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	// Send notification asynchronously to avoid blocking
	go s.sendSlackNotification(orgID, message)
}

func (s *SignupNotifier) sendSlackNotification(orgID models.OrgID, message string) {
	// Build fields array
	fields := []map[string]any{
		{"type": "mrkdwn", "text": fmt.Sprintf("*Service:* %s", s.appName)},
		{"type": "mrkdwn", "text": fmt.Sprintf("*Environment:* %s", s.environment)},
	}

	// Add OrgID field if provided
	if orgID != "" {
		fields = append(fields, map[string]any{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*OrgID:* `%s`", string(orgID)),
		})
	}

	// Add timestamp
	fields = append(fields, map[string]any{
		"type": "mrkdwn",
		"text": fmt.Sprintf("*Timestamp:* %s", time.Now().Format("2006-01-02 15:04:05 UTC")),
	})

	payload := map[string]any{
		"blocks": []map[string]any{
			{
				"type":   "section",
				"fields": fields,
			},
			{
				"type": "section",
				"text": map[string]any{
					"type": "mrkdwn",
					"text": fmt.Sprintf("📊 *Activity:*\n%s", message),
				},
			},
		},
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		log.Printf("❌ Failed to marshal signup notification payload: %v", err)
		return
	}

	// Create request with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "POST", s.webhookURL, strings.NewReader(string(payloadBytes)))
	if err != nil {
		log.Printf("❌ Failed to create signup notification request: %v", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Printf("❌ Failed to send signup notification: %v", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Printf("❌ Signup notification failed with status: %d", resp.StatusCode)
		return
	}

	log.Printf("💰 Signup notification sent: %s", message)
}
