package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// DeliveryConfig holds the tunable policy for the delivery pipeline. The
// backoff curve and retry ceiling are policy choices, not protocol
// guarantees, so everything here is env-configurable with safe defaults.
type DeliveryConfig struct {
	WorkersPerQueue   int
	MaxRetries        int
	DeliveryTimeout   time.Duration
	SweepInterval     time.Duration
	BackoffInitial    time.Duration
	BackoffMultiplier float64
	BackoffMax        time.Duration
}

type AlertConfig struct {
	SlackWebhookURL   string
	SignupsWebhookURL string
}

type AppConfig struct {
	// Core configuration (always required)
	DatabaseURL        string
	DatabaseSchema     string
	Port               string // Optional with default "8080"
	CORSAllowedOrigins string // Optional with default "*"
	Environment        string
	ServerLogsURL      string

	Delivery DeliveryConfig
	Alerts   AlertConfig
}

func LoadConfig() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		fmt.Println("⚠️ Could not load .env file, continuing with system env vars")
	}

	// Core required configuration
	databaseURL, err := getEnvRequired("DB_URL")
	if err != nil {
		return nil, err
	}

	databaseSchema, err := getEnvRequired("DB_SCHEMA")
	if err != nil {
		return nil, err
	}

	config := &AppConfig{
		// Core configuration
		DatabaseURL:        databaseURL,
		DatabaseSchema:     databaseSchema,
		Port:               getEnvWithDefault("PORT", "8080"),
		CORSAllowedOrigins: getEnvWithDefault("CORS_ALLOWED_ORIGINS", "*"),
		Environment:        getEnvWithDefault("ENVIRONMENT", "dev"),
		ServerLogsURL:      getEnvWithDefault("SERVER_LOGS_URL", ""),

		Delivery: DeliveryConfig{
			WorkersPerQueue:   getEnvInt("DELIVERY_WORKERS_PER_QUEUE", 4),
			MaxRetries:        getEnvInt("DELIVERY_MAX_RETRIES", 3),
			DeliveryTimeout:   getEnvDuration("DELIVERY_TIMEOUT", 30*time.Second),
			SweepInterval:     getEnvDuration("DELIVERY_SWEEP_INTERVAL", 15*time.Second),
			BackoffInitial:    getEnvDuration("DELIVERY_BACKOFF_INITIAL", 30*time.Second),
			BackoffMultiplier: getEnvFloat("DELIVERY_BACKOFF_MULTIPLIER", 2.0),
			BackoffMax:        getEnvDuration("DELIVERY_BACKOFF_MAX", 15*time.Minute),
		},

		Alerts: AlertConfig{
			SlackWebhookURL:   os.Getenv("SLACK_ALERT_WEBHOOK_URL"),
			SignupsWebhookURL: os.Getenv("SLACK_SIGNUP_WEBHOOK_URL"),
		},
	}

	if config.Alerts.SlackWebhookURL != "" {
		log.Printf("✅ Slack error alerting configured")
	} else {
		log.Printf("⚠️ Slack error alerting not configured - operational alerts will be disabled")
	}

	log.Printf("✅ Delivery policy: %d workers/queue, %d max retries, backoff %s x%.1f capped at %s",
		config.Delivery.WorkersPerQueue,
		config.Delivery.MaxRetries,
		config.Delivery.BackoffInitial,
		config.Delivery.BackoffMultiplier,
		config.Delivery.BackoffMax,
	)

	return config, nil
}

func getEnvRequired(key string) (string, error) {
	value := os.Getenv(key)
	if value == "" {
		return "", fmt.Errorf("%s is not set", key)
	}
	return value, nil
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("⚠️ Invalid integer for %s: %q, using default %d", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		log.Printf("⚠️ Invalid float for %s: %q, using default %f", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		log.Printf("⚠️ Invalid duration for %s: %q, using default %s", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}
