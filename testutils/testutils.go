package testutils

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/require"

	"formrelay/config"
	"formrelay/core"
	"formrelay/db"
	"formrelay/models"
)

// LoadTestConfig loads configuration for integration tests from environment
// variables. Tests that need a database should skip when this fails.
func LoadTestConfig() (*config.AppConfig, error) {
	// Try to load environment variables from various possible locations
	_ = godotenv.Load("../.env.test") // From services/ directory
	_ = godotenv.Load(".env.test")    // From root directory
	_ = godotenv.Load()               // Default .env file

	databaseURL := os.Getenv("DB_URL")
	if databaseURL == "" {
		return nil, fmt.Errorf("DB_URL is not set")
	}

	databaseSchema := os.Getenv("DB_SCHEMA")
	if databaseSchema == "" {
		return nil, fmt.Errorf("DB_SCHEMA is not set")
	}

	return &config.AppConfig{
		DatabaseURL:    databaseURL,
		DatabaseSchema: databaseSchema,
	}, nil
}

// CreateTestOrganization creates an organization with a unique secret key to
// avoid constraint violations across test runs.
func CreateTestOrganization(t *testing.T, organizationsRepo *db.PostgresOrganizationsRepository) *models.Organization {
	secretKey, err := core.NewSecretKey("sk")
	require.NoError(t, err, "Failed to generate test secret key")
	org := &models.Organization{
		ID:        models.OrgID(core.NewID("org")),
		Active:    true,
		SecretKey: &secretKey,
	}
	err = organizationsRepo.CreateOrganization(context.Background(), org)
	require.NoError(t, err, "Failed to create test organization")
	return org
}

// CreateTestForm creates a form owned by the given organization.
func CreateTestForm(
	t *testing.T,
	formsRepo *db.PostgresFormsRepository,
	orgID models.OrgID,
	useOrgIntegrations bool,
) *models.Form {
	suffix := uuid.New().String()[:8]
	form := &models.Form{
		ID:                 core.NewID("form"),
		OrgID:              &orgID,
		Name:               "Test Form " + suffix,
		Slug:               "test-form-" + suffix,
		SubmitHash:         uuid.New().String(),
		Active:             true,
		UseOrgIntegrations: useOrgIntegrations,
	}
	err := formsRepo.CreateForm(context.Background(), form)
	require.NoError(t, err, "Failed to create test form")
	return form
}

// CreateTestWebhookIntegration creates a webhook integration at the given
// scope. FormID must be nil for organization scope and non-nil for form scope.
func CreateTestWebhookIntegration(
	t *testing.T,
	integrationsRepo *db.PostgresIntegrationsRepository,
	orgID models.OrgID,
	scope models.IntegrationScope,
	formID *string,
	active bool,
) *models.Integration {
	integration := &models.Integration{
		ID:     core.NewID("intg"),
		Scope:  scope,
		OrgID:  orgID,
		FormID: formID,
		Type:   models.IntegrationTypeWebhook,
		Name:   "test webhook " + uuid.New().String()[:8],
		Config: models.IntegrationConfig{
			Webhook: &models.WebhookConfig{URL: "https://example.com/hook"},
		},
		Active: active,
	}
	err := integrationsRepo.CreateIntegration(context.Background(), integration)
	require.NoError(t, err, "Failed to create test integration")
	return integration
}

// CreateTestJob creates a delivery job in CREATED state for the given
// integration.
func CreateTestJob(
	t *testing.T,
	jobsRepo *db.PostgresDeliveryJobsRepository,
	integration *models.Integration,
	formID string,
) *models.DeliveryJob {
	job := &models.DeliveryJob{
		ID:              core.NewID("job"),
		Queue:           models.QueueNameForType(integration.Type),
		OrgID:           integration.OrgID,
		FormID:          formID,
		IntegrationID:   integration.ID,
		IntegrationType: integration.Type,
		Config:          integration.Config,
		State:           models.JobStateCreated,
		Payload: models.SubmissionPayload{
			FormID:   formID,
			FormName: "Test Form",
			Fields:   map[string]any{"email": "test@example.com"},
		},
	}
	err := jobsRepo.CreateJob(context.Background(), job)
	require.NoError(t, err, "Failed to create test job")
	return job
}
