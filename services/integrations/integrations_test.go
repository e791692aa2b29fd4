package integrations

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"formrelay/core"
	"formrelay/db"
	"formrelay/models"
	"formrelay/services"
	"formrelay/services/txmanager"
	"formrelay/testutils"
)

type integrationsTestFixture struct {
	service          *IntegrationsService
	integrationsRepo *db.PostgresIntegrationsRepository
	formsRepo        *db.PostgresFormsRepository
	org              *models.Organization
	form             *models.Form
}

func setupTestIntegrationsService(t *testing.T) (*integrationsTestFixture, func()) {
	cfg, err := testutils.LoadTestConfig()
	if err != nil {
		t.Skipf("Skipping integration test: %v", err)
	}

	dbConn, err := db.NewConnection(cfg.DatabaseURL)
	require.NoError(t, err, "Failed to create database connection")

	organizationsRepo := db.NewPostgresOrganizationsRepository(dbConn, cfg.DatabaseSchema)
	formsRepo := db.NewPostgresFormsRepository(dbConn, cfg.DatabaseSchema)
	integrationsRepo := db.NewPostgresIntegrationsRepository(dbConn, cfg.DatabaseSchema)

	org := testutils.CreateTestOrganization(t, organizationsRepo)
	form := testutils.CreateTestForm(t, formsRepo, org.ID, true)

	fixture := &integrationsTestFixture{
		service:          NewIntegrationsService(integrationsRepo, formsRepo, txmanager.NewTransactionManager(dbConn)),
		integrationsRepo: integrationsRepo,
		formsRepo:        formsRepo,
		org:              org,
		form:             form,
	}

	cleanup := func() {
		_ = formsRepo.DeleteForm(context.Background(), form.ID, org.ID)
		dbConn.Close()
	}
	return fixture, cleanup
}

func webhookParams(scope models.IntegrationScope, formID *string, active bool) services.CreateIntegrationParams {
	return services.CreateIntegrationParams{
		Scope:  scope,
		FormID: formID,
		Type:   models.IntegrationTypeWebhook,
		Name:   "notify",
		Config: models.IntegrationConfig{
			Webhook: &models.WebhookConfig{URL: "https://example.com/hook"},
		},
		Active: active,
	}
}

func TestCreateIntegration(t *testing.T) {
	fixture, cleanup := setupTestIntegrationsService(t)
	defer cleanup()
	ctx := context.Background()

	t.Run("activating a slot deactivates the previous holder", func(t *testing.T) {
		first, err := fixture.service.CreateIntegration(ctx, fixture.org.ID,
			webhookParams(models.IntegrationScopeOrganization, nil, true))
		require.NoError(t, err)
		defer fixture.service.DeleteIntegration(ctx, fixture.org.ID, first.ID)

		second, err := fixture.service.CreateIntegration(ctx, fixture.org.ID,
			webhookParams(models.IntegrationScopeOrganization, nil, true))
		require.NoError(t, err)
		defer fixture.service.DeleteIntegration(ctx, fixture.org.ID, second.ID)

		stored, err := fixture.service.GetIntegrationByID(ctx, fixture.org.ID, first.ID)
		require.NoError(t, err)
		assert.False(t, stored.MustGet().Active, "previous slot holder must be deactivated")

		stored, err = fixture.service.GetIntegrationByID(ctx, fixture.org.ID, second.ID)
		require.NoError(t, err)
		assert.True(t, stored.MustGet().Active)
	})

	t.Run("form scoped slots do not affect organization scoped ones", func(t *testing.T) {
		orgScoped, err := fixture.service.CreateIntegration(ctx, fixture.org.ID,
			webhookParams(models.IntegrationScopeOrganization, nil, true))
		require.NoError(t, err)
		defer fixture.service.DeleteIntegration(ctx, fixture.org.ID, orgScoped.ID)

		formScoped, err := fixture.service.CreateIntegration(ctx, fixture.org.ID,
			webhookParams(models.IntegrationScopeForm, &fixture.form.ID, true))
		require.NoError(t, err)
		defer fixture.service.DeleteIntegration(ctx, fixture.org.ID, formScoped.ID)

		stored, err := fixture.service.GetIntegrationByID(ctx, fixture.org.ID, orgScoped.ID)
		require.NoError(t, err)
		assert.True(t, stored.MustGet().Active, "organization slot must survive a form scoped activation")
	})

	t.Run("inactive integration leaves the slot alone", func(t *testing.T) {
		active, err := fixture.service.CreateIntegration(ctx, fixture.org.ID,
			webhookParams(models.IntegrationScopeOrganization, nil, true))
		require.NoError(t, err)
		defer fixture.service.DeleteIntegration(ctx, fixture.org.ID, active.ID)

		inactive, err := fixture.service.CreateIntegration(ctx, fixture.org.ID,
			webhookParams(models.IntegrationScopeOrganization, nil, false))
		require.NoError(t, err)
		defer fixture.service.DeleteIntegration(ctx, fixture.org.ID, inactive.ID)

		stored, err := fixture.service.GetIntegrationByID(ctx, fixture.org.ID, active.ID)
		require.NoError(t, err)
		assert.True(t, stored.MustGet().Active)
	})

	t.Run("rejects organization scope with a form ID", func(t *testing.T) {
		_, err := fixture.service.CreateIntegration(ctx, fixture.org.ID,
			webhookParams(models.IntegrationScopeOrganization, &fixture.form.ID, true))
		require.Error(t, err)
		assert.True(t, core.IsInvalidError(err))
	})

	t.Run("rejects form scope without a form ID", func(t *testing.T) {
		_, err := fixture.service.CreateIntegration(ctx, fixture.org.ID,
			webhookParams(models.IntegrationScopeForm, nil, true))
		require.Error(t, err)
		assert.True(t, core.IsInvalidError(err))
	})

	t.Run("rejects a form owned by another organization", func(t *testing.T) {
		foreignFormID := core.NewID("form")
		_, err := fixture.service.CreateIntegration(ctx, fixture.org.ID,
			webhookParams(models.IntegrationScopeForm, &foreignFormID, true))
		require.Error(t, err)
		assert.True(t, core.IsInvalidError(err))
	})

	t.Run("rejects a config not matching the type", func(t *testing.T) {
		params := webhookParams(models.IntegrationScopeOrganization, nil, true)
		params.Config = models.IntegrationConfig{
			Slack: &models.SlackConfig{BotToken: "xoxb-test", ChannelID: "C123"},
		}
		_, err := fixture.service.CreateIntegration(ctx, fixture.org.ID, params)
		require.Error(t, err)
		assert.True(t, core.IsInvalidError(err))
	})
}

func TestUpdateIntegration(t *testing.T) {
	fixture, cleanup := setupTestIntegrationsService(t)
	defer cleanup()
	ctx := context.Background()

	t.Run("reactivating takes over the slot", func(t *testing.T) {
		first, err := fixture.service.CreateIntegration(ctx, fixture.org.ID,
			webhookParams(models.IntegrationScopeOrganization, nil, false))
		require.NoError(t, err)
		defer fixture.service.DeleteIntegration(ctx, fixture.org.ID, first.ID)

		second, err := fixture.service.CreateIntegration(ctx, fixture.org.ID,
			webhookParams(models.IntegrationScopeOrganization, nil, true))
		require.NoError(t, err)
		defer fixture.service.DeleteIntegration(ctx, fixture.org.ID, second.ID)

		updated, err := fixture.service.UpdateIntegration(ctx, fixture.org.ID, first.ID,
			services.UpdateIntegrationParams{
				Name: "notify v2",
				Config: models.IntegrationConfig{
					Webhook: &models.WebhookConfig{URL: "https://example.com/hook-v2"},
				},
				Active: true,
			})
		require.NoError(t, err)
		assert.True(t, updated.Active)
		assert.Equal(t, "notify v2", updated.Name)
		assert.Equal(t, "https://example.com/hook-v2", updated.Config.Webhook.URL)

		stored, err := fixture.service.GetIntegrationByID(ctx, fixture.org.ID, second.ID)
		require.NoError(t, err)
		assert.False(t, stored.MustGet().Active, "other slot holder must be deactivated")
	})

	t.Run("not found for foreign organization", func(t *testing.T) {
		integration, err := fixture.service.CreateIntegration(ctx, fixture.org.ID,
			webhookParams(models.IntegrationScopeOrganization, nil, false))
		require.NoError(t, err)
		defer fixture.service.DeleteIntegration(ctx, fixture.org.ID, integration.ID)

		_, err = fixture.service.UpdateIntegration(ctx, models.OrgID(core.NewID("org")), integration.ID,
			services.UpdateIntegrationParams{
				Name:   "hijack",
				Config: integration.Config,
				Active: true,
			})
		require.Error(t, err)
		assert.True(t, core.IsNotFoundError(err))
	})
}

func TestListIntegrations(t *testing.T) {
	fixture, cleanup := setupTestIntegrationsService(t)
	defer cleanup()
	ctx := context.Background()

	orgScoped, err := fixture.service.CreateIntegration(ctx, fixture.org.ID,
		webhookParams(models.IntegrationScopeOrganization, nil, true))
	require.NoError(t, err)
	defer fixture.service.DeleteIntegration(ctx, fixture.org.ID, orgScoped.ID)

	formScoped, err := fixture.service.CreateIntegration(ctx, fixture.org.ID,
		webhookParams(models.IntegrationScopeForm, &fixture.form.ID, true))
	require.NoError(t, err)
	defer fixture.service.DeleteIntegration(ctx, fixture.org.ID, formScoped.ID)

	t.Run("organization listing excludes form scoped rows", func(t *testing.T) {
		listed, err := fixture.service.GetOrganizationIntegrations(ctx, fixture.org.ID)
		require.NoError(t, err)
		require.Len(t, listed, 1)
		assert.Equal(t, orgScoped.ID, listed[0].ID)
	})

	t.Run("form listing returns only the form's rows", func(t *testing.T) {
		listed, err := fixture.service.GetFormIntegrations(ctx, fixture.form.ID)
		require.NoError(t, err)
		require.Len(t, listed, 1)
		assert.Equal(t, formScoped.ID, listed[0].ID)
	})
}
