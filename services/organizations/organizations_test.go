package organizations

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"formrelay/core"
	"formrelay/db"
	"formrelay/models"
	"formrelay/testutils"
)

func setupTestOrganizationsService(t *testing.T) (*OrganizationsService, func()) {
	cfg, err := testutils.LoadTestConfig()
	if err != nil {
		t.Skipf("Skipping integration test: %v", err)
	}

	dbConn, err := db.NewConnection(cfg.DatabaseURL)
	require.NoError(t, err, "Failed to create database connection")

	repo := db.NewPostgresOrganizationsRepository(dbConn, cfg.DatabaseSchema)
	return NewOrganizationsService(repo), func() { dbConn.Close() }
}

func TestOrganizationsService(t *testing.T) {
	service, cleanup := setupTestOrganizationsService(t)
	defer cleanup()
	ctx := context.Background()

	t.Run("creates an active organization with a secret key", func(t *testing.T) {
		org, err := service.CreateOrganization(ctx)
		require.NoError(t, err)
		assert.True(t, org.Active)
		require.NotNil(t, org.SecretKey)
		assert.True(t, strings.HasPrefix(*org.SecretKey, "sk_"))
		assert.True(t, core.IsValidULID(string(org.ID)))
	})

	t.Run("looks the organization up by its secret key", func(t *testing.T) {
		org, err := service.CreateOrganization(ctx)
		require.NoError(t, err)

		found, err := service.GetOrganizationBySecretKey(ctx, *org.SecretKey)
		require.NoError(t, err)
		assert.Equal(t, org.ID, found.MustGet().ID)

		missing, err := service.GetOrganizationBySecretKey(ctx, "sk_definitely-not-a-key")
		require.NoError(t, err)
		assert.True(t, missing.IsAbsent())
	})

	t.Run("deactivation sticks", func(t *testing.T) {
		org, err := service.CreateOrganization(ctx)
		require.NoError(t, err)

		require.NoError(t, service.DeactivateOrganization(ctx, org.ID))

		found, err := service.GetOrganizationByID(ctx, org.ID)
		require.NoError(t, err)
		assert.False(t, found.MustGet().Active)
	})

	t.Run("rejects malformed IDs", func(t *testing.T) {
		_, err := service.GetOrganizationByID(ctx, models.OrgID("not-an-id"))
		require.Error(t, err)
	})
}
