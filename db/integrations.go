package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/samber/mo"

	// necessary import to wire up the postgres driver
	_ "github.com/lib/pq"

	"formrelay/core"
	dbtx "formrelay/db/tx"
	"formrelay/models"
)

type PostgresIntegrationsRepository struct {
	db     *sqlx.DB
	schema string
}

// DBIntegration represents the database schema for the integrations table.
// The config blob is stored as JSONB.
type DBIntegration struct {
	ID        string        `db:"id"`
	Scope     string        `db:"scope"`
	OrgID     models.OrgID  `db:"organization_id"`
	FormID    *string       `db:"form_id"`
	Type      string        `db:"integration_type"`
	Name      string        `db:"name"`
	Config    []byte        `db:"config"`
	Active    bool          `db:"active"`
	CreatedAt time.Time     `db:"created_at"`
	UpdatedAt time.Time     `db:"updated_at"`
}

// Column names for integrations table
var integrationsColumns = []string{
	"id",
	"scope",
	"organization_id",
	"form_id",
	"integration_type",
	"name",
	"config",
	"active",
	"created_at",
	"updated_at",
}

func NewPostgresIntegrationsRepository(db *sqlx.DB, schema string) *PostgresIntegrationsRepository {
	return &PostgresIntegrationsRepository{db: db, schema: schema}
}

// dbIntegrationToModel converts a DBIntegration to models.Integration
func dbIntegrationToModel(dbInt *DBIntegration) (*models.Integration, error) {
	integration := &models.Integration{
		ID:        dbInt.ID,
		Scope:     models.IntegrationScope(dbInt.Scope),
		OrgID:     dbInt.OrgID,
		FormID:    dbInt.FormID,
		Type:      models.IntegrationType(dbInt.Type),
		Name:      dbInt.Name,
		Active:    dbInt.Active,
		CreatedAt: dbInt.CreatedAt,
		UpdatedAt: dbInt.UpdatedAt,
	}

	if len(dbInt.Config) > 0 {
		if err := json.Unmarshal(dbInt.Config, &integration.Config); err != nil {
			return nil, fmt.Errorf("failed to unmarshal integration config: integration_id=%s: %w", dbInt.ID, err)
		}
	}

	return integration, nil
}

// modelToDBIntegration converts a models.Integration to DBIntegration
func modelToDBIntegration(integration *models.Integration) (*DBIntegration, error) {
	configJSON, err := json.Marshal(integration.Config)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal integration config: %w", err)
	}

	return &DBIntegration{
		ID:        integration.ID,
		Scope:     string(integration.Scope),
		OrgID:     integration.OrgID,
		FormID:    integration.FormID,
		Type:      string(integration.Type),
		Name:      integration.Name,
		Config:    configJSON,
		Active:    integration.Active,
		CreatedAt: integration.CreatedAt,
		UpdatedAt: integration.UpdatedAt,
	}, nil
}

func (r *PostgresIntegrationsRepository) CreateIntegration(
	ctx context.Context,
	integration *models.Integration,
) error {
	db := dbtx.GetTransactional(ctx, r.db)
	dbInt, err := modelToDBIntegration(integration)
	if err != nil {
		return fmt.Errorf("failed to convert integration to db model: %w", err)
	}

	insertColumns := []string{"id", "scope", "organization_id", "form_id", "integration_type", "name", "config", "active"}
	columnsStr := strings.Join(insertColumns, ", ")
	returningStr := strings.Join(integrationsColumns, ", ")

	query := fmt.Sprintf(`
		INSERT INTO %s.integrations (%s, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
		RETURNING %s`, r.schema, columnsStr, returningStr)

	var returnedDBInt DBIntegration
	err = db.QueryRowxContext(ctx, query,
		dbInt.ID, dbInt.Scope, dbInt.OrgID, dbInt.FormID, dbInt.Type, dbInt.Name, dbInt.Config, dbInt.Active).
		StructScan(&returnedDBInt)
	if err != nil {
		return fmt.Errorf("failed to create integration: %w", err)
	}

	converted, err := dbIntegrationToModel(&returnedDBInt)
	if err != nil {
		return fmt.Errorf("failed to convert created integration: %w", err)
	}
	*integration = *converted
	return nil
}

func (r *PostgresIntegrationsRepository) UpdateIntegration(
	ctx context.Context,
	integration *models.Integration,
) error {
	db := dbtx.GetTransactional(ctx, r.db)
	dbInt, err := modelToDBIntegration(integration)
	if err != nil {
		return fmt.Errorf("failed to convert integration to db model: %w", err)
	}

	returningStr := strings.Join(integrationsColumns, ", ")
	query := fmt.Sprintf(`
		UPDATE %s.integrations
		SET name = $3, config = $4, active = $5, updated_at = NOW()
		WHERE id = $1 AND organization_id = $2
		RETURNING %s`, r.schema, returningStr)

	var returnedDBInt DBIntegration
	err = db.QueryRowxContext(ctx, query, dbInt.ID, dbInt.OrgID, dbInt.Name, dbInt.Config, dbInt.Active).
		StructScan(&returnedDBInt)
	if err != nil {
		if err == sql.ErrNoRows {
			return core.ErrNotFound
		}
		return fmt.Errorf("failed to update integration: %w", err)
	}

	converted, err := dbIntegrationToModel(&returnedDBInt)
	if err != nil {
		return fmt.Errorf("failed to convert updated integration: %w", err)
	}
	*integration = *converted
	return nil
}

func (r *PostgresIntegrationsRepository) GetIntegrationByID(
	ctx context.Context,
	id string,
	organizationID models.OrgID,
) (mo.Option[*models.Integration], error) {
	if !core.IsValidULID(id) {
		return mo.None[*models.Integration](), fmt.Errorf("integration ID must be a valid ULID")
	}

	db := dbtx.GetTransactional(ctx, r.db)
	columnsStr := strings.Join(integrationsColumns, ", ")
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s.integrations
		WHERE id = $1 AND organization_id = $2`, columnsStr, r.schema)

	var dbInt DBIntegration
	err := db.GetContext(ctx, &dbInt, query, id, organizationID)
	if err != nil {
		if err == sql.ErrNoRows {
			return mo.None[*models.Integration](), nil
		}
		return mo.None[*models.Integration](), fmt.Errorf("failed to get integration by ID: %w", err)
	}

	converted, err := dbIntegrationToModel(&dbInt)
	if err != nil {
		return mo.None[*models.Integration](), fmt.Errorf("failed to convert integration: %w", err)
	}
	return mo.Some(converted), nil
}

func (r *PostgresIntegrationsRepository) GetOrganizationScopedIntegrations(
	ctx context.Context,
	organizationID models.OrgID,
) ([]*models.Integration, error) {
	if !core.IsValidULID(string(organizationID)) {
		return nil, fmt.Errorf("organization ID must be a valid ULID")
	}

	db := dbtx.GetTransactional(ctx, r.db)
	columnsStr := strings.Join(integrationsColumns, ", ")
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s.integrations
		WHERE organization_id = $1 AND scope = 'organization'
		ORDER BY created_at ASC`, columnsStr, r.schema)

	var dbInts []DBIntegration
	err := db.SelectContext(ctx, &dbInts, query, organizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to get organization scoped integrations: %w", err)
	}

	return convertDBIntegrations(dbInts)
}

func (r *PostgresIntegrationsRepository) GetFormScopedIntegrations(
	ctx context.Context,
	formID string,
) ([]*models.Integration, error) {
	if !core.IsValidULID(formID) {
		return nil, fmt.Errorf("form ID must be a valid ULID")
	}

	db := dbtx.GetTransactional(ctx, r.db)
	columnsStr := strings.Join(integrationsColumns, ", ")
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s.integrations
		WHERE form_id = $1 AND scope = 'form'
		ORDER BY created_at ASC`, columnsStr, r.schema)

	var dbInts []DBIntegration
	err := db.SelectContext(ctx, &dbInts, query, formID)
	if err != nil {
		return nil, fmt.Errorf("failed to get form scoped integrations: %w", err)
	}

	return convertDBIntegrations(dbInts)
}

// DeactivateSlotIntegrations deactivates every active integration occupying
// the same (scope owner, type) slot, except the given one. Keeps the "at most
// one active integration per slot" invariant with last-write-wins semantics.
func (r *PostgresIntegrationsRepository) DeactivateSlotIntegrations(
	ctx context.Context,
	scope models.IntegrationScope,
	organizationID models.OrgID,
	formID *string,
	integrationType models.IntegrationType,
	exceptID string,
) error {
	db := dbtx.GetTransactional(ctx, r.db)

	var query string
	var args []interface{}
	if scope == models.IntegrationScopeForm {
		query = fmt.Sprintf(`
			UPDATE %s.integrations
			SET active = FALSE, updated_at = NOW()
			WHERE scope = 'form' AND form_id = $1 AND integration_type = $2 AND active = TRUE AND id != $3`,
			r.schema)
		args = []interface{}{formID, integrationType, exceptID}
	} else {
		query = fmt.Sprintf(`
			UPDATE %s.integrations
			SET active = FALSE, updated_at = NOW()
			WHERE scope = 'organization' AND organization_id = $1 AND integration_type = $2 AND active = TRUE AND id != $3`,
			r.schema)
		args = []interface{}{organizationID, integrationType, exceptID}
	}

	if _, err := db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to deactivate slot integrations: %w", err)
	}

	return nil
}

func (r *PostgresIntegrationsRepository) DeleteIntegrationByID(
	ctx context.Context,
	id string,
	organizationID models.OrgID,
) error {
	if !core.IsValidULID(id) {
		return fmt.Errorf("integration ID must be a valid ULID")
	}

	db := dbtx.GetTransactional(ctx, r.db)
	query := fmt.Sprintf(`DELETE FROM %s.integrations WHERE id = $1 AND organization_id = $2`, r.schema)

	result, err := db.ExecContext(ctx, query, id, organizationID)
	if err != nil {
		return fmt.Errorf("failed to delete integration: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}

	if rowsAffected == 0 {
		return core.ErrNotFound
	}

	return nil
}

// DeleteIntegrationsByFormID deletes every form-scoped integration of a form.
// Used when the owning form is deleted.
func (r *PostgresIntegrationsRepository) DeleteIntegrationsByFormID(ctx context.Context, formID string) error {
	if !core.IsValidULID(formID) {
		return fmt.Errorf("form ID must be a valid ULID")
	}

	db := dbtx.GetTransactional(ctx, r.db)
	query := fmt.Sprintf(`DELETE FROM %s.integrations WHERE form_id = $1 AND scope = 'form'`, r.schema)

	if _, err := db.ExecContext(ctx, query, formID); err != nil {
		return fmt.Errorf("failed to delete integrations by form ID: %w", err)
	}

	return nil
}

func convertDBIntegrations(dbInts []DBIntegration) ([]*models.Integration, error) {
	integrations := make([]*models.Integration, 0, len(dbInts))
	for i := range dbInts {
		converted, err := dbIntegrationToModel(&dbInts[i])
		if err != nil {
			return nil, fmt.Errorf("failed to convert integration: %w", err)
		}
		integrations = append(integrations, converted)
	}
	return integrations, nil
}
