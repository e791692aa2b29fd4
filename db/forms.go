package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/samber/mo"

	// necessary import to wire up the postgres driver
	_ "github.com/lib/pq"

	"formrelay/core"
	dbtx "formrelay/db/tx"
	"formrelay/models"
)

type PostgresFormsRepository struct {
	db     *sqlx.DB
	schema string
}

// Column names for forms table
var formsColumns = []string{
	"id",
	"organization_id",
	"name",
	"slug",
	"submit_hash",
	"active",
	"use_org_integrations",
	"created_at",
	"updated_at",
}

func NewPostgresFormsRepository(db *sqlx.DB, schema string) *PostgresFormsRepository {
	return &PostgresFormsRepository{db: db, schema: schema}
}

func (r *PostgresFormsRepository) CreateForm(ctx context.Context, form *models.Form) error {
	db := dbtx.GetTransactional(ctx, r.db)
	insertColumns := []string{"id", "organization_id", "name", "slug", "submit_hash", "active", "use_org_integrations"}
	columnsStr := strings.Join(insertColumns, ", ")
	returningStr := strings.Join(formsColumns, ", ")

	query := fmt.Sprintf(`
		INSERT INTO %s.forms (%s, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		RETURNING %s`, r.schema, columnsStr, returningStr)

	err := db.QueryRowxContext(ctx, query,
		form.ID, form.OrgID, form.Name, form.Slug, form.SubmitHash, form.Active, form.UseOrgIntegrations).
		StructScan(form)
	if err != nil {
		return fmt.Errorf("failed to create form: %w", err)
	}

	return nil
}

func (r *PostgresFormsRepository) GetFormByID(ctx context.Context, id string) (mo.Option[*models.Form], error) {
	if !core.IsValidULID(id) {
		return mo.None[*models.Form](), fmt.Errorf("form ID must be a valid ULID")
	}

	db := dbtx.GetTransactional(ctx, r.db)
	columnsStr := strings.Join(formsColumns, ", ")
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s.forms
		WHERE id = $1`, columnsStr, r.schema)

	var form models.Form
	err := db.GetContext(ctx, &form, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return mo.None[*models.Form](), nil
		}
		return mo.None[*models.Form](), fmt.Errorf("failed to get form by ID: %w", err)
	}

	return mo.Some(&form), nil
}

func (r *PostgresFormsRepository) GetFormBySubmitHash(
	ctx context.Context,
	submitHash string,
) (mo.Option[*models.Form], error) {
	if submitHash == "" {
		return mo.None[*models.Form](), fmt.Errorf("submit hash cannot be empty")
	}

	db := dbtx.GetTransactional(ctx, r.db)
	columnsStr := strings.Join(formsColumns, ", ")
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s.forms
		WHERE submit_hash = $1`, columnsStr, r.schema)

	var form models.Form
	err := db.GetContext(ctx, &form, query, submitHash)
	if err != nil {
		if err == sql.ErrNoRows {
			return mo.None[*models.Form](), nil
		}
		return mo.None[*models.Form](), fmt.Errorf("failed to get form by submit hash: %w", err)
	}

	return mo.Some(&form), nil
}

func (r *PostgresFormsRepository) GetFormsByOrganizationID(
	ctx context.Context,
	organizationID models.OrgID,
) ([]*models.Form, error) {
	if !core.IsValidULID(string(organizationID)) {
		return nil, fmt.Errorf("organization ID must be a valid ULID")
	}

	db := dbtx.GetTransactional(ctx, r.db)
	columnsStr := strings.Join(formsColumns, ", ")
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s.forms
		WHERE organization_id = $1
		ORDER BY created_at ASC`, columnsStr, r.schema)

	var forms []*models.Form
	err := db.SelectContext(ctx, &forms, query, organizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to get forms by organization ID: %w", err)
	}

	return forms, nil
}

func (r *PostgresFormsRepository) DeleteForm(ctx context.Context, id string, organizationID models.OrgID) error {
	if !core.IsValidULID(id) {
		return fmt.Errorf("form ID must be a valid ULID")
	}

	db := dbtx.GetTransactional(ctx, r.db)
	query := fmt.Sprintf(`DELETE FROM %s.forms WHERE id = $1 AND organization_id = $2`, r.schema)

	result, err := db.ExecContext(ctx, query, id, organizationID)
	if err != nil {
		return fmt.Errorf("failed to delete form: %w", err)
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
