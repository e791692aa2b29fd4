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

type PostgresOrganizationsRepository struct {
	db     *sqlx.DB
	schema string
}

// Column names for organizations table
var organizationsColumns = []string{
	"id",
	"active",
	"submission_limit",
	"secret_key",
	"secret_key_generated_at",
	"created_at",
	"updated_at",
}

func NewPostgresOrganizationsRepository(db *sqlx.DB, schema string) *PostgresOrganizationsRepository {
	return &PostgresOrganizationsRepository{db: db, schema: schema}
}

func (r *PostgresOrganizationsRepository) CreateOrganization(ctx context.Context, org *models.Organization) error {
	db := dbtx.GetTransactional(ctx, r.db)
	insertColumns := []string{"id", "active", "submission_limit", "secret_key", "secret_key_generated_at"}
	columnsStr := strings.Join(insertColumns, ", ")
	returningStr := strings.Join(organizationsColumns, ", ")

	query := fmt.Sprintf(`
		INSERT INTO %s.organizations (%s, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		RETURNING %s`, r.schema, columnsStr, returningStr)

	err := db.QueryRowxContext(ctx, query, org.ID, org.Active, org.SubmissionLimit, org.SecretKey).
		StructScan(org)
	if err != nil {
		return fmt.Errorf("failed to create organization: %w", err)
	}

	return nil
}

func (r *PostgresOrganizationsRepository) GetOrganizationByID(
	ctx context.Context,
	id models.OrgID,
) (mo.Option[*models.Organization], error) {
	db := dbtx.GetTransactional(ctx, r.db)
	columnsStr := strings.Join(organizationsColumns, ", ")
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s.organizations
		WHERE id = $1`, columnsStr, r.schema)

	var org models.Organization
	err := db.GetContext(ctx, &org, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return mo.None[*models.Organization](), nil
		}
		return mo.None[*models.Organization](), fmt.Errorf("failed to get organization by ID: %w", err)
	}

	return mo.Some(&org), nil
}

func (r *PostgresOrganizationsRepository) GetOrganizationBySecretKey(
	ctx context.Context,
	secretKey string,
) (mo.Option[*models.Organization], error) {
	if secretKey == "" {
		return mo.None[*models.Organization](), fmt.Errorf("secret key cannot be empty")
	}

	db := dbtx.GetTransactional(ctx, r.db)
	columnsStr := strings.Join(organizationsColumns, ", ")
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s.organizations
		WHERE secret_key = $1 AND secret_key IS NOT NULL`, columnsStr, r.schema)

	var org models.Organization
	err := db.GetContext(ctx, &org, query, secretKey)
	if err != nil {
		if err == sql.ErrNoRows {
			return mo.None[*models.Organization](), nil
		}
		return mo.None[*models.Organization](), fmt.Errorf("failed to get organization by secret key: %w", err)
	}

	return mo.Some(&org), nil
}

func (r *PostgresOrganizationsRepository) DeactivateOrganization(ctx context.Context, id models.OrgID) error {
	if !core.IsValidULID(string(id)) {
		return fmt.Errorf("organization ID must be a valid ULID")
	}

	db := dbtx.GetTransactional(ctx, r.db)
	query := fmt.Sprintf(`
		UPDATE %s.organizations
		SET active = FALSE, updated_at = NOW()
		WHERE id = $1`, r.schema)

	result, err := db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to deactivate organization: %w", err)
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
