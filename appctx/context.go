package appctx

import (
	"context"

	"formrelay/models"
)

// Context key for storing the authenticated organization
type contextKey string

const OrganizationContextKey contextKey = "organization"

// SetOrganization adds the organization entity to the request context
func SetOrganization(ctx context.Context, org *models.Organization) context.Context {
	return context.WithValue(ctx, OrganizationContextKey, org)
}

// GetOrganization extracts the organization entity from the request context
func GetOrganization(ctx context.Context) (*models.Organization, bool) {
	org, ok := ctx.Value(OrganizationContextKey).(*models.Organization)
	return org, ok
}
