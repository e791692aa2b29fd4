package services

import (
	"context"
	"time"

	"github.com/samber/mo"

	"formrelay/models"
)

// TransactionManager defines the interface for database transaction management
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(context.Context) error) error
}

// OrganizationsService defines the interface for organization-related operations
type OrganizationsService interface {
	CreateOrganization(ctx context.Context) (*models.Organization, error)
	GetOrganizationByID(ctx context.Context, id models.OrgID) (mo.Option[*models.Organization], error)
	GetOrganizationBySecretKey(ctx context.Context, secretKey string) (mo.Option[*models.Organization], error)
	DeactivateOrganization(ctx context.Context, id models.OrgID) error
}

// FormsService defines the interface for form-related operations
type FormsService interface {
	CreateForm(ctx context.Context, organizationID models.OrgID, name, slug string, useOrgIntegrations bool) (*models.Form, error)
	GetFormByID(ctx context.Context, id string) (mo.Option[*models.Form], error)
	GetFormBySubmitHash(ctx context.Context, submitHash string) (mo.Option[*models.Form], error)
	GetFormsByOrganizationID(ctx context.Context, organizationID models.OrgID) ([]*models.Form, error)
	DeleteForm(ctx context.Context, organizationID models.OrgID, formID string) error
}

// CreateIntegrationParams carries a validated Config Store write.
type CreateIntegrationParams struct {
	Scope  models.IntegrationScope
	FormID *string
	Type   models.IntegrationType
	Name   string
	Config models.IntegrationConfig
	Active bool
}

// UpdateIntegrationParams carries the mutable fields of an integration.
// Scope, type and ownership are fixed at creation time.
type UpdateIntegrationParams struct {
	Name   string
	Config models.IntegrationConfig
	Active bool
}

// IntegrationsService defines the interface for the Config Store
type IntegrationsService interface {
	CreateIntegration(ctx context.Context, organizationID models.OrgID, params CreateIntegrationParams) (*models.Integration, error)
	UpdateIntegration(ctx context.Context, organizationID models.OrgID, integrationID string, params UpdateIntegrationParams) (*models.Integration, error)
	GetIntegrationByID(ctx context.Context, organizationID models.OrgID, integrationID string) (mo.Option[*models.Integration], error)
	GetOrganizationIntegrations(ctx context.Context, organizationID models.OrgID) ([]*models.Integration, error)
	GetFormIntegrations(ctx context.Context, formID string) ([]*models.Integration, error)
	DeleteIntegration(ctx context.Context, organizationID models.OrgID, integrationID string) error
}

// EnqueueJobParams describes one delivery job to enqueue: the submission
// payload plus the resolved destination integration.
type EnqueueJobParams struct {
	OrgID       models.OrgID
	FormID      string
	Integration *models.Integration
	Payload     models.SubmissionPayload
}

// ListJobsParams filters the admin job listing.
type ListJobsParams struct {
	Queue  *string
	State  *models.JobState
	Limit  int
	Offset int
}

// JobsService defines the interface for the durable delivery job queue
type JobsService interface {
	EnqueueJob(ctx context.Context, params EnqueueJobParams) (*models.DeliveryJob, error)
	ClaimNextJob(ctx context.Context, queue string) (mo.Option[*models.DeliveryJob], error)
	CompleteJob(ctx context.Context, jobID string, output string) error
	FailJob(ctx context.Context, jobID string, output string, countAttempt bool) error
	ScheduleRetry(ctx context.Context, jobID string, output string, delay time.Duration) error
	RetryJob(ctx context.Context, organizationID models.OrgID, jobID string) (*models.DeliveryJob, error)
	GetJobByID(ctx context.Context, organizationID models.OrgID, jobID string) (mo.Option[*models.DeliveryJob], error)
	GetQueueStats(ctx context.Context, organizationID models.OrgID) (map[string]*models.QueueStats, error)
	ListJobs(ctx context.Context, organizationID models.OrgID, params ListJobsParams) ([]*models.DeliveryJob, error)
}
