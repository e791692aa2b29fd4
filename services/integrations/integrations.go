package integrations

import (
	"context"
	"fmt"
	"log"

	"github.com/samber/mo"

	"formrelay/core"
	"formrelay/db"
	"formrelay/models"
	"formrelay/services"
)

type IntegrationsService struct {
	integrationsRepo *db.PostgresIntegrationsRepository
	formsRepo        *db.PostgresFormsRepository
	txManager        services.TransactionManager
}

func NewIntegrationsService(
	integrationsRepo *db.PostgresIntegrationsRepository,
	formsRepo *db.PostgresFormsRepository,
	txManager services.TransactionManager,
) *IntegrationsService {
	return &IntegrationsService{
		integrationsRepo: integrationsRepo,
		formsRepo:        formsRepo,
		txManager:        txManager,
	}
}

func (s *IntegrationsService) CreateIntegration(
	ctx context.Context,
	organizationID models.OrgID,
	params services.CreateIntegrationParams,
) (*models.Integration, error) {
	log.Printf("➕ Starting to create %s integration for organization: %s", params.Type, organizationID)
	if !core.IsValidULID(string(organizationID)) {
		return nil, fmt.Errorf("%w: organization ID must be a valid ULID", core.ErrInvalid)
	}
	if err := s.validateParams(ctx, organizationID, params.Scope, params.FormID, params.Type, params.Config); err != nil {
		return nil, err
	}

	integration := &models.Integration{
		ID:     core.NewID("intg"),
		Scope:  params.Scope,
		OrgID:  organizationID,
		FormID: params.FormID,
		Type:   params.Type,
		Name:   params.Name,
		Config: params.Config,
		Active: params.Active,
	}

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.integrationsRepo.CreateIntegration(txCtx, integration); err != nil {
			return err
		}
		if integration.Active {
			return s.integrationsRepo.DeactivateSlotIntegrations(
				txCtx, integration.Scope, organizationID, integration.FormID, integration.Type, integration.ID)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create integration: %w", err)
	}

	log.Printf("✅ Completed successfully - created integration with ID: %s", integration.ID)
	return integration, nil
}

func (s *IntegrationsService) UpdateIntegration(
	ctx context.Context,
	organizationID models.OrgID,
	integrationID string,
	params services.UpdateIntegrationParams,
) (*models.Integration, error) {
	log.Printf("📋 Starting to update integration: %s for organization: %s", integrationID, organizationID)
	if !core.IsValidULID(integrationID) {
		return nil, fmt.Errorf("%w: integration ID must be a valid ULID", core.ErrInvalid)
	}

	var updated *models.Integration
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		maybeExisting, err := s.integrationsRepo.GetIntegrationByID(txCtx, integrationID, organizationID)
		if err != nil {
			return fmt.Errorf("failed to get integration: %w", err)
		}
		existing, ok := maybeExisting.Get()
		if !ok {
			return core.ErrNotFound
		}

		if err := params.Config.Validate(existing.Type); err != nil {
			return fmt.Errorf("%w: %v", core.ErrInvalid, err)
		}

		existing.Name = params.Name
		existing.Config = params.Config
		existing.Active = params.Active
		if err := s.integrationsRepo.UpdateIntegration(txCtx, existing); err != nil {
			return err
		}

		if existing.Active {
			if err := s.integrationsRepo.DeactivateSlotIntegrations(
				txCtx, existing.Scope, organizationID, existing.FormID, existing.Type, existing.ID); err != nil {
				return err
			}
		}

		updated = existing
		return nil
	})
	if err != nil {
		if core.IsNotFoundError(err) || core.IsInvalidError(err) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update integration: %w", err)
	}

	log.Printf("✅ Completed successfully - updated integration: %s", integrationID)
	return updated, nil
}

func (s *IntegrationsService) GetIntegrationByID(
	ctx context.Context,
	organizationID models.OrgID,
	integrationID string,
) (mo.Option[*models.Integration], error) {
	if !core.IsValidULID(integrationID) {
		return mo.None[*models.Integration](), fmt.Errorf("integration ID must be a valid ULID")
	}

	integration, err := s.integrationsRepo.GetIntegrationByID(ctx, integrationID, organizationID)
	if err != nil {
		return mo.None[*models.Integration](), fmt.Errorf("failed to get integration by ID: %w", err)
	}
	return integration, nil
}

func (s *IntegrationsService) GetOrganizationIntegrations(
	ctx context.Context,
	organizationID models.OrgID,
) ([]*models.Integration, error) {
	integrations, err := s.integrationsRepo.GetOrganizationScopedIntegrations(ctx, organizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to get organization integrations: %w", err)
	}
	return integrations, nil
}

func (s *IntegrationsService) GetFormIntegrations(
	ctx context.Context,
	formID string,
) ([]*models.Integration, error) {
	integrations, err := s.integrationsRepo.GetFormScopedIntegrations(ctx, formID)
	if err != nil {
		return nil, fmt.Errorf("failed to get form integrations: %w", err)
	}
	return integrations, nil
}

func (s *IntegrationsService) DeleteIntegration(
	ctx context.Context,
	organizationID models.OrgID,
	integrationID string,
) error {
	log.Printf("🗑️ Starting to delete integration: %s for organization: %s", integrationID, organizationID)
	if !core.IsValidULID(integrationID) {
		return fmt.Errorf("integration ID must be a valid ULID")
	}

	if err := s.integrationsRepo.DeleteIntegrationByID(ctx, integrationID, organizationID); err != nil {
		if core.IsNotFoundError(err) {
			return err
		}
		return fmt.Errorf("failed to delete integration: %w", err)
	}

	log.Printf("📋 Completed successfully - deleted integration: %s", integrationID)
	return nil
}

// validateParams checks type, config shape and scope consistency. Form scoped
// integrations must point at a form of the same organization, organization
// scoped ones must not carry a form ID.
func (s *IntegrationsService) validateParams(
	ctx context.Context,
	organizationID models.OrgID,
	scope models.IntegrationScope,
	formID *string,
	integrationType models.IntegrationType,
	config models.IntegrationConfig,
) error {
	if !integrationType.IsValid() {
		return fmt.Errorf("%w: unsupported integration type: %s", core.ErrInvalid, integrationType)
	}
	if err := config.Validate(integrationType); err != nil {
		return fmt.Errorf("%w: %v", core.ErrInvalid, err)
	}

	switch scope {
	case models.IntegrationScopeOrganization:
		if formID != nil {
			return fmt.Errorf("%w: organization scoped integration cannot reference a form", core.ErrInvalid)
		}
	case models.IntegrationScopeForm:
		if formID == nil {
			return fmt.Errorf("%w: form scoped integration must reference a form", core.ErrInvalid)
		}
		maybeForm, err := s.formsRepo.GetFormByID(ctx, *formID)
		if err != nil {
			return fmt.Errorf("failed to get form: %w", err)
		}
		form, ok := maybeForm.Get()
		if !ok {
			return fmt.Errorf("%w: form not found: %s", core.ErrInvalid, *formID)
		}
		if form.OrgID == nil || *form.OrgID != organizationID {
			return fmt.Errorf("%w: form %s does not belong to organization %s", core.ErrInvalid, *formID, organizationID)
		}
	default:
		return fmt.Errorf("%w: unsupported integration scope: %s", core.ErrInvalid, scope)
	}

	return nil
}
