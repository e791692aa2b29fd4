package forms

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"
	"github.com/samber/mo"

	"formrelay/core"
	"formrelay/db"
	"formrelay/models"
	"formrelay/services"
)

type FormsService struct {
	formsRepo        *db.PostgresFormsRepository
	integrationsRepo *db.PostgresIntegrationsRepository
	txManager        services.TransactionManager
}

func NewFormsService(
	formsRepo *db.PostgresFormsRepository,
	integrationsRepo *db.PostgresIntegrationsRepository,
	txManager services.TransactionManager,
) *FormsService {
	return &FormsService{
		formsRepo:        formsRepo,
		integrationsRepo: integrationsRepo,
		txManager:        txManager,
	}
}

func (s *FormsService) CreateForm(
	ctx context.Context,
	organizationID models.OrgID,
	name, slug string,
	useOrgIntegrations bool,
) (*models.Form, error) {
	log.Printf("📋 Starting to create form: %s for organization: %s", name, organizationID)
	if !core.IsValidULID(string(organizationID)) {
		return nil, fmt.Errorf("organization ID must be a valid ULID")
	}
	if name == "" {
		return nil, fmt.Errorf("form name cannot be empty")
	}
	if slug == "" {
		return nil, fmt.Errorf("form slug cannot be empty")
	}

	orgID := organizationID
	form := &models.Form{
		ID:                 core.NewID("form"),
		OrgID:              &orgID,
		Name:               name,
		Slug:               slug,
		SubmitHash:         newSubmitHash(),
		Active:             true,
		UseOrgIntegrations: useOrgIntegrations,
	}

	if err := s.formsRepo.CreateForm(ctx, form); err != nil {
		return nil, fmt.Errorf("failed to create form: %w", err)
	}

	log.Printf("📋 Completed successfully - created form with ID: %s", form.ID)
	return form, nil
}

func (s *FormsService) GetFormByID(ctx context.Context, id string) (mo.Option[*models.Form], error) {
	if !core.IsValidULID(id) {
		return mo.None[*models.Form](), fmt.Errorf("form ID must be a valid ULID")
	}

	form, err := s.formsRepo.GetFormByID(ctx, id)
	if err != nil {
		return mo.None[*models.Form](), fmt.Errorf("failed to get form by ID: %w", err)
	}
	return form, nil
}

func (s *FormsService) GetFormBySubmitHash(
	ctx context.Context,
	submitHash string,
) (mo.Option[*models.Form], error) {
	if submitHash == "" {
		return mo.None[*models.Form](), fmt.Errorf("submit hash cannot be empty")
	}

	form, err := s.formsRepo.GetFormBySubmitHash(ctx, submitHash)
	if err != nil {
		return mo.None[*models.Form](), fmt.Errorf("failed to get form by submit hash: %w", err)
	}
	return form, nil
}

func (s *FormsService) GetFormsByOrganizationID(
	ctx context.Context,
	organizationID models.OrgID,
) ([]*models.Form, error) {
	if !core.IsValidULID(string(organizationID)) {
		return nil, fmt.Errorf("organization ID must be a valid ULID")
	}

	forms, err := s.formsRepo.GetFormsByOrganizationID(ctx, organizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to get forms by organization ID: %w", err)
	}
	return forms, nil
}

// DeleteForm removes a form together with its form-scoped integrations.
func (s *FormsService) DeleteForm(ctx context.Context, organizationID models.OrgID, formID string) error {
	log.Printf("🗑️ Starting to delete form: %s for organization: %s", formID, organizationID)
	if !core.IsValidULID(formID) {
		return fmt.Errorf("form ID must be a valid ULID")
	}

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.integrationsRepo.DeleteIntegrationsByFormID(txCtx, formID); err != nil {
			return fmt.Errorf("failed to delete form integrations: %w", err)
		}
		if err := s.formsRepo.DeleteForm(txCtx, formID, organizationID); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		if core.IsNotFoundError(err) {
			return err
		}
		return fmt.Errorf("failed to delete form: %w", err)
	}

	log.Printf("📋 Completed successfully - deleted form: %s", formID)
	return nil
}

// newSubmitHash generates the public token used in submission URLs. It is an
// opaque capability, not an ID, so it deliberately has no prefix.
func newSubmitHash() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")
}
