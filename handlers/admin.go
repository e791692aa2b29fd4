package handlers

import (
	"context"
	"fmt"
	"log"

	"github.com/samber/mo"

	"formrelay/core"
	"formrelay/models"
	"formrelay/resolver"
	"formrelay/services"
)

// AdminAPIHandler carries the business logic behind the authenticated admin
// API: organizations, forms and the integration config store.
type AdminAPIHandler struct {
	organizationsService services.OrganizationsService
	formsService         services.FormsService
	integrationsService  services.IntegrationsService
}

func NewAdminAPIHandler(
	organizationsService services.OrganizationsService,
	formsService services.FormsService,
	integrationsService services.IntegrationsService,
) *AdminAPIHandler {
	return &AdminAPIHandler{
		organizationsService: organizationsService,
		formsService:         formsService,
		integrationsService:  integrationsService,
	}
}

// CreateOrganization bootstraps a new organization with a fresh secret key.
func (h *AdminAPIHandler) CreateOrganization(ctx context.Context) (*models.Organization, error) {
	organization, err := h.organizationsService.CreateOrganization(ctx)
	if err != nil {
		log.Printf("❌ Failed to create organization: %v", err)
		return nil, err
	}

	log.Printf("✅ Organization created successfully: %s", organization.ID)
	return organization, nil
}

// CreateForm creates a form for an organization
func (h *AdminAPIHandler) CreateForm(
	ctx context.Context,
	org *models.Organization,
	name, slug string,
	useOrgIntegrations bool,
) (*models.Form, error) {
	log.Printf("➕ Creating form %q for organization: %s", name, org.ID)
	form, err := h.formsService.CreateForm(ctx, org.ID, name, slug, useOrgIntegrations)
	if err != nil {
		log.Printf("❌ Failed to create form: %v", err)
		return nil, err
	}

	log.Printf("✅ Form created successfully: %s", form.ID)
	return form, nil
}

// ListForms returns all forms of an organization
func (h *AdminAPIHandler) ListForms(ctx context.Context, org *models.Organization) ([]*models.Form, error) {
	forms, err := h.formsService.GetFormsByOrganizationID(ctx, org.ID)
	if err != nil {
		log.Printf("❌ Failed to list forms: %v", err)
		return nil, err
	}

	log.Printf("✅ Retrieved %d forms for organization: %s", len(forms), org.ID)
	return forms, nil
}

// DeleteForm deletes a form and its form-scoped integrations
func (h *AdminAPIHandler) DeleteForm(ctx context.Context, org *models.Organization, formID string) error {
	if err := h.formsService.DeleteForm(ctx, org.ID, formID); err != nil {
		log.Printf("❌ Failed to delete form: %v", err)
		return err
	}

	log.Printf("✅ Form deleted successfully: %s", formID)
	return nil
}

// CreateIntegration creates an integration at organization or form scope
func (h *AdminAPIHandler) CreateIntegration(
	ctx context.Context,
	org *models.Organization,
	params services.CreateIntegrationParams,
) (*models.Integration, error) {
	integration, err := h.integrationsService.CreateIntegration(ctx, org.ID, params)
	if err != nil {
		log.Printf("❌ Failed to create integration: %v", err)
		return nil, err
	}

	log.Printf("✅ Integration created successfully: %s", integration.ID)
	return integration, nil
}

// UpdateIntegration updates an integration's mutable fields
func (h *AdminAPIHandler) UpdateIntegration(
	ctx context.Context,
	org *models.Organization,
	integrationID string,
	params services.UpdateIntegrationParams,
) (*models.Integration, error) {
	integration, err := h.integrationsService.UpdateIntegration(ctx, org.ID, integrationID, params)
	if err != nil {
		log.Printf("❌ Failed to update integration: %v", err)
		return nil, err
	}

	log.Printf("✅ Integration updated successfully: %s", integration.ID)
	return integration, nil
}

// GetIntegration returns one integration scoped to the organization
func (h *AdminAPIHandler) GetIntegration(
	ctx context.Context,
	org *models.Organization,
	integrationID string,
) (mo.Option[*models.Integration], error) {
	return h.integrationsService.GetIntegrationByID(ctx, org.ID, integrationID)
}

// ListOrganizationIntegrations returns the organization scoped integrations
func (h *AdminAPIHandler) ListOrganizationIntegrations(
	ctx context.Context,
	org *models.Organization,
) ([]*models.Integration, error) {
	integrations, err := h.integrationsService.GetOrganizationIntegrations(ctx, org.ID)
	if err != nil {
		log.Printf("❌ Failed to list organization integrations: %v", err)
		return nil, err
	}

	log.Printf("✅ Retrieved %d integrations for organization: %s", len(integrations), org.ID)
	return integrations, nil
}

// DeleteIntegration deletes an integration owned by the organization
func (h *AdminAPIHandler) DeleteIntegration(
	ctx context.Context,
	org *models.Organization,
	integrationID string,
) error {
	if err := h.integrationsService.DeleteIntegration(ctx, org.ID, integrationID); err != nil {
		log.Printf("❌ Failed to delete integration: %v", err)
		return err
	}

	log.Printf("✅ Integration deleted successfully: %s", integrationID)
	return nil
}

// ListFormIntegrations returns a form's own (form scoped) integrations after
// checking the form belongs to the organization.
func (h *AdminAPIHandler) ListFormIntegrations(
	ctx context.Context,
	org *models.Organization,
	formID string,
) ([]*models.Integration, error) {
	if _, err := h.getOwnedForm(ctx, org, formID); err != nil {
		return nil, err
	}

	integrations, err := h.integrationsService.GetFormIntegrations(ctx, formID)
	if err != nil {
		log.Printf("❌ Failed to list form integrations: %v", err)
		return nil, err
	}
	return integrations, nil
}

// GetFormHierarchy computes the effective integration per type for a form:
// what would actually fire on the next submission, and where it comes from.
func (h *AdminAPIHandler) GetFormHierarchy(
	ctx context.Context,
	org *models.Organization,
	formID string,
) (map[models.IntegrationType]models.EffectiveIntegration, error) {
	form, err := h.getOwnedForm(ctx, org, formID)
	if err != nil {
		return nil, err
	}

	formIntegrations, err := h.integrationsService.GetFormIntegrations(ctx, formID)
	if err != nil {
		return nil, fmt.Errorf("failed to get form integrations: %w", err)
	}
	orgIntegrations, err := h.integrationsService.GetOrganizationIntegrations(ctx, org.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get organization integrations: %w", err)
	}

	return resolver.Resolve(form, formIntegrations, orgIntegrations), nil
}

// FormHierarchy is one form's slice of the integrations hierarchy.
type FormHierarchy struct {
	Form                  *models.Form                                           `json:"form"`
	Integrations          []*models.Integration                                  `json:"integrations"`
	EffectiveIntegrations map[models.IntegrationType]models.EffectiveIntegration `json:"effective_integrations"`
}

// IntegrationsHierarchy is the dashboard's full picture: the organization's
// default integrations plus, per form, its own integrations and what would
// actually fire on the next submission.
type IntegrationsHierarchy struct {
	OrganizationIntegrations []*models.Integration `json:"organization_integrations"`
	Forms                    []FormHierarchy       `json:"forms"`
}

// GetIntegrationsHierarchy resolves the effective integration set for every
// form of the organization in one call.
func (h *AdminAPIHandler) GetIntegrationsHierarchy(
	ctx context.Context,
	org *models.Organization,
) (*IntegrationsHierarchy, error) {
	orgIntegrations, err := h.integrationsService.GetOrganizationIntegrations(ctx, org.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get organization integrations: %w", err)
	}

	orgForms, err := h.formsService.GetFormsByOrganizationID(ctx, org.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get forms: %w", err)
	}

	hierarchy := &IntegrationsHierarchy{
		OrganizationIntegrations: orgIntegrations,
		Forms:                    make([]FormHierarchy, 0, len(orgForms)),
	}
	for _, form := range orgForms {
		formIntegrations, err := h.integrationsService.GetFormIntegrations(ctx, form.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to get integrations for form %s: %w", form.ID, err)
		}
		hierarchy.Forms = append(hierarchy.Forms, FormHierarchy{
			Form:                  form,
			Integrations:          formIntegrations,
			EffectiveIntegrations: resolver.Resolve(form, formIntegrations, orgIntegrations),
		})
	}

	log.Printf("✅ Resolved integrations hierarchy for %d forms of organization: %s", len(orgForms), org.ID)
	return hierarchy, nil
}

func (h *AdminAPIHandler) getOwnedForm(
	ctx context.Context,
	org *models.Organization,
	formID string,
) (*models.Form, error) {
	maybeForm, err := h.formsService.GetFormByID(ctx, formID)
	if err != nil {
		return nil, fmt.Errorf("failed to get form: %w", err)
	}
	form, ok := maybeForm.Get()
	if !ok || form.OrgID == nil || *form.OrgID != org.ID {
		return nil, fmt.Errorf("form %s: %w", formID, core.ErrNotFound)
	}
	return form, nil
}
