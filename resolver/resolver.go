package resolver

import (
	"formrelay/models"
)

// Resolve computes the effective integration for every supported type.
//
// For each type the precedence is:
//  1. an active form scoped integration of that type (override)
//  2. an active organization scoped integration of that type, but only
//     when the form opted into inheritance (inherited)
//  3. nothing (none)
//
// Inactive integrations never participate. When data violates the one
// active integration per slot invariant, the earliest created one wins so
// the outcome stays deterministic.
func Resolve(
	form *models.Form,
	formIntegrations []*models.Integration,
	orgIntegrations []*models.Integration,
) map[models.IntegrationType]models.EffectiveIntegration {
	effective := make(map[models.IntegrationType]models.EffectiveIntegration, len(models.IntegrationTypes))
	for _, integrationType := range models.IntegrationTypes {
		effective[integrationType] = ResolveType(form, integrationType, formIntegrations, orgIntegrations)
	}
	return effective
}

// ResolveType computes the effective integration for a single type.
func ResolveType(
	form *models.Form,
	integrationType models.IntegrationType,
	formIntegrations []*models.Integration,
	orgIntegrations []*models.Integration,
) models.EffectiveIntegration {
	if override := firstActiveOfType(formIntegrations, integrationType, models.IntegrationScopeForm, form.ID); override != nil {
		return models.EffectiveOverride(override)
	}

	if form.UseOrgIntegrations {
		if inherited := firstActiveOfType(orgIntegrations, integrationType, models.IntegrationScopeOrganization, ""); inherited != nil {
			return models.EffectiveInherited(inherited)
		}
	}

	return models.EffectiveNone()
}

// Deliverable filters a resolution down to the integrations a submission
// should actually fan out to.
func Deliverable(
	effective map[models.IntegrationType]models.EffectiveIntegration,
) []models.EffectiveIntegration {
	deliverable := make([]models.EffectiveIntegration, 0, len(effective))
	for _, integrationType := range models.IntegrationTypes {
		if eff, ok := effective[integrationType]; ok && eff.IsDeliverable() {
			deliverable = append(deliverable, eff)
		}
	}
	return deliverable
}

func firstActiveOfType(
	integrations []*models.Integration,
	integrationType models.IntegrationType,
	scope models.IntegrationScope,
	formID string,
) *models.Integration {
	var match *models.Integration
	for _, integration := range integrations {
		if integration == nil || !integration.Active {
			continue
		}
		if integration.Type != integrationType || integration.Scope != scope {
			continue
		}
		if scope == models.IntegrationScopeForm {
			if integration.FormID == nil || *integration.FormID != formID {
				continue
			}
		}
		if match == nil || integration.CreatedAt.Before(match.CreatedAt) {
			match = integration
		}
	}
	return match
}
