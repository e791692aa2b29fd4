package integrations

import (
	"context"

	"github.com/samber/mo"
	"github.com/stretchr/testify/mock"

	"formrelay/models"
	"formrelay/services"
)

// MockIntegrationsService implements IntegrationsService for testing
type MockIntegrationsService struct {
	mock.Mock
}

func (m *MockIntegrationsService) CreateIntegration(
	ctx context.Context,
	organizationID models.OrgID,
	params services.CreateIntegrationParams,
) (*models.Integration, error) {
	args := m.Called(ctx, organizationID, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Integration), args.Error(1)
}

func (m *MockIntegrationsService) UpdateIntegration(
	ctx context.Context,
	organizationID models.OrgID,
	integrationID string,
	params services.UpdateIntegrationParams,
) (*models.Integration, error) {
	args := m.Called(ctx, organizationID, integrationID, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Integration), args.Error(1)
}

func (m *MockIntegrationsService) GetIntegrationByID(
	ctx context.Context,
	organizationID models.OrgID,
	integrationID string,
) (mo.Option[*models.Integration], error) {
	args := m.Called(ctx, organizationID, integrationID)
	if args.Get(0) == nil {
		return mo.None[*models.Integration](), args.Error(1)
	}
	return args.Get(0).(mo.Option[*models.Integration]), args.Error(1)
}

func (m *MockIntegrationsService) GetOrganizationIntegrations(
	ctx context.Context,
	organizationID models.OrgID,
) ([]*models.Integration, error) {
	args := m.Called(ctx, organizationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Integration), args.Error(1)
}

func (m *MockIntegrationsService) GetFormIntegrations(
	ctx context.Context,
	formID string,
) ([]*models.Integration, error) {
	args := m.Called(ctx, formID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Integration), args.Error(1)
}

func (m *MockIntegrationsService) DeleteIntegration(
	ctx context.Context,
	organizationID models.OrgID,
	integrationID string,
) error {
	args := m.Called(ctx, organizationID, integrationID)
	return args.Error(0)
}
