package forms

import (
	"context"

	"github.com/samber/mo"
	"github.com/stretchr/testify/mock"

	"formrelay/models"
)

// MockFormsService implements FormsService for testing
type MockFormsService struct {
	mock.Mock
}

func (m *MockFormsService) CreateForm(
	ctx context.Context,
	organizationID models.OrgID,
	name, slug string,
	useOrgIntegrations bool,
) (*models.Form, error) {
	args := m.Called(ctx, organizationID, name, slug, useOrgIntegrations)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Form), args.Error(1)
}

func (m *MockFormsService) GetFormByID(ctx context.Context, id string) (mo.Option[*models.Form], error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return mo.None[*models.Form](), args.Error(1)
	}
	return args.Get(0).(mo.Option[*models.Form]), args.Error(1)
}

func (m *MockFormsService) GetFormBySubmitHash(
	ctx context.Context,
	submitHash string,
) (mo.Option[*models.Form], error) {
	args := m.Called(ctx, submitHash)
	if args.Get(0) == nil {
		return mo.None[*models.Form](), args.Error(1)
	}
	return args.Get(0).(mo.Option[*models.Form]), args.Error(1)
}

func (m *MockFormsService) GetFormsByOrganizationID(
	ctx context.Context,
	organizationID models.OrgID,
) ([]*models.Form, error) {
	args := m.Called(ctx, organizationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Form), args.Error(1)
}

func (m *MockFormsService) DeleteForm(ctx context.Context, organizationID models.OrgID, formID string) error {
	args := m.Called(ctx, organizationID, formID)
	return args.Error(0)
}
