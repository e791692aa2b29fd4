package jobs

import (
	"context"
	"time"

	"github.com/samber/mo"
	"github.com/stretchr/testify/mock"

	"formrelay/models"
	"formrelay/services"
)

// MockJobsService implements JobsService for testing
type MockJobsService struct {
	mock.Mock
}

func (m *MockJobsService) EnqueueJob(
	ctx context.Context,
	params services.EnqueueJobParams,
) (*models.DeliveryJob, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DeliveryJob), args.Error(1)
}

func (m *MockJobsService) ClaimNextJob(
	ctx context.Context,
	queue string,
) (mo.Option[*models.DeliveryJob], error) {
	args := m.Called(ctx, queue)
	if args.Get(0) == nil {
		return mo.None[*models.DeliveryJob](), args.Error(1)
	}
	return args.Get(0).(mo.Option[*models.DeliveryJob]), args.Error(1)
}

func (m *MockJobsService) CompleteJob(ctx context.Context, jobID string, output string) error {
	args := m.Called(ctx, jobID, output)
	return args.Error(0)
}

func (m *MockJobsService) FailJob(ctx context.Context, jobID string, output string, countAttempt bool) error {
	args := m.Called(ctx, jobID, output, countAttempt)
	return args.Error(0)
}

func (m *MockJobsService) ScheduleRetry(
	ctx context.Context,
	jobID string,
	output string,
	delay time.Duration,
) error {
	args := m.Called(ctx, jobID, output, delay)
	return args.Error(0)
}

func (m *MockJobsService) RetryJob(
	ctx context.Context,
	organizationID models.OrgID,
	jobID string,
) (*models.DeliveryJob, error) {
	args := m.Called(ctx, organizationID, jobID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DeliveryJob), args.Error(1)
}

func (m *MockJobsService) GetJobByID(
	ctx context.Context,
	organizationID models.OrgID,
	jobID string,
) (mo.Option[*models.DeliveryJob], error) {
	args := m.Called(ctx, organizationID, jobID)
	if args.Get(0) == nil {
		return mo.None[*models.DeliveryJob](), args.Error(1)
	}
	return args.Get(0).(mo.Option[*models.DeliveryJob]), args.Error(1)
}

func (m *MockJobsService) GetQueueStats(
	ctx context.Context,
	organizationID models.OrgID,
) (map[string]*models.QueueStats, error) {
	args := m.Called(ctx, organizationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]*models.QueueStats), args.Error(1)
}

func (m *MockJobsService) ListJobs(
	ctx context.Context,
	organizationID models.OrgID,
	params services.ListJobsParams,
) ([]*models.DeliveryJob, error) {
	args := m.Called(ctx, organizationID, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.DeliveryJob), args.Error(1)
}
