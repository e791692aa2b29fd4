package jobs

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/samber/mo"

	"formrelay/core"
	"formrelay/db"
	"formrelay/models"
	"formrelay/services"
	"formrelay/utils"
)

// maxOutputLen bounds the adapter output stored on a job so a misbehaving
// destination cannot bloat the jobs table.
const maxOutputLen = 4000

type JobsService struct {
	jobsRepo *db.PostgresDeliveryJobsRepository
}

func NewJobsService(jobsRepo *db.PostgresDeliveryJobsRepository) *JobsService {
	return &JobsService{jobsRepo: jobsRepo}
}

func (s *JobsService) EnqueueJob(
	ctx context.Context,
	params services.EnqueueJobParams,
) (*models.DeliveryJob, error) {
	if params.Integration == nil {
		return nil, fmt.Errorf("integration cannot be nil")
	}
	if !core.IsValidULID(params.FormID) {
		return nil, fmt.Errorf("form ID must be a valid ULID")
	}
	log.Printf("➕ Starting to enqueue %s delivery job for form: %s", params.Integration.Type, params.FormID)

	job := &models.DeliveryJob{
		ID:              core.NewID("job"),
		Queue:           models.QueueNameForType(params.Integration.Type),
		OrgID:           params.OrgID,
		FormID:          params.FormID,
		IntegrationID:   params.Integration.ID,
		IntegrationType: params.Integration.Type,
		Payload:         params.Payload,
		Config:          params.Integration.Config,
		State:           models.JobStateCreated,
		RetryCount:      0,
	}

	if err := s.jobsRepo.CreateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to enqueue delivery job: %w", err)
	}

	log.Printf("✅ Completed successfully - enqueued job %s on queue %s", job.ID, job.Queue)
	return job, nil
}

func (s *JobsService) ClaimNextJob(
	ctx context.Context,
	queue string,
) (mo.Option[*models.DeliveryJob], error) {
	if queue == "" {
		return mo.None[*models.DeliveryJob](), fmt.Errorf("queue cannot be empty")
	}

	job, err := s.jobsRepo.ClaimNextJob(ctx, queue)
	if err != nil {
		return mo.None[*models.DeliveryJob](), fmt.Errorf("failed to claim next job: %w", err)
	}
	return job, nil
}

func (s *JobsService) CompleteJob(ctx context.Context, jobID string, output string) error {
	if !core.IsValidULID(jobID) {
		return fmt.Errorf("job ID must be a valid ULID")
	}

	updated, err := s.jobsRepo.CompleteJob(ctx, jobID, utils.TruncateString(output, maxOutputLen))
	if err != nil {
		return fmt.Errorf("failed to complete job: %w", err)
	}
	if !updated {
		log.Printf("⚠️ Job %s was not ACTIVE when completing, transition skipped", jobID)
		return nil
	}

	log.Printf("✅ Completed delivery job: %s", jobID)
	return nil
}

func (s *JobsService) FailJob(ctx context.Context, jobID string, output string, countAttempt bool) error {
	if !core.IsValidULID(jobID) {
		return fmt.Errorf("job ID must be a valid ULID")
	}

	updated, err := s.jobsRepo.FailJob(ctx, jobID, utils.TruncateString(output, maxOutputLen), countAttempt)
	if err != nil {
		return fmt.Errorf("failed to fail job: %w", err)
	}
	if !updated {
		log.Printf("⚠️ Job %s was not ACTIVE when failing, transition skipped", jobID)
		return nil
	}

	log.Printf("❌ Failed delivery job: %s", jobID)
	return nil
}

func (s *JobsService) ScheduleRetry(
	ctx context.Context,
	jobID string,
	output string,
	delay time.Duration,
) error {
	if !core.IsValidULID(jobID) {
		return fmt.Errorf("job ID must be a valid ULID")
	}
	if delay < 0 {
		return fmt.Errorf("retry delay cannot be negative")
	}

	nextAttemptAt := time.Now().UTC().Add(delay)
	updated, err := s.jobsRepo.ScheduleJobRetry(ctx, jobID, utils.TruncateString(output, maxOutputLen), nextAttemptAt)
	if err != nil {
		return fmt.Errorf("failed to schedule job retry: %w", err)
	}
	if !updated {
		log.Printf("⚠️ Job %s was not ACTIVE when scheduling retry, transition skipped", jobID)
		return nil
	}

	log.Printf("📋 Scheduled retry for job %s in %s", jobID, delay)
	return nil
}

// RetryJob is the manual admin retry: a terminal job is put back on its queue.
// Returns core.ErrConflict when the job exists but is not FAILED or COMPLETED.
func (s *JobsService) RetryJob(
	ctx context.Context,
	organizationID models.OrgID,
	jobID string,
) (*models.DeliveryJob, error) {
	log.Printf("📋 Starting to retry job: %s for organization: %s", jobID, organizationID)
	if !core.IsValidULID(jobID) {
		return nil, fmt.Errorf("job ID must be a valid ULID")
	}

	requeued, err := s.jobsRepo.RequeueJob(ctx, jobID, organizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to requeue job: %w", err)
	}
	if !requeued {
		maybeJob, err := s.jobsRepo.GetJobByID(ctx, jobID, organizationID)
		if err != nil {
			return nil, fmt.Errorf("failed to get job: %w", err)
		}
		if maybeJob.IsAbsent() {
			return nil, core.ErrNotFound
		}
		return nil, core.ErrConflict
	}

	maybeJob, err := s.jobsRepo.GetJobByID(ctx, jobID, organizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to get requeued job: %w", err)
	}
	job, ok := maybeJob.Get()
	if !ok {
		return nil, core.ErrNotFound
	}

	log.Printf("✅ Completed successfully - requeued job: %s", jobID)
	return job, nil
}

func (s *JobsService) GetJobByID(
	ctx context.Context,
	organizationID models.OrgID,
	jobID string,
) (mo.Option[*models.DeliveryJob], error) {
	if !core.IsValidULID(jobID) {
		return mo.None[*models.DeliveryJob](), fmt.Errorf("job ID must be a valid ULID")
	}

	job, err := s.jobsRepo.GetJobByID(ctx, jobID, organizationID)
	if err != nil {
		return mo.None[*models.DeliveryJob](), fmt.Errorf("failed to get job by ID: %w", err)
	}
	return job, nil
}

// GetQueueStats returns stats for every known queue, zero-filled for queues
// with no jobs yet.
func (s *JobsService) GetQueueStats(
	ctx context.Context,
	organizationID models.OrgID,
) (map[string]*models.QueueStats, error) {
	stats, err := s.jobsRepo.GetQueueStats(ctx, organizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to get queue stats: %w", err)
	}

	for _, queue := range models.QueueNames() {
		if _, ok := stats[queue]; !ok {
			stats[queue] = &models.QueueStats{}
		}
	}
	return stats, nil
}

func (s *JobsService) ListJobs(
	ctx context.Context,
	organizationID models.OrgID,
	params services.ListJobsParams,
) ([]*models.DeliveryJob, error) {
	if params.State != nil && !params.State.IsValid() {
		return nil, fmt.Errorf("unsupported job state: %s", *params.State)
	}
	if params.Limit <= 0 || params.Limit > 100 {
		params.Limit = 50
	}
	if params.Offset < 0 {
		params.Offset = 0
	}

	jobsList, err := s.jobsRepo.ListJobs(ctx, organizationID, params.Queue, params.State, params.Limit, params.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	return jobsList, nil
}
