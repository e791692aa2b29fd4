package handlers

import (
	"context"
	"log"

	"github.com/samber/mo"

	"formrelay/models"
	"formrelay/services"
)

// QueueAPIHandler carries the business logic behind the queue admin API:
// operator visibility into delivery jobs plus the manual retry command.
type QueueAPIHandler struct {
	jobsService services.JobsService
	// wakeQueue nudges the delivery engine after a manual retry so the
	// requeued job is picked up without waiting for the next sweep
	wakeQueue func(queue string)
}

func NewQueueAPIHandler(jobsService services.JobsService, wakeQueue func(queue string)) *QueueAPIHandler {
	if wakeQueue == nil {
		wakeQueue = func(string) {}
	}
	return &QueueAPIHandler{
		jobsService: jobsService,
		wakeQueue:   wakeQueue,
	}
}

// GetQueueStats returns per-queue job counts by state
func (h *QueueAPIHandler) GetQueueStats(
	ctx context.Context,
	org *models.Organization,
) (map[string]*models.QueueStats, error) {
	stats, err := h.jobsService.GetQueueStats(ctx, org.ID)
	if err != nil {
		log.Printf("❌ Failed to get queue stats: %v", err)
		return nil, err
	}
	return stats, nil
}

// ListJobs returns the organization's jobs, newest first
func (h *QueueAPIHandler) ListJobs(
	ctx context.Context,
	org *models.Organization,
	params services.ListJobsParams,
) ([]*models.DeliveryJob, error) {
	jobs, err := h.jobsService.ListJobs(ctx, org.ID, params)
	if err != nil {
		log.Printf("❌ Failed to list jobs: %v", err)
		return nil, err
	}

	log.Printf("✅ Retrieved %d jobs for organization: %s", len(jobs), org.ID)
	return jobs, nil
}

// GetJob returns one job scoped to the organization
func (h *QueueAPIHandler) GetJob(
	ctx context.Context,
	org *models.Organization,
	jobID string,
) (mo.Option[*models.DeliveryJob], error) {
	return h.jobsService.GetJobByID(ctx, org.ID, jobID)
}

// RetryJob forces a terminal job back onto its queue. Returns
// core.ErrConflict when the job is still in flight.
func (h *QueueAPIHandler) RetryJob(
	ctx context.Context,
	org *models.Organization,
	jobID string,
) (*models.DeliveryJob, error) {
	job, err := h.jobsService.RetryJob(ctx, org.ID, jobID)
	if err != nil {
		log.Printf("❌ Failed to retry job %s: %v", jobID, err)
		return nil, err
	}

	h.wakeQueue(job.Queue)
	log.Printf("✅ Job requeued successfully: %s", job.ID)
	return job, nil
}
