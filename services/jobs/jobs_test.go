package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"formrelay/core"
	"formrelay/db"
	"formrelay/models"
	"formrelay/services"
	"formrelay/testutils"
)

type jobsTestFixture struct {
	service     *JobsService
	org         *models.Organization
	form        *models.Form
	integration *models.Integration
	queue       string
}

func setupTestJobsService(t *testing.T) (*jobsTestFixture, func()) {
	cfg, err := testutils.LoadTestConfig()
	if err != nil {
		t.Skipf("Skipping integration test: %v", err)
	}

	dbConn, err := db.NewConnection(cfg.DatabaseURL)
	require.NoError(t, err, "Failed to create database connection")

	organizationsRepo := db.NewPostgresOrganizationsRepository(dbConn, cfg.DatabaseSchema)
	formsRepo := db.NewPostgresFormsRepository(dbConn, cfg.DatabaseSchema)
	integrationsRepo := db.NewPostgresIntegrationsRepository(dbConn, cfg.DatabaseSchema)
	jobsRepo := db.NewPostgresDeliveryJobsRepository(dbConn, cfg.DatabaseSchema)

	org := testutils.CreateTestOrganization(t, organizationsRepo)
	form := testutils.CreateTestForm(t, formsRepo, org.ID, true)
	integration := testutils.CreateTestWebhookIntegration(
		t, integrationsRepo, org.ID, models.IntegrationScopeOrganization, nil, true)

	fixture := &jobsTestFixture{
		service:     NewJobsService(jobsRepo),
		org:         org,
		form:        form,
		integration: integration,
		queue:       models.QueueNameForType(integration.Type),
	}

	cleanup := func() {
		_ = integrationsRepo.DeleteIntegrationByID(context.Background(), integration.ID, org.ID)
		_ = formsRepo.DeleteForm(context.Background(), form.ID, org.ID)
		dbConn.Close()
	}
	return fixture, cleanup
}

func (f *jobsTestFixture) enqueue(t *testing.T) *models.DeliveryJob {
	t.Helper()
	job, err := f.service.EnqueueJob(context.Background(), services.EnqueueJobParams{
		OrgID:       f.org.ID,
		FormID:      f.form.ID,
		Integration: f.integration,
		Payload: models.SubmissionPayload{
			FormID:     f.form.ID,
			FormName:   f.form.Name,
			ReceivedAt: time.Now().UTC(),
			Fields:     map[string]any{"email": "test@example.com"},
		},
	})
	require.NoError(t, err, "Failed to enqueue job")
	return job
}

func TestJobLifecycle(t *testing.T) {
	fixture, cleanup := setupTestJobsService(t)
	defer cleanup()
	ctx := context.Background()

	t.Run("claims jobs oldest first", func(t *testing.T) {
		first := fixture.enqueue(t)
		second := fixture.enqueue(t)

		claimed, err := fixture.service.ClaimNextJob(ctx, fixture.queue)
		require.NoError(t, err)
		claimedJob := claimed.MustGet()
		assert.Equal(t, first.ID, claimedJob.ID)
		assert.Equal(t, models.JobStateActive, claimedJob.State)
		assert.NotNil(t, claimedJob.StartedAt)

		require.NoError(t, fixture.service.CompleteJob(ctx, claimedJob.ID, "delivered"))

		claimed, err = fixture.service.ClaimNextJob(ctx, fixture.queue)
		require.NoError(t, err)
		assert.Equal(t, second.ID, claimed.MustGet().ID)

		require.NoError(t, fixture.service.CompleteJob(ctx, claimed.MustGet().ID, "delivered"))
	})

	t.Run("completed job records output and completion time", func(t *testing.T) {
		job := fixture.enqueue(t)
		claimed, err := fixture.service.ClaimNextJob(ctx, fixture.queue)
		require.NoError(t, err)
		require.Equal(t, job.ID, claimed.MustGet().ID)

		require.NoError(t, fixture.service.CompleteJob(ctx, job.ID, "status 200"))

		stored, err := fixture.service.GetJobByID(ctx, fixture.org.ID, job.ID)
		require.NoError(t, err)
		storedJob := stored.MustGet()
		assert.Equal(t, models.JobStateCompleted, storedJob.State)
		require.NotNil(t, storedJob.Output)
		assert.Equal(t, "status 200", *storedJob.Output)
		assert.NotNil(t, storedJob.CompletedAt)
	})

	t.Run("completing a non-active job is a no-op", func(t *testing.T) {
		job := fixture.enqueue(t)

		// Still CREATED, the compare-and-set must miss
		require.NoError(t, fixture.service.CompleteJob(ctx, job.ID, "too early"))

		stored, err := fixture.service.GetJobByID(ctx, fixture.org.ID, job.ID)
		require.NoError(t, err)
		assert.Equal(t, models.JobStateCreated, stored.MustGet().State)

		claimed, err := fixture.service.ClaimNextJob(ctx, fixture.queue)
		require.NoError(t, err)
		require.NoError(t, fixture.service.CompleteJob(ctx, claimed.MustGet().ID, "delivered"))
	})

	t.Run("scheduled retry becomes claimable after its delay", func(t *testing.T) {
		job := fixture.enqueue(t)
		claimed, err := fixture.service.ClaimNextJob(ctx, fixture.queue)
		require.NoError(t, err)
		require.Equal(t, job.ID, claimed.MustGet().ID)

		require.NoError(t, fixture.service.ScheduleRetry(ctx, job.ID, "timeout", 0))

		stored, err := fixture.service.GetJobByID(ctx, fixture.org.ID, job.ID)
		require.NoError(t, err)
		storedJob := stored.MustGet()
		assert.Equal(t, models.JobStateRetry, storedJob.State)
		assert.Equal(t, 1, storedJob.RetryCount)
		assert.NotNil(t, storedJob.NextAttemptAt)

		reclaimed, err := fixture.service.ClaimNextJob(ctx, fixture.queue)
		require.NoError(t, err)
		assert.Equal(t, job.ID, reclaimed.MustGet().ID)

		require.NoError(t, fixture.service.CompleteJob(ctx, job.ID, "delivered"))
	})

	t.Run("failed job counts the final attempt when asked", func(t *testing.T) {
		job := fixture.enqueue(t)
		claimed, err := fixture.service.ClaimNextJob(ctx, fixture.queue)
		require.NoError(t, err)
		require.Equal(t, job.ID, claimed.MustGet().ID)

		require.NoError(t, fixture.service.FailJob(ctx, job.ID, "status 503", true))

		stored, err := fixture.service.GetJobByID(ctx, fixture.org.ID, job.ID)
		require.NoError(t, err)
		storedJob := stored.MustGet()
		assert.Equal(t, models.JobStateFailed, storedJob.State)
		assert.Equal(t, 1, storedJob.RetryCount)
	})
}

func TestManualRetry(t *testing.T) {
	fixture, cleanup := setupTestJobsService(t)
	defer cleanup()
	ctx := context.Background()

	failJob := func(t *testing.T) *models.DeliveryJob {
		t.Helper()
		job := fixture.enqueue(t)
		claimed, err := fixture.service.ClaimNextJob(ctx, fixture.queue)
		require.NoError(t, err)
		require.Equal(t, job.ID, claimed.MustGet().ID)
		require.NoError(t, fixture.service.FailJob(ctx, job.ID, "status 404", false))
		return job
	}

	t.Run("requeues a failed job and keeps its retry count", func(t *testing.T) {
		// Exhaust the automatic retries first: two scheduled retries plus
		// the counted final failure leave the job FAILED with retry_count 3
		job := fixture.enqueue(t)
		for i := 0; i < 2; i++ {
			claimed, err := fixture.service.ClaimNextJob(ctx, fixture.queue)
			require.NoError(t, err)
			require.Equal(t, job.ID, claimed.MustGet().ID)
			require.NoError(t, fixture.service.ScheduleRetry(ctx, job.ID, "timeout", 0))
		}
		claimed, err := fixture.service.ClaimNextJob(ctx, fixture.queue)
		require.NoError(t, err)
		require.Equal(t, job.ID, claimed.MustGet().ID)
		require.NoError(t, fixture.service.FailJob(ctx, job.ID, "status 503", true))

		requeued, err := fixture.service.RetryJob(ctx, fixture.org.ID, job.ID)
		require.NoError(t, err)
		assert.Equal(t, models.JobStateCreated, requeued.State)
		assert.Equal(t, 3, requeued.RetryCount)
		assert.Nil(t, requeued.Output)
		assert.Nil(t, requeued.StartedAt)
		assert.Nil(t, requeued.CompletedAt)

		claimed, err = fixture.service.ClaimNextJob(ctx, fixture.queue)
		require.NoError(t, err)
		require.Equal(t, job.ID, claimed.MustGet().ID)
		require.NoError(t, fixture.service.CompleteJob(ctx, job.ID, "delivered"))
	})

	t.Run("conflicts when the job is not terminal", func(t *testing.T) {
		job := fixture.enqueue(t)

		_, err := fixture.service.RetryJob(ctx, fixture.org.ID, job.ID)
		require.Error(t, err)
		assert.True(t, core.IsConflictError(err))

		claimed, err := fixture.service.ClaimNextJob(ctx, fixture.queue)
		require.NoError(t, err)
		require.NoError(t, fixture.service.CompleteJob(ctx, claimed.MustGet().ID, "delivered"))
	})

	t.Run("not found for foreign organization", func(t *testing.T) {
		job := failJob(t)

		_, err := fixture.service.RetryJob(ctx, models.OrgID(core.NewID("org")), job.ID)
		require.Error(t, err)
		assert.True(t, core.IsNotFoundError(err))
	})

	t.Run("not found for unknown job", func(t *testing.T) {
		_, err := fixture.service.RetryJob(ctx, fixture.org.ID, core.NewID("job"))
		require.Error(t, err)
		assert.True(t, core.IsNotFoundError(err))
	})
}

func TestQueueStatsAndListing(t *testing.T) {
	fixture, cleanup := setupTestJobsService(t)
	defer cleanup()
	ctx := context.Background()

	completed := fixture.enqueue(t)
	claimed, err := fixture.service.ClaimNextJob(ctx, fixture.queue)
	require.NoError(t, err)
	require.Equal(t, completed.ID, claimed.MustGet().ID)
	require.NoError(t, fixture.service.CompleteJob(ctx, completed.ID, "delivered"))

	pending := fixture.enqueue(t)

	t.Run("stats cover every queue", func(t *testing.T) {
		stats, err := fixture.service.GetQueueStats(ctx, fixture.org.ID)
		require.NoError(t, err)
		require.Len(t, stats, len(models.QueueNames()))

		webhookStats := stats[fixture.queue]
		require.NotNil(t, webhookStats)
		assert.Equal(t, 1, webhookStats.Completed)
		assert.Equal(t, 1, webhookStats.Created)

		// Queues with no jobs yet still report zeroed stats
		slackStats := stats[models.QueueNameForType(models.IntegrationTypeSlack)]
		require.NotNil(t, slackStats)
		assert.Equal(t, &models.QueueStats{}, slackStats)
	})

	t.Run("lists newest first with state filter", func(t *testing.T) {
		state := models.JobStateCreated
		jobsList, err := fixture.service.ListJobs(ctx, fixture.org.ID, services.ListJobsParams{
			Queue: &fixture.queue,
			State: &state,
		})
		require.NoError(t, err)
		require.Len(t, jobsList, 1)
		assert.Equal(t, pending.ID, jobsList[0].ID)
	})

	t.Run("rejects unsupported state", func(t *testing.T) {
		bogus := models.JobState("BOGUS")
		_, err := fixture.service.ListJobs(ctx, fixture.org.ID, services.ListJobsParams{State: &bogus})
		require.Error(t, err)
	})
}
