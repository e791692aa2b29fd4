package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/samber/mo"

	// necessary import to wire up the postgres driver
	_ "github.com/lib/pq"

	"formrelay/core"
	dbtx "formrelay/db/tx"
	"formrelay/models"
)

type PostgresDeliveryJobsRepository struct {
	db     *sqlx.DB
	schema string
}

// DBDeliveryJob represents the database schema for the delivery_jobs table.
// Payload and config blobs are stored as JSONB.
type DBDeliveryJob struct {
	ID              string       `db:"id"`
	Queue           string       `db:"queue"`
	OrgID           models.OrgID `db:"organization_id"`
	FormID          string       `db:"form_id"`
	IntegrationID   string       `db:"integration_id"`
	IntegrationType string       `db:"integration_type"`
	Payload         []byte       `db:"payload"`
	Config          []byte       `db:"config"`
	State           string       `db:"state"`
	RetryCount      int          `db:"retry_count"`
	Output          *string      `db:"output"`
	NextAttemptAt   *time.Time   `db:"next_attempt_at"`
	StartedAt       *time.Time   `db:"started_at"`
	CompletedAt     *time.Time   `db:"completed_at"`
	CreatedAt       time.Time    `db:"created_at"`
	UpdatedAt       time.Time    `db:"updated_at"`
}

// Column names for delivery_jobs table
var deliveryJobsColumns = []string{
	"id",
	"queue",
	"organization_id",
	"form_id",
	"integration_id",
	"integration_type",
	"payload",
	"config",
	"state",
	"retry_count",
	"output",
	"next_attempt_at",
	"started_at",
	"completed_at",
	"created_at",
	"updated_at",
}

func NewPostgresDeliveryJobsRepository(db *sqlx.DB, schema string) *PostgresDeliveryJobsRepository {
	return &PostgresDeliveryJobsRepository{db: db, schema: schema}
}

// dbDeliveryJobToModel converts a DBDeliveryJob to models.DeliveryJob
func dbDeliveryJobToModel(dbJob *DBDeliveryJob) (*models.DeliveryJob, error) {
	job := &models.DeliveryJob{
		ID:              dbJob.ID,
		Queue:           dbJob.Queue,
		OrgID:           dbJob.OrgID,
		FormID:          dbJob.FormID,
		IntegrationID:   dbJob.IntegrationID,
		IntegrationType: models.IntegrationType(dbJob.IntegrationType),
		State:           models.JobState(dbJob.State),
		RetryCount:      dbJob.RetryCount,
		Output:          dbJob.Output,
		NextAttemptAt:   dbJob.NextAttemptAt,
		StartedAt:       dbJob.StartedAt,
		CompletedAt:     dbJob.CompletedAt,
		CreatedAt:       dbJob.CreatedAt,
		UpdatedAt:       dbJob.UpdatedAt,
	}

	if !job.State.IsValid() {
		return nil, fmt.Errorf("unsupported job state: %s for job_id=%s", dbJob.State, dbJob.ID)
	}
	if err := json.Unmarshal(dbJob.Payload, &job.Payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job payload: job_id=%s: %w", dbJob.ID, err)
	}
	if err := json.Unmarshal(dbJob.Config, &job.Config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job config: job_id=%s: %w", dbJob.ID, err)
	}

	return job, nil
}

// modelToDBDeliveryJob converts a models.DeliveryJob to DBDeliveryJob
func modelToDBDeliveryJob(job *models.DeliveryJob) (*DBDeliveryJob, error) {
	payloadJSON, err := json.Marshal(job.Payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal job payload: %w", err)
	}
	configJSON, err := json.Marshal(job.Config)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal job config: %w", err)
	}

	return &DBDeliveryJob{
		ID:              job.ID,
		Queue:           job.Queue,
		OrgID:           job.OrgID,
		FormID:          job.FormID,
		IntegrationID:   job.IntegrationID,
		IntegrationType: string(job.IntegrationType),
		Payload:         payloadJSON,
		Config:          configJSON,
		State:           string(job.State),
		RetryCount:      job.RetryCount,
		Output:          job.Output,
		NextAttemptAt:   job.NextAttemptAt,
		StartedAt:       job.StartedAt,
		CompletedAt:     job.CompletedAt,
	}, nil
}

func (r *PostgresDeliveryJobsRepository) CreateJob(ctx context.Context, job *models.DeliveryJob) error {
	db := dbtx.GetTransactional(ctx, r.db)
	dbJob, err := modelToDBDeliveryJob(job)
	if err != nil {
		return fmt.Errorf("failed to convert job to db model: %w", err)
	}

	insertColumns := []string{
		"id",
		"queue",
		"organization_id",
		"form_id",
		"integration_id",
		"integration_type",
		"payload",
		"config",
		"state",
		"retry_count",
	}
	columnsStr := strings.Join(insertColumns, ", ")
	returningStr := strings.Join(deliveryJobsColumns, ", ")

	query := fmt.Sprintf(`
		INSERT INTO %s.delivery_jobs (%s, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
		RETURNING %s`, r.schema, columnsStr, returningStr)

	var returnedDBJob DBDeliveryJob
	err = db.QueryRowxContext(ctx, query,
		dbJob.ID, dbJob.Queue, dbJob.OrgID, dbJob.FormID, dbJob.IntegrationID,
		dbJob.IntegrationType, dbJob.Payload, dbJob.Config, dbJob.State, dbJob.RetryCount).
		StructScan(&returnedDBJob)
	if err != nil {
		return fmt.Errorf("failed to create delivery job: %w", err)
	}

	converted, err := dbDeliveryJobToModel(&returnedDBJob)
	if err != nil {
		return fmt.Errorf("failed to convert created delivery job: %w", err)
	}
	*job = *converted
	return nil
}

func (r *PostgresDeliveryJobsRepository) GetJobByID(
	ctx context.Context,
	id string,
	organizationID models.OrgID,
) (mo.Option[*models.DeliveryJob], error) {
	if !core.IsValidULID(id) {
		return mo.None[*models.DeliveryJob](), fmt.Errorf("job ID must be a valid ULID")
	}

	db := dbtx.GetTransactional(ctx, r.db)
	columnsStr := strings.Join(deliveryJobsColumns, ", ")
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s.delivery_jobs
		WHERE id = $1 AND organization_id = $2`, columnsStr, r.schema)

	var dbJob DBDeliveryJob
	err := db.GetContext(ctx, &dbJob, query, id, organizationID)
	if err != nil {
		if err == sql.ErrNoRows {
			return mo.None[*models.DeliveryJob](), nil
		}
		return mo.None[*models.DeliveryJob](), fmt.Errorf("failed to get delivery job: %w", err)
	}

	converted, err := dbDeliveryJobToModel(&dbJob)
	if err != nil {
		return mo.None[*models.DeliveryJob](), fmt.Errorf("failed to convert delivery job: %w", err)
	}
	return mo.Some(converted), nil
}

// ClaimNextJob atomically claims the oldest ready job in a queue and moves it
// to ACTIVE. A job is ready when it is CREATED, or RETRY with its backoff
// interval elapsed. FOR UPDATE SKIP LOCKED guarantees two workers never claim
// the same job.
func (r *PostgresDeliveryJobsRepository) ClaimNextJob(
	ctx context.Context,
	queue string,
) (mo.Option[*models.DeliveryJob], error) {
	db := dbtx.GetTransactional(ctx, r.db)
	returningStr := strings.Join(deliveryJobsColumns, ", ")

	query := fmt.Sprintf(`
		UPDATE %s.delivery_jobs
		SET state = 'ACTIVE', started_at = NOW(), updated_at = NOW()
		WHERE id = (
			SELECT id
			FROM %s.delivery_jobs
			WHERE queue = $1
			AND (state = 'CREATED' OR (state = 'RETRY' AND next_attempt_at <= NOW()))
			ORDER BY created_at ASC
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING %s`, r.schema, r.schema, returningStr)

	var dbJob DBDeliveryJob
	err := db.GetContext(ctx, &dbJob, query, queue)
	if err != nil {
		if err == sql.ErrNoRows {
			return mo.None[*models.DeliveryJob](), nil
		}
		return mo.None[*models.DeliveryJob](), fmt.Errorf("failed to claim next job: %w", err)
	}

	converted, err := dbDeliveryJobToModel(&dbJob)
	if err != nil {
		return mo.None[*models.DeliveryJob](), fmt.Errorf("failed to convert claimed job: %w", err)
	}
	return mo.Some(converted), nil
}

// CompleteJob transitions ACTIVE -> COMPLETED. Returns false if the job was
// not in ACTIVE state (compare-and-set miss).
func (r *PostgresDeliveryJobsRepository) CompleteJob(ctx context.Context, id string, output string) (bool, error) {
	db := dbtx.GetTransactional(ctx, r.db)
	query := fmt.Sprintf(`
		UPDATE %s.delivery_jobs
		SET state = 'COMPLETED', output = $2, next_attempt_at = NULL, completed_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND state = 'ACTIVE'`, r.schema)

	result, err := db.ExecContext(ctx, query, id, output)
	if err != nil {
		return false, fmt.Errorf("failed to complete job: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return rowsAffected > 0, nil
}

// FailJob transitions ACTIVE -> FAILED. When countAttempt is true the retry
// counter is bumped as well, so a job failed on its final recoverable attempt
// records that attempt in retry_count.
func (r *PostgresDeliveryJobsRepository) FailJob(
	ctx context.Context,
	id string,
	output string,
	countAttempt bool,
) (bool, error) {
	db := dbtx.GetTransactional(ctx, r.db)
	bump := 0
	if countAttempt {
		bump = 1
	}

	query := fmt.Sprintf(`
		UPDATE %s.delivery_jobs
		SET state = 'FAILED', output = $2, retry_count = retry_count + $3,
			next_attempt_at = NULL, completed_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND state = 'ACTIVE'`, r.schema)

	result, err := db.ExecContext(ctx, query, id, output, bump)
	if err != nil {
		return false, fmt.Errorf("failed to fail job: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return rowsAffected > 0, nil
}

// ScheduleJobRetry transitions ACTIVE -> RETRY, increments the retry counter
// and records when the job becomes ready again.
func (r *PostgresDeliveryJobsRepository) ScheduleJobRetry(
	ctx context.Context,
	id string,
	output string,
	nextAttemptAt time.Time,
) (bool, error) {
	db := dbtx.GetTransactional(ctx, r.db)
	query := fmt.Sprintf(`
		UPDATE %s.delivery_jobs
		SET state = 'RETRY', output = $2, retry_count = retry_count + 1,
			next_attempt_at = $3, updated_at = NOW()
		WHERE id = $1 AND state = 'ACTIVE'`, r.schema)

	result, err := db.ExecContext(ctx, query, id, output, nextAttemptAt)
	if err != nil {
		return false, fmt.Errorf("failed to schedule job retry: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return rowsAffected > 0, nil
}

// RequeueJob is the manual-retry edge: FAILED|COMPLETED -> CREATED. Output
// and attempt timestamps are cleared, retry_count is deliberately kept.
// Returns false when the job was not in a terminal state.
func (r *PostgresDeliveryJobsRepository) RequeueJob(
	ctx context.Context,
	id string,
	organizationID models.OrgID,
) (bool, error) {
	if !core.IsValidULID(id) {
		return false, fmt.Errorf("job ID must be a valid ULID")
	}

	db := dbtx.GetTransactional(ctx, r.db)
	query := fmt.Sprintf(`
		UPDATE %s.delivery_jobs
		SET state = 'CREATED', output = NULL, next_attempt_at = NULL,
			started_at = NULL, completed_at = NULL, updated_at = NOW()
		WHERE id = $1 AND organization_id = $2 AND state IN ('FAILED', 'COMPLETED')`, r.schema)

	result, err := db.ExecContext(ctx, query, id, organizationID)
	if err != nil {
		return false, fmt.Errorf("failed to requeue job: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return rowsAffected > 0, nil
}

type queueStatsRow struct {
	Queue string `db:"queue"`
	State string `db:"state"`
	Count int    `db:"count"`
}

// GetQueueStats returns per-queue per-state job counts for an organization.
func (r *PostgresDeliveryJobsRepository) GetQueueStats(
	ctx context.Context,
	organizationID models.OrgID,
) (map[string]*models.QueueStats, error) {
	db := dbtx.GetTransactional(ctx, r.db)
	query := fmt.Sprintf(`
		SELECT queue, state, COUNT(*) AS count
		FROM %s.delivery_jobs
		WHERE organization_id = $1
		GROUP BY queue, state`, r.schema)

	var rows []queueStatsRow
	err := db.SelectContext(ctx, &rows, query, organizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to get queue stats: %w", err)
	}

	stats := make(map[string]*models.QueueStats)
	for _, row := range rows {
		queueStats, ok := stats[row.Queue]
		if !ok {
			queueStats = &models.QueueStats{}
			stats[row.Queue] = queueStats
		}
		switch models.JobState(row.State) {
		case models.JobStateCreated:
			queueStats.Created = row.Count
		case models.JobStateActive:
			queueStats.Active = row.Count
		case models.JobStateRetry:
			queueStats.Retry = row.Count
		case models.JobStateCompleted:
			queueStats.Completed = row.Count
		case models.JobStateFailed:
			queueStats.Failed = row.Count
		}
	}

	return stats, nil
}

// ListJobs returns an organization's jobs, newest first, optionally filtered
// by queue and state.
func (r *PostgresDeliveryJobsRepository) ListJobs(
	ctx context.Context,
	organizationID models.OrgID,
	queue *string,
	state *models.JobState,
	limit, offset int,
) ([]*models.DeliveryJob, error) {
	db := dbtx.GetTransactional(ctx, r.db)
	columnsStr := strings.Join(deliveryJobsColumns, ", ")

	conditions := []string{"organization_id = $1"}
	args := []interface{}{organizationID}
	if queue != nil {
		args = append(args, *queue)
		conditions = append(conditions, fmt.Sprintf("queue = $%d", len(args)))
	}
	if state != nil {
		args = append(args, string(*state))
		conditions = append(conditions, fmt.Sprintf("state = $%d", len(args)))
	}

	args = append(args, limit)
	limitPos := len(args)
	args = append(args, offset)
	offsetPos := len(args)

	query := fmt.Sprintf(`
		SELECT %s
		FROM %s.delivery_jobs
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`, columnsStr, r.schema, strings.Join(conditions, " AND "), limitPos, offsetPos)

	var dbJobs []DBDeliveryJob
	err := db.SelectContext(ctx, &dbJobs, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list delivery jobs: %w", err)
	}

	jobs := make([]*models.DeliveryJob, 0, len(dbJobs))
	for i := range dbJobs {
		converted, err := dbDeliveryJobToModel(&dbJobs[i])
		if err != nil {
			return nil, fmt.Errorf("failed to convert delivery job: %w", err)
		}
		jobs = append(jobs, converted)
	}

	return jobs, nil
}
