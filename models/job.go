package models

import (
	"time"
)

type JobState string

const (
	JobStateCreated   JobState = "CREATED"
	JobStateActive    JobState = "ACTIVE"
	JobStateRetry     JobState = "RETRY"
	JobStateCompleted JobState = "COMPLETED"
	JobStateFailed    JobState = "FAILED"
)

var JobStates = []JobState{
	JobStateCreated,
	JobStateActive,
	JobStateRetry,
	JobStateCompleted,
	JobStateFailed,
}

func (s JobState) IsValid() bool {
	for _, known := range JobStates {
		if s == known {
			return true
		}
	}
	return false
}

// CanRetryManually reports whether an operator may force the job back to
// CREATED. Only terminal states qualify; retrying a job that is still moving
// through the pipeline is a conflict.
func CanRetryManually(s JobState) bool {
	return s == JobStateFailed || s == JobStateCompleted
}

const queueNamePrefix = "integration-"

// QueueNameForType maps an integration type to its delivery queue,
// e.g. "integration-webhook". Queues are independent of each other.
func QueueNameForType(t IntegrationType) string {
	return queueNamePrefix + string(t)
}

// QueueNames lists every delivery queue in integration type order.
func QueueNames() []string {
	names := make([]string, 0, len(IntegrationTypes))
	for _, t := range IntegrationTypes {
		names = append(names, QueueNameForType(t))
	}
	return names
}

// SubmissionPayload is the form submission data carried by a delivery job.
type SubmissionPayload struct {
	FormID     string         `json:"form_id"`
	FormName   string         `json:"form_name"`
	ReceivedAt time.Time      `json:"received_at"`
	Fields     map[string]any `json:"fields"`
}

// DeliveryJob is one delivery attempt unit. It is owned by the job queue:
// created on enqueue, mutated only by workers and the manual-retry command,
// and retained after completion for audit.
type DeliveryJob struct {
	ID              string            `db:"id"               json:"id"`
	Queue           string            `db:"queue"            json:"queue"`
	OrgID           OrgID             `db:"organization_id"  json:"organization_id"`
	FormID          string            `db:"form_id"          json:"form_id"`
	IntegrationID   string            `db:"integration_id"   json:"integration_id"`
	IntegrationType IntegrationType   `db:"integration_type" json:"integration_type"`
	Payload         SubmissionPayload `json:"payload"`
	Config          IntegrationConfig `json:"config"`
	State           JobState          `db:"state"            json:"state"`
	RetryCount      int               `db:"retry_count"      json:"retry_count"`
	Output          *string           `db:"output"           json:"output,omitempty"`
	NextAttemptAt   *time.Time        `db:"next_attempt_at"  json:"next_attempt_at,omitempty"`
	StartedAt       *time.Time        `db:"started_at"       json:"started_at,omitempty"`
	CompletedAt     *time.Time        `db:"completed_at"     json:"completed_at,omitempty"`
	CreatedAt       time.Time         `db:"created_at"       json:"created_at"`
	UpdatedAt       time.Time         `db:"updated_at"       json:"updated_at"`
}

// QueueStats is the per-queue state breakdown surfaced to operators.
type QueueStats struct {
	Created   int `json:"created"`
	Active    int `json:"active"`
	Retry     int `json:"retry"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
}
