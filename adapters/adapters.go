package adapters

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"formrelay/models"
)

// Adapter delivers a form submission to one channel type. Deliver returns a
// short human readable outcome on success. Failures are classified through
// DeliveryError so the dispatcher knows whether retrying can help.
type Adapter interface {
	Type() models.IntegrationType
	Deliver(ctx context.Context, config models.IntegrationConfig, payload models.SubmissionPayload) (string, error)
}

// DeliveryError is a failed delivery attempt. Recoverable means a later
// attempt against the same destination may succeed (network trouble, 5xx,
// rate limits). Non-recoverable failures (bad config, auth rejection, 4xx)
// fail the job immediately.
type DeliveryError struct {
	Recoverable bool
	Err         error
}

func (e *DeliveryError) Error() string {
	return e.Err.Error()
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// RecoverableError wraps an error as a retryable delivery failure.
func RecoverableError(format string, args ...any) error {
	return &DeliveryError{Recoverable: true, Err: fmt.Errorf(format, args...)}
}

// NonRecoverableError wraps an error as a terminal delivery failure.
func NonRecoverableError(format string, args ...any) error {
	return &DeliveryError{Recoverable: false, Err: fmt.Errorf(format, args...)}
}

// IsRecoverable reports whether a failed attempt is worth retrying.
// Unclassified errors default to recoverable so transient trouble is never
// silently terminal.
func IsRecoverable(err error) bool {
	if err == nil {
		return false
	}
	var deliveryErr *DeliveryError
	if errors.As(err, &deliveryErr) {
		return deliveryErr.Recoverable
	}
	return true
}

// RunWithContext runs a blocking delivery call that has no context support of
// its own and abandons it when the context expires. The abandoned call keeps
// running in its goroutine until its own client timeout fires.
func RunWithContext(ctx context.Context, fn func() (string, error)) (string, error) {
	type outcome struct {
		detail string
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		detail, err := fn()
		done <- outcome{detail: detail, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", RecoverableError("delivery timed out: %v", ctx.Err())
	case result := <-done:
		return result.detail, result.err
	}
}

// RenderSubmissionText formats a submission for chat style channels. Field
// order is stable so repeated deliveries of the same payload are identical.
func RenderSubmissionText(payload models.SubmissionPayload) string {
	var b strings.Builder
	fmt.Fprintf(&b, "New submission for %s\n", payload.FormName)
	fmt.Fprintf(&b, "Received at %s\n", payload.ReceivedAt.UTC().Format(time.RFC3339))

	keys := make([]string, 0, len(payload.Fields))
	for key := range payload.Fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		fmt.Fprintf(&b, "%s: %v\n", key, payload.Fields[key])
	}

	return strings.TrimRight(b.String(), "\n")
}
