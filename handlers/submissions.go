package handlers

import (
	"context"
	"fmt"
	"log"

	"formrelay/models"
	"formrelay/services"
)

// SubmissionDispatcher is the slice of the delivery engine the public
// submission endpoint needs.
type SubmissionDispatcher interface {
	DispatchSubmission(ctx context.Context, form *models.Form, fields map[string]any) ([]*models.DeliveryJob, error)
}

// SubmissionsAPIHandler accepts public form submissions and hands them to
// the delivery engine.
type SubmissionsAPIHandler struct {
	formsService services.FormsService
	dispatcher   SubmissionDispatcher
}

func NewSubmissionsAPIHandler(
	formsService services.FormsService,
	dispatcher SubmissionDispatcher,
) *SubmissionsAPIHandler {
	return &SubmissionsAPIHandler{
		formsService: formsService,
		dispatcher:   dispatcher,
	}
}

var errFormNotFound = fmt.Errorf("form not found")

// SubmitForm looks the form up by its public submit hash and dispatches the
// submission. Returns the enqueued jobs, which may be empty when nothing is
// configured to receive the submission.
func (h *SubmissionsAPIHandler) SubmitForm(
	ctx context.Context,
	submitHash string,
	fields map[string]any,
) ([]*models.DeliveryJob, error) {
	maybeForm, err := h.formsService.GetFormBySubmitHash(ctx, submitHash)
	if err != nil {
		log.Printf("❌ Failed to look up form by submit hash: %v", err)
		return nil, err
	}
	form, ok := maybeForm.Get()
	if !ok || !form.Active {
		return nil, errFormNotFound
	}

	jobs, err := h.dispatcher.DispatchSubmission(ctx, form, fields)
	if err != nil {
		log.Printf("❌ Failed to dispatch submission for form %s: %v", form.ID, err)
		return nil, err
	}

	return jobs, nil
}
