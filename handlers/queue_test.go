package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"formrelay/appctx"
	"formrelay/core"
	"formrelay/models"
	"formrelay/services"
	jobs "formrelay/services/jobs"
)

var (
	testOrg = &models.Organization{
		ID:     "org_01234567890123456789012345",
		Active: true,
	}

	testJobID = "job_01234567890123456789012345"
)

func contextWithOrg() context.Context {
	return appctx.SetOrganization(context.Background(), testOrg)
}

func terminalJob(state models.JobState) *models.DeliveryJob {
	return &models.DeliveryJob{
		ID:              testJobID,
		Queue:           "integration-webhook",
		OrgID:           testOrg.ID,
		FormID:          "form_01234567890123456789012345",
		IntegrationID:   "intg_01234567890123456789012345",
		IntegrationType: models.IntegrationTypeWebhook,
		State:           state,
		RetryCount:      3,
	}
}

func TestQueueHTTPHandler_HandleRetryJob(t *testing.T) {
	tests := []struct {
		name           string
		mockSetup      func(*jobs.MockJobsService)
		expectedStatus int
	}{
		{
			name: "success - terminal job is requeued",
			mockSetup: func(m *jobs.MockJobsService) {
				requeued := terminalJob(models.JobStateCreated)
				m.On("RetryJob", mock.Anything, testOrg.ID, testJobID).Return(requeued, nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "conflict - job still in flight",
			mockSetup: func(m *jobs.MockJobsService) {
				m.On("RetryJob", mock.Anything, testOrg.ID, testJobID).Return(nil, core.ErrConflict)
			},
			expectedStatus: http.StatusConflict,
		},
		{
			name: "not found - unknown job",
			mockSetup: func(m *jobs.MockJobsService) {
				m.On("RetryJob", mock.Anything, testOrg.ID, testJobID).Return(nil, core.ErrNotFound)
			},
			expectedStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockJobsService := &jobs.MockJobsService{}
			tt.mockSetup(mockJobsService)

			var wokenQueue string
			apiHandler := NewQueueAPIHandler(mockJobsService, func(queue string) { wokenQueue = queue })
			httpHandler := NewQueueHTTPHandler(apiHandler)

			req := httptest.NewRequest("POST", "/queue/jobs/"+testJobID+"/retry", nil)
			req = req.WithContext(contextWithOrg())
			req = mux.SetURLVars(req, map[string]string{"id": testJobID})
			rr := httptest.NewRecorder()

			httpHandler.HandleRetryJob(rr, req)

			assert.Equal(t, tt.expectedStatus, rr.Code)
			if tt.expectedStatus == http.StatusOK {
				var job models.DeliveryJob
				require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &job))
				assert.Equal(t, testJobID, job.ID)
				assert.Equal(t, "integration-webhook", wokenQueue)
			}
			mockJobsService.AssertExpectations(t)
		})
	}

	t.Run("rejects invalid job ID", func(t *testing.T) {
		httpHandler := NewQueueHTTPHandler(NewQueueAPIHandler(&jobs.MockJobsService{}, nil))

		req := httptest.NewRequest("POST", "/queue/jobs/not-an-id/retry", nil)
		req = req.WithContext(contextWithOrg())
		req = mux.SetURLVars(req, map[string]string{"id": "not-an-id"})
		rr := httptest.NewRecorder()

		httpHandler.HandleRetryJob(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("requires authentication context", func(t *testing.T) {
		httpHandler := NewQueueHTTPHandler(NewQueueAPIHandler(&jobs.MockJobsService{}, nil))

		req := httptest.NewRequest("POST", "/queue/jobs/"+testJobID+"/retry", nil)
		req = mux.SetURLVars(req, map[string]string{"id": testJobID})
		rr := httptest.NewRecorder()

		httpHandler.HandleRetryJob(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}

func TestQueueHTTPHandler_HandleGetQueueStats(t *testing.T) {
	mockJobsService := &jobs.MockJobsService{}
	stats := map[string]*models.QueueStats{
		"integration-webhook": {Created: 2, Completed: 5, Failed: 1},
		"integration-slack":   {},
	}
	mockJobsService.On("GetQueueStats", mock.Anything, testOrg.ID).Return(stats, nil)

	httpHandler := NewQueueHTTPHandler(NewQueueAPIHandler(mockJobsService, nil))

	req := httptest.NewRequest("GET", "/queue/stats", nil)
	req = req.WithContext(contextWithOrg())
	rr := httptest.NewRecorder()

	httpHandler.HandleGetQueueStats(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var decoded map[string]*models.QueueStats
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &decoded))
	assert.Equal(t, 2, decoded["integration-webhook"].Created)
	assert.Equal(t, 1, decoded["integration-webhook"].Failed)
	mockJobsService.AssertExpectations(t)
}

func TestQueueHTTPHandler_HandleListJobs(t *testing.T) {
	t.Run("passes filters through", func(t *testing.T) {
		mockJobsService := &jobs.MockJobsService{}
		mockJobsService.On("ListJobs", mock.Anything, testOrg.ID,
			mock.MatchedBy(func(params services.ListJobsParams) bool {
				return params.Queue != nil && *params.Queue == "integration-slack" &&
					params.State != nil && *params.State == models.JobStateFailed &&
					params.Limit == 10 && params.Offset == 20
			})).Return([]*models.DeliveryJob{}, nil)

		httpHandler := NewQueueHTTPHandler(NewQueueAPIHandler(mockJobsService, nil))

		req := httptest.NewRequest("GET", "/queue/jobs?queue=integration-slack&state=FAILED&limit=10&offset=20", nil)
		req = req.WithContext(contextWithOrg())
		rr := httptest.NewRecorder()

		httpHandler.HandleListJobs(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		mockJobsService.AssertExpectations(t)
	})

	t.Run("rejects unknown state", func(t *testing.T) {
		httpHandler := NewQueueHTTPHandler(NewQueueAPIHandler(&jobs.MockJobsService{}, nil))

		req := httptest.NewRequest("GET", "/queue/jobs?state=BOGUS", nil)
		req = req.WithContext(contextWithOrg())
		rr := httptest.NewRecorder()

		httpHandler.HandleListJobs(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestQueueHTTPHandler_HandleGetJob(t *testing.T) {
	t.Run("returns the job", func(t *testing.T) {
		mockJobsService := &jobs.MockJobsService{}
		mockJobsService.On("GetJobByID", mock.Anything, testOrg.ID, testJobID).
			Return(mo.Some(terminalJob(models.JobStateFailed)), nil)

		httpHandler := NewQueueHTTPHandler(NewQueueAPIHandler(mockJobsService, nil))

		req := httptest.NewRequest("GET", "/queue/jobs/"+testJobID, nil)
		req = req.WithContext(contextWithOrg())
		req = mux.SetURLVars(req, map[string]string{"id": testJobID})
		rr := httptest.NewRecorder()

		httpHandler.HandleGetJob(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)
		var job models.DeliveryJob
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &job))
		assert.Equal(t, models.JobStateFailed, job.State)
	})

	t.Run("404 for unknown job", func(t *testing.T) {
		mockJobsService := &jobs.MockJobsService{}
		mockJobsService.On("GetJobByID", mock.Anything, testOrg.ID, testJobID).
			Return(mo.None[*models.DeliveryJob](), nil)

		httpHandler := NewQueueHTTPHandler(NewQueueAPIHandler(mockJobsService, nil))

		req := httptest.NewRequest("GET", "/queue/jobs/"+testJobID, nil)
		req = req.WithContext(contextWithOrg())
		req = mux.SetURLVars(req, map[string]string{"id": testJobID})
		rr := httptest.NewRecorder()

		httpHandler.HandleGetJob(rr, req)

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}
