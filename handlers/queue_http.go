package handlers

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"formrelay/appctx"
	"formrelay/core"
	"formrelay/middleware"
	"formrelay/models"
	"formrelay/services"
)

type QueueHTTPHandler struct {
	handler *QueueAPIHandler
}

func NewQueueHTTPHandler(handler *QueueAPIHandler) *QueueHTTPHandler {
	return &QueueHTTPHandler{
		handler: handler,
	}
}

func (h *QueueHTTPHandler) HandleGetQueueStats(w http.ResponseWriter, r *http.Request) {
	org, ok := appctx.GetOrganization(r.Context())
	if !ok {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}

	stats, err := h.handler.GetQueueStats(r.Context(), org)
	if err != nil {
		http.Error(w, "failed to get queue stats", http.StatusInternalServerError)
		return
	}

	writeJSONResponse(w, http.StatusOK, stats)
}

func (h *QueueHTTPHandler) HandleListJobs(w http.ResponseWriter, r *http.Request) {
	org, ok := appctx.GetOrganization(r.Context())
	if !ok {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}

	params := services.ListJobsParams{}
	query := r.URL.Query()

	if queue := query.Get("queue"); queue != "" {
		params.Queue = &queue
	}
	if stateStr := query.Get("state"); stateStr != "" {
		state := models.JobState(stateStr)
		if !state.IsValid() {
			http.Error(w, "unknown job state: "+stateStr, http.StatusBadRequest)
			return
		}
		params.State = &state
	}
	if limitStr := query.Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil {
			http.Error(w, "limit must be an integer", http.StatusBadRequest)
			return
		}
		params.Limit = limit
	}
	if offsetStr := query.Get("offset"); offsetStr != "" {
		offset, err := strconv.Atoi(offsetStr)
		if err != nil {
			http.Error(w, "offset must be an integer", http.StatusBadRequest)
			return
		}
		params.Offset = offset
	}

	jobs, err := h.handler.ListJobs(r.Context(), org, params)
	if err != nil {
		http.Error(w, "failed to list jobs", http.StatusInternalServerError)
		return
	}

	writeJSONResponse(w, http.StatusOK, jobs)
}

func (h *QueueHTTPHandler) HandleGetJob(w http.ResponseWriter, r *http.Request) {
	org, ok := appctx.GetOrganization(r.Context())
	if !ok {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}

	vars := mux.Vars(r)
	jobID, ok := vars["id"]
	if !ok || !core.IsValidULID(jobID) {
		http.Error(w, "job ID must be a valid ULID", http.StatusBadRequest)
		return
	}

	maybeJob, err := h.handler.GetJob(r.Context(), org, jobID)
	if err != nil {
		http.Error(w, "failed to get job", http.StatusInternalServerError)
		return
	}
	job, found := maybeJob.Get()
	if !found {
		http.Error(w, "job not found", http.StatusNotFound)
		return
	}

	writeJSONResponse(w, http.StatusOK, job)
}

func (h *QueueHTTPHandler) HandleRetryJob(w http.ResponseWriter, r *http.Request) {
	log.Printf("📋 Retry job request received from %s", r.RemoteAddr)

	org, ok := appctx.GetOrganization(r.Context())
	if !ok {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}

	vars := mux.Vars(r)
	jobID, ok := vars["id"]
	if !ok || !core.IsValidULID(jobID) {
		http.Error(w, "job ID must be a valid ULID", http.StatusBadRequest)
		return
	}

	job, err := h.handler.RetryJob(r.Context(), org, jobID)
	if err != nil {
		switch {
		case core.IsNotFoundError(err):
			http.Error(w, "job not found", http.StatusNotFound)
		case core.IsConflictError(err):
			http.Error(w, "job is not in a terminal state", http.StatusConflict)
		default:
			http.Error(w, "failed to retry job", http.StatusInternalServerError)
		}
		return
	}

	writeJSONResponse(w, http.StatusOK, job)
}

func (h *QueueHTTPHandler) SetupEndpoints(router *mux.Router, authMiddleware *middleware.SecretKeyAuthMiddleware) {
	log.Printf("🚀 Registering queue admin API endpoints")

	router.HandleFunc("/queue/stats", authMiddleware.WithAuth(h.HandleGetQueueStats)).Methods("GET")
	log.Printf("✅ GET /queue/stats endpoint registered")

	router.HandleFunc("/queue/jobs", authMiddleware.WithAuth(h.HandleListJobs)).Methods("GET")
	log.Printf("✅ GET /queue/jobs endpoint registered")

	router.HandleFunc("/queue/jobs/{id}", authMiddleware.WithAuth(h.HandleGetJob)).Methods("GET")
	log.Printf("✅ GET /queue/jobs/{id} endpoint registered")

	router.HandleFunc("/queue/jobs/{id}/retry", authMiddleware.WithAuth(h.HandleRetryJob)).Methods("POST")
	log.Printf("✅ POST /queue/jobs/{id}/retry endpoint registered")

	log.Printf("✅ All queue admin API endpoints registered successfully")
}
