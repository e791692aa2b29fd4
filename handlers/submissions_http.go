package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/gorilla/mux"
)

type SubmissionsHTTPHandler struct {
	handler *SubmissionsAPIHandler
}

func NewSubmissionsHTTPHandler(handler *SubmissionsAPIHandler) *SubmissionsHTTPHandler {
	return &SubmissionsHTTPHandler{
		handler: handler,
	}
}

type SubmissionAcceptedResponse struct {
	Accepted bool     `json:"accepted"`
	JobIDs   []string `json:"job_ids"`
}

func (h *SubmissionsHTTPHandler) HandleSubmitForm(w http.ResponseWriter, r *http.Request) {
	log.Printf("📨 Form submission received from %s", r.RemoteAddr)

	vars := mux.Vars(r)
	submitHash, ok := vars["submitHash"]
	if !ok || submitHash == "" {
		http.Error(w, "submit hash is required", http.StatusBadRequest)
		return
	}

	var fields map[string]any
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		log.Printf("❌ Failed to parse submission body: %v", err)
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	jobs, err := h.handler.SubmitForm(r.Context(), submitHash, fields)
	if err != nil {
		if errors.Is(err, errFormNotFound) {
			http.Error(w, "form not found", http.StatusNotFound)
		} else {
			http.Error(w, "failed to accept submission", http.StatusInternalServerError)
		}
		return
	}

	jobIDs := make([]string, 0, len(jobs))
	for _, job := range jobs {
		jobIDs = append(jobIDs, job.ID)
	}

	// 202: the submission is durably queued, delivery happens asynchronously
	writeJSONResponse(w, http.StatusAccepted, SubmissionAcceptedResponse{
		Accepted: true,
		JobIDs:   jobIDs,
	})
}

func (h *SubmissionsHTTPHandler) SetupEndpoints(router *mux.Router) {
	log.Printf("🚀 Registering submission endpoints")

	router.HandleFunc("/forms/{submitHash}/submissions", h.HandleSubmitForm).Methods("POST")
	log.Printf("✅ POST /forms/{submitHash}/submissions endpoint registered")
}
