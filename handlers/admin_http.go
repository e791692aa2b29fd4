package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"formrelay/appctx"
	"formrelay/core"
	"formrelay/middleware"
	"formrelay/models"
	"formrelay/services"
)

type AdminHTTPHandler struct {
	handler *AdminAPIHandler
}

func NewAdminHTTPHandler(handler *AdminAPIHandler) *AdminHTTPHandler {
	return &AdminHTTPHandler{
		handler: handler,
	}
}

type CreateFormRequest struct {
	Name               string `json:"name"`
	Slug               string `json:"slug"`
	UseOrgIntegrations bool   `json:"use_org_integrations"`
}

type CreateIntegrationRequest struct {
	Scope  string                   `json:"scope"`
	FormID *string                  `json:"form_id,omitempty"`
	Type   string                   `json:"type"`
	Name   string                   `json:"name"`
	Config models.IntegrationConfig `json:"config"`
	Active bool                     `json:"active"`
}

type UpdateIntegrationRequest struct {
	Name   string                   `json:"name"`
	Config models.IntegrationConfig `json:"config"`
	Active bool                     `json:"active"`
}

type CreateOrganizationResponse struct {
	Organization *models.Organization `json:"organization"`
	SecretKey    string               `json:"secret_key"`
}

func (h *AdminHTTPHandler) HandleCreateOrganization(w http.ResponseWriter, r *http.Request) {
	log.Printf("➕ Create organization request received from %s", r.RemoteAddr)

	organization, err := h.handler.CreateOrganization(r.Context())
	if err != nil {
		http.Error(w, "failed to create organization", http.StatusInternalServerError)
		return
	}

	// The secret key is returned exactly once, at creation time
	response := CreateOrganizationResponse{
		Organization: organization,
		SecretKey:    *organization.SecretKey,
	}
	writeJSONResponse(w, http.StatusCreated, response)
}

func (h *AdminHTTPHandler) HandleGetOrganization(w http.ResponseWriter, r *http.Request) {
	org, ok := appctx.GetOrganization(r.Context())
	if !ok {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}

	writeJSONResponse(w, http.StatusOK, org)
}

func (h *AdminHTTPHandler) HandleCreateForm(w http.ResponseWriter, r *http.Request) {
	log.Printf("➕ Create form request received from %s", r.RemoteAddr)

	org, ok := appctx.GetOrganization(r.Context())
	if !ok {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}

	var req CreateFormRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("❌ Failed to parse request body: %v", err)
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Name == "" || req.Slug == "" {
		http.Error(w, "name and slug are required", http.StatusBadRequest)
		return
	}

	form, err := h.handler.CreateForm(r.Context(), org, req.Name, req.Slug, req.UseOrgIntegrations)
	if err != nil {
		http.Error(w, "failed to create form", http.StatusInternalServerError)
		return
	}

	writeJSONResponse(w, http.StatusCreated, form)
}

func (h *AdminHTTPHandler) HandleListForms(w http.ResponseWriter, r *http.Request) {
	org, ok := appctx.GetOrganization(r.Context())
	if !ok {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}

	forms, err := h.handler.ListForms(r.Context(), org)
	if err != nil {
		http.Error(w, "failed to list forms", http.StatusInternalServerError)
		return
	}

	writeJSONResponse(w, http.StatusOK, forms)
}

func (h *AdminHTTPHandler) HandleDeleteForm(w http.ResponseWriter, r *http.Request) {
	log.Printf("🗑️ Delete form request received from %s", r.RemoteAddr)

	org, ok := appctx.GetOrganization(r.Context())
	if !ok {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}

	vars := mux.Vars(r)
	formID, ok := vars["id"]
	if !ok || !core.IsValidULID(formID) {
		http.Error(w, "form ID must be a valid ULID", http.StatusBadRequest)
		return
	}

	if err := h.handler.DeleteForm(r.Context(), org, formID); err != nil {
		if core.IsNotFoundError(err) {
			http.Error(w, "form not found", http.StatusNotFound)
		} else {
			http.Error(w, "failed to delete form", http.StatusInternalServerError)
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHTTPHandler) HandleCreateIntegration(w http.ResponseWriter, r *http.Request) {
	log.Printf("➕ Create integration request received from %s", r.RemoteAddr)

	org, ok := appctx.GetOrganization(r.Context())
	if !ok {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}

	var req CreateIntegrationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("❌ Failed to parse request body: %v", err)
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	scope := models.IntegrationScope(req.Scope)
	if !scope.IsValid() {
		http.Error(w, "scope must be 'organization' or 'form'", http.StatusBadRequest)
		return
	}

	integration, err := h.handler.CreateIntegration(r.Context(), org, services.CreateIntegrationParams{
		Scope:  scope,
		FormID: req.FormID,
		Type:   models.IntegrationType(req.Type),
		Name:   req.Name,
		Config: req.Config,
		Active: req.Active,
	})
	if err != nil {
		if core.IsInvalidError(err) {
			http.Error(w, err.Error(), http.StatusBadRequest)
		} else {
			http.Error(w, "failed to create integration", http.StatusInternalServerError)
		}
		return
	}

	writeJSONResponse(w, http.StatusCreated, integration)
}

func (h *AdminHTTPHandler) HandleUpdateIntegration(w http.ResponseWriter, r *http.Request) {
	log.Printf("📋 Update integration request received from %s", r.RemoteAddr)

	org, ok := appctx.GetOrganization(r.Context())
	if !ok {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}

	vars := mux.Vars(r)
	integrationID, ok := vars["id"]
	if !ok || !core.IsValidULID(integrationID) {
		http.Error(w, "integration ID must be a valid ULID", http.StatusBadRequest)
		return
	}

	var req UpdateIntegrationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("❌ Failed to parse request body: %v", err)
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	integration, err := h.handler.UpdateIntegration(r.Context(), org, integrationID, services.UpdateIntegrationParams{
		Name:   req.Name,
		Config: req.Config,
		Active: req.Active,
	})
	if err != nil {
		if core.IsNotFoundError(err) {
			http.Error(w, "integration not found", http.StatusNotFound)
		} else if core.IsInvalidError(err) {
			http.Error(w, err.Error(), http.StatusBadRequest)
		} else {
			http.Error(w, "failed to update integration", http.StatusInternalServerError)
		}
		return
	}

	writeJSONResponse(w, http.StatusOK, integration)
}

func (h *AdminHTTPHandler) HandleGetIntegration(w http.ResponseWriter, r *http.Request) {
	org, ok := appctx.GetOrganization(r.Context())
	if !ok {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}

	vars := mux.Vars(r)
	integrationID, ok := vars["id"]
	if !ok || !core.IsValidULID(integrationID) {
		http.Error(w, "integration ID must be a valid ULID", http.StatusBadRequest)
		return
	}

	maybeIntegration, err := h.handler.GetIntegration(r.Context(), org, integrationID)
	if err != nil {
		http.Error(w, "failed to get integration", http.StatusInternalServerError)
		return
	}
	integration, found := maybeIntegration.Get()
	if !found {
		http.Error(w, "integration not found", http.StatusNotFound)
		return
	}

	writeJSONResponse(w, http.StatusOK, integration)
}

func (h *AdminHTTPHandler) HandleListIntegrations(w http.ResponseWriter, r *http.Request) {
	org, ok := appctx.GetOrganization(r.Context())
	if !ok {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}

	integrations, err := h.handler.ListOrganizationIntegrations(r.Context(), org)
	if err != nil {
		http.Error(w, "failed to list integrations", http.StatusInternalServerError)
		return
	}

	writeJSONResponse(w, http.StatusOK, integrations)
}

func (h *AdminHTTPHandler) HandleDeleteIntegration(w http.ResponseWriter, r *http.Request) {
	log.Printf("🗑️ Delete integration request received from %s", r.RemoteAddr)

	org, ok := appctx.GetOrganization(r.Context())
	if !ok {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}

	vars := mux.Vars(r)
	integrationID, ok := vars["id"]
	if !ok || !core.IsValidULID(integrationID) {
		http.Error(w, "integration ID must be a valid ULID", http.StatusBadRequest)
		return
	}

	if err := h.handler.DeleteIntegration(r.Context(), org, integrationID); err != nil {
		if core.IsNotFoundError(err) {
			http.Error(w, "integration not found", http.StatusNotFound)
		} else {
			http.Error(w, "failed to delete integration", http.StatusInternalServerError)
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHTTPHandler) HandleListFormIntegrations(w http.ResponseWriter, r *http.Request) {
	org, ok := appctx.GetOrganization(r.Context())
	if !ok {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}

	vars := mux.Vars(r)
	formID, ok := vars["id"]
	if !ok || !core.IsValidULID(formID) {
		http.Error(w, "form ID must be a valid ULID", http.StatusBadRequest)
		return
	}

	integrations, err := h.handler.ListFormIntegrations(r.Context(), org, formID)
	if err != nil {
		if core.IsNotFoundError(err) {
			http.Error(w, "form not found", http.StatusNotFound)
		} else {
			http.Error(w, "failed to list form integrations", http.StatusInternalServerError)
		}
		return
	}

	writeJSONResponse(w, http.StatusOK, integrations)
}

func (h *AdminHTTPHandler) HandleGetIntegrationsHierarchy(w http.ResponseWriter, r *http.Request) {
	org, ok := appctx.GetOrganization(r.Context())
	if !ok {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}

	hierarchy, err := h.handler.GetIntegrationsHierarchy(r.Context(), org)
	if err != nil {
		http.Error(w, "failed to resolve integrations hierarchy", http.StatusInternalServerError)
		return
	}

	writeJSONResponse(w, http.StatusOK, hierarchy)
}

func (h *AdminHTTPHandler) HandleGetFormHierarchy(w http.ResponseWriter, r *http.Request) {
	org, ok := appctx.GetOrganization(r.Context())
	if !ok {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}

	vars := mux.Vars(r)
	formID, ok := vars["id"]
	if !ok || !core.IsValidULID(formID) {
		http.Error(w, "form ID must be a valid ULID", http.StatusBadRequest)
		return
	}

	hierarchy, err := h.handler.GetFormHierarchy(r.Context(), org, formID)
	if err != nil {
		if core.IsNotFoundError(err) {
			http.Error(w, "form not found", http.StatusNotFound)
		} else {
			http.Error(w, "failed to resolve form hierarchy", http.StatusInternalServerError)
		}
		return
	}

	writeJSONResponse(w, http.StatusOK, hierarchy)
}

func (h *AdminHTTPHandler) SetupEndpoints(router *mux.Router, authMiddleware *middleware.SecretKeyAuthMiddleware) {
	log.Printf("🚀 Registering admin API endpoints")

	// Organization endpoints
	router.HandleFunc("/organizations", h.HandleCreateOrganization).Methods("POST")
	log.Printf("✅ POST /organizations endpoint registered")

	router.HandleFunc("/organizations", authMiddleware.WithAuth(h.HandleGetOrganization)).Methods("GET")
	log.Printf("✅ GET /organizations endpoint registered")

	// Form endpoints
	router.HandleFunc("/forms", authMiddleware.WithAuth(h.HandleCreateForm)).Methods("POST")
	log.Printf("✅ POST /forms endpoint registered")

	router.HandleFunc("/forms", authMiddleware.WithAuth(h.HandleListForms)).Methods("GET")
	log.Printf("✅ GET /forms endpoint registered")

	router.HandleFunc("/forms/{id}", authMiddleware.WithAuth(h.HandleDeleteForm)).Methods("DELETE")
	log.Printf("✅ DELETE /forms/{id} endpoint registered")

	router.HandleFunc("/forms/{id}/integrations", authMiddleware.WithAuth(h.HandleListFormIntegrations)).
		Methods("GET")
	log.Printf("✅ GET /forms/{id}/integrations endpoint registered")

	router.HandleFunc("/forms/{id}/integrations/hierarchy", authMiddleware.WithAuth(h.HandleGetFormHierarchy)).
		Methods("GET")
	log.Printf("✅ GET /forms/{id}/integrations/hierarchy endpoint registered")

	// Integration endpoints
	router.HandleFunc("/integrations/hierarchy", authMiddleware.WithAuth(h.HandleGetIntegrationsHierarchy)).
		Methods("GET")
	log.Printf("✅ GET /integrations/hierarchy endpoint registered")

	router.HandleFunc("/integrations", authMiddleware.WithAuth(h.HandleCreateIntegration)).Methods("POST")
	log.Printf("✅ POST /integrations endpoint registered")

	router.HandleFunc("/integrations", authMiddleware.WithAuth(h.HandleListIntegrations)).Methods("GET")
	log.Printf("✅ GET /integrations endpoint registered")

	router.HandleFunc("/integrations/{id}", authMiddleware.WithAuth(h.HandleGetIntegration)).Methods("GET")
	log.Printf("✅ GET /integrations/{id} endpoint registered")

	router.HandleFunc("/integrations/{id}", authMiddleware.WithAuth(h.HandleUpdateIntegration)).Methods("PUT")
	log.Printf("✅ PUT /integrations/{id} endpoint registered")

	router.HandleFunc("/integrations/{id}", authMiddleware.WithAuth(h.HandleDeleteIntegration)).Methods("DELETE")
	log.Printf("✅ DELETE /integrations/{id} endpoint registered")

	log.Printf("✅ All admin API endpoints registered successfully")
}
