package middleware

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"formrelay/appctx"
	"formrelay/services"
)

// SecretKeyAuthMiddleware authenticates admin API requests with an
// organization secret key passed as a bearer token.
type SecretKeyAuthMiddleware struct {
	organizationsService services.OrganizationsService
}

// NewSecretKeyAuthMiddleware creates a new authentication middleware instance
func NewSecretKeyAuthMiddleware(organizationsService services.OrganizationsService) *SecretKeyAuthMiddleware {
	return &SecretKeyAuthMiddleware{
		organizationsService: organizationsService,
	}
}

// WithAuth wraps an HTTP handler with secret key authentication
func (m *SecretKeyAuthMiddleware) WithAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			log.Printf("❌ Missing Authorization header")
			m.writeErrorResponse(w, "missing authorization header", http.StatusUnauthorized)
			return
		}
		if !strings.HasPrefix(authHeader, "Bearer ") {
			log.Printf("❌ Invalid Authorization header format")
			m.writeErrorResponse(w, "invalid authorization header format", http.StatusUnauthorized)
			return
		}
		secretKey := strings.TrimPrefix(authHeader, "Bearer ")
		if secretKey == "" {
			log.Printf("❌ Empty bearer token")
			m.writeErrorResponse(w, "empty bearer token", http.StatusUnauthorized)
			return
		}

		maybeOrg, err := m.organizationsService.GetOrganizationBySecretKey(r.Context(), secretKey)
		if err != nil {
			log.Printf("❌ Failed to look up organization by secret key: %v", err)
			m.writeErrorResponse(w, "internal server error", http.StatusInternalServerError)
			return
		}
		org, ok := maybeOrg.Get()
		if !ok {
			log.Printf("❌ Unknown secret key")
			m.writeErrorResponse(w, "invalid secret key", http.StatusUnauthorized)
			return
		}
		if !org.Active {
			log.Printf("❌ Organization %s is deactivated", org.ID)
			m.writeErrorResponse(w, "organization is deactivated", http.StatusUnauthorized)
			return
		}

		ctx := appctx.SetOrganization(r.Context(), org)
		r = r.WithContext(ctx)

		next(w, r)
	}
}

// writeErrorResponse writes a standardized error response
func (m *SecretKeyAuthMiddleware) writeErrorResponse(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	errorResponse := map[string]string{"error": message}
	if err := json.NewEncoder(w).Encode(errorResponse); err != nil {
		log.Printf("❌ Failed to encode error response: %v", err)
	}
}
