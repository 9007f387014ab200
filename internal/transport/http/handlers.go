// Copyright 2026 The Shelfgate Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/shelfgate/shelfgate/internal/admin"
	"github.com/shelfgate/shelfgate/internal/audit"
	"github.com/shelfgate/shelfgate/internal/filemeta"
	"github.com/shelfgate/shelfgate/internal/storage"
	"github.com/shelfgate/shelfgate/internal/tenant"
	"github.com/shelfgate/shelfgate/internal/token"
)

// Handler holds HTTP handlers and dependencies
type Handler struct {
	tenants       *tenant.Directory
	quota         *tenant.Ledger
	regTokens     *tenant.TokenManager
	adminService  *admin.Service
	serviceTokens *token.ServiceTokenService
	userTokens    *token.UserTokenService
	broker        *storage.Broker
	fileMeta      *filemeta.Service
	auditLogger   audit.Logger
	baseURL       string
	keyPrefix     string
}

// NewHandler creates a new HTTP handler
func NewHandler(
	tenants *tenant.Directory,
	quota *tenant.Ledger,
	regTokens *tenant.TokenManager,
	adminService *admin.Service,
	serviceTokens *token.ServiceTokenService,
	userTokens *token.UserTokenService,
	broker *storage.Broker,
	fileMeta *filemeta.Service,
	auditLogger audit.Logger,
	baseURL string,
	keyPrefix string,
) *Handler {
	return &Handler{
		tenants:       tenants,
		quota:         quota,
		regTokens:     regTokens,
		adminService:  adminService,
		serviceTokens: serviceTokens,
		userTokens:    userTokens,
		broker:        broker,
		fileMeta:      fileMeta,
		auditLogger:   auditLogger,
		baseURL:       baseURL,
		keyPrefix:     keyPrefix,
	}
}

// NewRouter creates a new HTTP router
func NewRouter(h *Handler, rateLimiter *RateLimiter) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(RateLimitMiddleware(rateLimiter))
	r.Use(func(handler http.Handler) http.Handler {
		return otelhttp.NewHandler(handler, "http_request",
			otelhttp.WithSpanNameFormatter(func(operation string, r *http.Request) string {
				return r.Method + " " + r.URL.Path
			}),
		)
	})
	r.Use(LoggingMiddleware())
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// Health check
	r.Get("/health", h.HealthCheck)

	// Admin client management and service tokens
	r.Route("/api/admin", func(r chi.Router) {
		r.Post("/auth/client/new", h.RegisterAdminClient)
		r.Post("/auth/client/validate", h.ValidateAdminClient)
		r.Post("/auth/token", h.ServiceToken)
		r.Get("/auth/token/validate", h.ValidateServiceToken)

		r.With(h.ServiceAuthMiddleware).Post("/registration-tokens", h.IssueRegistrationToken)
	})

	// Tenant registration and tenant-scoped operations
	r.Route("/api/companies", func(r chi.Router) {
		// Registration is gated by a service bearer token plus a
		// single-use registration token.
		r.With(h.ServiceAuthMiddleware).Post("/register", h.RegisterTenant)

		// Everything else resolves the tenant from X-Company-Api-Key.
		r.Group(func(r chi.Router) {
			r.Use(h.APIKeyMiddleware)
			r.Get("/by-api-key", h.GetCompany)
			r.Get("/apikey.lic", h.APIKeyLicense)
			r.Get("/quota/is-available", h.QuotaAvailable)
			r.Patch("/quota", h.UpdateQuota)
			r.Post("/presign/upload", h.PresignUpload)
			r.Get("/presign/download", h.PresignDownload)
			r.Post("/delete/files", h.DeleteFiles)
		})
	})

	// File transaction ledger
	r.Route("/api/filemeta", func(r chi.Router) {
		r.Use(h.APIKeyMiddleware)
		r.Post("/", h.InsertFileMeta)
		r.Get("/folder/size", h.FolderSize)
	})

	// User tokens
	r.Route("/api/users", func(r chi.Router) {
		r.With(h.ServiceAuthMiddleware).Post("/token", h.UserToken)
		r.Get("/token/validate", h.ValidateUserToken)
	})

	return r
}

// HealthCheck returns the health status
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "shelfgate",
	})
}

// Helper functions
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"detail": message,
	})
}
