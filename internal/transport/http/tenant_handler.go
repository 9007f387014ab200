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
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/shelfgate/shelfgate/internal/filemeta"
	"github.com/shelfgate/shelfgate/internal/observability/logger"
	"github.com/shelfgate/shelfgate/internal/tenant"
)

// RegisterTenantRequest carries a tenant registration body. The registration
// token itself travels in the ?token= query parameter of the one-time URL.
type RegisterTenantRequest struct {
	CompanyName      string `json:"company_name"`
	CompanyKeyPrefix string `json:"company_key_prefix"`
}

// RegisterTenant creates a new tenant. The caller holds a service bearer
// token and a single-use registration token; both gates must pass.
func (h *Handler) RegisterTenant(w http.ResponseWriter, r *http.Request) {
	regToken := r.URL.Query().Get("token")
	if regToken == "" {
		respondError(w, http.StatusUnauthorized, "invalid registration token")
		return
	}

	var req RegisterTenantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.CompanyName == "" {
		respondError(w, http.StatusBadRequest, "company_name is required")
		return
	}
	if req.CompanyKeyPrefix == "" {
		req.CompanyKeyPrefix = h.keyPrefix
	}

	t, err := h.tenants.Register(r.Context(), tenant.RegisterRequest{
		Name:              req.CompanyName,
		KeyPrefix:         req.CompanyKeyPrefix,
		BaseURL:           h.baseURL,
		RegistrationToken: regToken,
	})
	if err != nil {
		switch {
		case errors.Is(err, tenant.ErrRegTokenNotFound),
			errors.Is(err, tenant.ErrRegTokenExpired),
			errors.Is(err, tenant.ErrRegTokenConsumed):
			// One message for every dead-token case; callers learn nothing
			// about which tokens exist or when they expired.
			respondError(w, http.StatusUnauthorized, "invalid registration token")
		case errors.Is(err, tenant.ErrTenantExists):
			respondError(w, http.StatusConflict, "Company already exists")
		case errors.Is(err, tenant.ErrNoActiveProvisioning):
			respondError(w, http.StatusInternalServerError, "no active storage configuration")
		default:
			slog.ErrorContext(r.Context(), "failed to register tenant", logger.Error(err))
			respondError(w, http.StatusInternalServerError, "failed to register company")
		}
		return
	}

	respondJSON(w, http.StatusCreated, map[string]string{
		"company_api_key": t.APIKey,
		"base_url":        t.BaseURL,
	})
}

// GetCompany returns the resolved tenant. Storage secrets and the API key
// are excluded by the model's JSON tags.
func (h *Handler) GetCompany(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, GetTenant(r.Context()))
}

// APIKeyLicense serves the tenant's credential as a downloadable license
// file for the uploader agent.
func (h *Handler) APIKeyLicense(w http.ResponseWriter, r *http.Request) {
	t := GetTenant(r.Context())

	content := fmt.Sprintf("API_KEY=%s\nAPI_BASE_URL=%s\n", t.APIKey, t.BaseURL)

	w.Header().Set("Content-Type", "text/plain")
	w.Header().Set("Content-Disposition", `attachment; filename="apikey.lic"`)
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(content))
}

// QuotaAvailable reports whether the tenant still has quota headroom.
func (h *Handler) QuotaAvailable(w http.ResponseWriter, r *http.Request) {
	t := GetTenant(r.Context())

	available, err := h.quota.Available(t)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Company quota is invalid")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"is_available": available,
		"usage_quota":  *t.UsedQuota,
	})
}

// QuotaUpdateRequest carries a used-quota delta. The transaction type selects
// the direction: 1 adds bytes, 2 releases them.
type QuotaUpdateRequest struct {
	UsedQuota   *int64 `json:"used_quota"`
	FileTxnType int16  `json:"file_txn_type"`
}

// UpdateQuota applies a quota delta for the tenant.
func (h *Handler) UpdateQuota(w http.ResponseWriter, r *http.Request) {
	t := GetTenant(r.Context())

	var req QuotaUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UsedQuota == nil {
		respondError(w, http.StatusBadRequest, "used_quota is required")
		return
	}
	if req.FileTxnType == 0 {
		req.FileTxnType = filemeta.TxnUpload
	}

	direction := tenant.Direction(req.FileTxnType)
	used, err := h.quota.Adjust(r.Context(), t, *req.UsedQuota, direction)
	if err != nil {
		switch {
		case errors.Is(err, tenant.ErrNegativeDelta):
			respondError(w, http.StatusBadRequest, "used_quota must not be negative")
		case errors.Is(err, tenant.ErrQuotaInvalid):
			respondError(w, http.StatusInternalServerError, "Company quota is invalid")
		case errors.Is(err, tenant.ErrTenantNotFound):
			respondError(w, http.StatusNotFound, "Company not found")
		default:
			slog.ErrorContext(r.Context(), "failed to adjust quota",
				logger.Error(err),
				logger.TenantID(t.ID),
			)
			respondError(w, http.StatusInternalServerError, "failed to update quota")
		}
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"id":          t.ID,
		"used_quota":  used,
		"total_quota": t.TotalQuota,
	})
}
