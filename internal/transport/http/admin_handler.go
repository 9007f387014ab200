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
	"log/slog"
	"net/http"

	"github.com/shelfgate/shelfgate/internal/admin"
	"github.com/shelfgate/shelfgate/internal/observability/logger"
	"github.com/shelfgate/shelfgate/internal/token"
)

// RegisterScope is the scope minted into service tokens. The admin API's
// machine clients exist to drive tenant onboarding.
const RegisterScope = "register:company"

// AdminClientRequest carries admin client credentials.
type AdminClientRequest struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

// RegisterAdminClient creates a new admin client.
func (h *Handler) RegisterAdminClient(w http.ResponseWriter, r *http.Request) {
	var req AdminClientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	client, err := h.adminService.RegisterClient(r.Context(), req.ClientID, req.ClientSecret)
	if err != nil {
		switch {
		case errors.Is(err, admin.ErrClientExists):
			respondError(w, http.StatusNotAcceptable, "DUPLICATE_CLIENT_OR_ERROR")
		case errors.Is(err, admin.ErrInvalidCredentials):
			respondError(w, http.StatusBadRequest, "client_id and client_secret are required")
		default:
			slog.ErrorContext(r.Context(), "failed to register admin client", logger.Error(err))
			respondError(w, http.StatusInternalServerError, "failed to register client")
		}
		return
	}

	respondJSON(w, http.StatusCreated, map[string]string{
		"client_id": client.ClientID,
	})
}

// ValidateAdminClient verifies an id/secret pair without minting a token.
func (h *Handler) ValidateAdminClient(w http.ResponseWriter, r *http.Request) {
	var req AdminClientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	client, err := h.adminService.Authenticate(r.Context(), req.ClientID, req.ClientSecret)
	if err != nil {
		respondError(w, http.StatusNotFound, "CLIENT_NOT_FOUND_OR_ERROR")
		return
	}

	respondJSON(w, http.StatusCreated, map[string]string{
		"client_id": client.ClientID,
	})
}

// ServiceToken authenticates a client and mints a service bearer token. The
// credentials arrive form-encoded, OAuth2 token-endpoint style.
func (h *Handler) ServiceToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		respondError(w, http.StatusBadRequest, "invalid form body")
		return
	}
	clientID := r.PostFormValue("client_id")
	clientSecret := r.PostFormValue("client_secret")

	client, err := h.adminService.Authenticate(r.Context(), clientID, clientSecret)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "CLIENT_UNAUTHORIZED")
		return
	}

	accessToken, err := h.serviceTokens.Issue(r.Context(), client.ClientID, RegisterScope)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to issue service token",
			logger.Error(err),
			logger.ClientID(client.ClientID),
		)
		respondError(w, http.StatusInternalServerError, "failed to issue token")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"access_token": accessToken,
		"token_type":   "bearer",
	})
}

// ValidateServiceToken checks a bearer token and reports its subject.
func (h *Handler) ValidateServiceToken(w http.ResponseWriter, r *http.Request) {
	raw := bearerToken(r)
	if raw == "" {
		respondError(w, http.StatusUnauthorized, "bearer token is required")
		return
	}

	claims, err := h.serviceTokens.Validate(r.Context(), raw)
	if err != nil {
		if errors.Is(err, token.ErrInvalidRole) {
			respondError(w, http.StatusForbidden, "invalid role")
			return
		}
		respondError(w, http.StatusUnauthorized, "invalid token")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"client_id": claims.Subject,
		"message":   "Token is valid",
	})
}

// IssueRegistrationToken mints a single-use onboarding token and returns its
// one-time URL. The raw token appears only in this response.
func (h *Handler) IssueRegistrationToken(w http.ResponseWriter, r *http.Request) {
	issued, err := h.regTokens.Issue(r.Context(), GetClientID(r.Context()), h.baseURL)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to issue registration token", logger.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to issue registration token")
		return
	}

	respondJSON(w, http.StatusCreated, map[string]any{
		"registration_url": issued.URL,
		"expires_at":       issued.ExpiresAt.Unix(),
	})
}
