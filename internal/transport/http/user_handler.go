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

	"github.com/shelfgate/shelfgate/internal/observability/logger"
	"github.com/shelfgate/shelfgate/internal/token"
)

// UserTokenRequest names the user a trusted client wants a token for.
type UserTokenRequest struct {
	UserID string `json:"user_id"`
}

// UserToken exchanges a service bearer token for a short-lived user token.
// Only authenticated machine clients may mint user tokens; they vouch for
// the user identity they pass.
func (h *Handler) UserToken(w http.ResponseWriter, r *http.Request) {
	var req UserTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == "" {
		respondError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	accessToken, err := h.userTokens.Issue(r.Context(), req.UserID)
	if err != nil {
		if errors.Is(err, token.ErrKeyUnavailable) {
			slog.ErrorContext(r.Context(), "user token signing key unavailable", logger.Error(err))
			respondError(w, http.StatusInternalServerError, "token signing is not configured")
			return
		}
		slog.ErrorContext(r.Context(), "failed to issue user token", logger.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to issue token")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"access_token": accessToken,
		"token_type":   "bearer",
	})
}

// ValidateUserToken checks a user bearer token and reports its claims.
func (h *Handler) ValidateUserToken(w http.ResponseWriter, r *http.Request) {
	raw := bearerToken(r)
	if raw == "" {
		respondError(w, http.StatusUnauthorized, "bearer token is required")
		return
	}

	claims, err := h.userTokens.Validate(r.Context(), raw)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "invalid token")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"user_id": claims.UserID,
		"expires": claims.Expires,
	})
}
