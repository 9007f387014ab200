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
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/shelfgate/shelfgate/internal/observability/logger"
	"github.com/shelfgate/shelfgate/internal/tenant"
	"github.com/shelfgate/shelfgate/internal/token"
)

// APIKeyHeader carries the tenant credential on tenant-scoped routes.
const APIKeyHeader = "X-Company-Api-Key"

// LoggingMiddleware logs HTTP requests
func LoggingMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// Log request start
			slog.InfoContext(r.Context(), "http_request_start",
				logger.RequestID(middleware.GetReqID(r.Context())),
				logger.Method(r.Method),
				logger.Path(r.URL.Path),
				logger.RemoteAddr(r.RemoteAddr),
			)

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				slog.InfoContext(r.Context(), "http_request_end",
					logger.RequestID(middleware.GetReqID(r.Context())),
					logger.Method(r.Method),
					logger.Path(r.URL.Path),
					logger.RemoteAddr(r.RemoteAddr),
					logger.UserAgent(r.UserAgent()),
					logger.StatusCode(ww.Status()),
					logger.Duration(time.Since(start).Milliseconds()),
				)
			}()

			next.ServeHTTP(ww, r)
		})
	}
}

// APIKeyMiddleware resolves the tenant from the X-Company-Api-Key header and
// injects it into the request context. Tenant identity comes exclusively
// from this header; there is no fallback to query parameters or cookies.
func (h *Handler) APIKeyMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiKey := r.Header.Get(APIKeyHeader)
		if apiKey == "" {
			respondError(w, http.StatusBadRequest, "Company API key header is required")
			return
		}

		t, err := h.tenants.Resolve(r.Context(), apiKey)
		if err != nil {
			if errors.Is(err, tenant.ErrTenantNotFound) {
				respondError(w, http.StatusNotFound, "Company not found")
				return
			}
			slog.ErrorContext(r.Context(), "failed to resolve tenant", logger.Error(err))
			respondError(w, http.StatusInternalServerError, "failed to resolve company")
			return
		}

		ctx := context.WithValue(r.Context(), tenantKey, t)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ServiceAuthMiddleware validates a service bearer token and adds the
// authenticated client id to the context.
func (h *Handler) ServiceAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := bearerToken(r)
		if raw == "" {
			respondError(w, http.StatusUnauthorized, "bearer token is required")
			return
		}

		claims, err := h.serviceTokens.Validate(r.Context(), raw)
		if err != nil {
			status := http.StatusUnauthorized
			msg := "invalid token"
			switch {
			case errors.Is(err, token.ErrTokenExpired):
				msg = "token expired"
			case errors.Is(err, token.ErrInvalidRole):
				status = http.StatusForbidden
				msg = "invalid role"
			case errors.Is(err, token.ErrUnknownSubject):
				msg = "unknown client"
			}
			respondError(w, status, msg)
			return
		}

		ctx := context.WithValue(r.Context(), clientIDKey, claims.Subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// bearerToken extracts a token from the Authorization header.
func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}
