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
	"mime"
	"net/http"
	"path"

	"github.com/shelfgate/shelfgate/internal/observability/logger"
	"github.com/shelfgate/shelfgate/internal/storage"
	"github.com/shelfgate/shelfgate/internal/tenant"
)

// PresignUploadRequest carries an upload grant request. ContentSize is the
// upper bound of the size condition signed into the grant.
type PresignUploadRequest struct {
	FileName    string `json:"file_name"`
	LocTag      string `json:"loc_tag"`
	ContentSize int64  `json:"content_size"`
}

// PresignUpload issues a presigned upload capability for a fresh object key
// inside the tenant's namespace.
func (h *Handler) PresignUpload(w http.ResponseWriter, r *http.Request) {
	t := GetTenant(r.Context())

	var req PresignUploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.FileName == "" || req.LocTag == "" {
		respondError(w, http.StatusBadRequest, "file_name and loc_tag are required")
		return
	}
	if req.ContentSize < storage.MinUploadSize {
		respondError(w, http.StatusBadRequest, "content_size is below the minimum upload size")
		return
	}

	// No new upload capability once the budget is spent.
	if err := h.quota.Ensure(t); err != nil {
		if errors.Is(err, tenant.ErrQuotaExceeded) {
			respondError(w, http.StatusForbidden, "Company quota exceeded")
			return
		}
		respondError(w, http.StatusInternalServerError, "Company quota is invalid")
		return
	}

	contentType := mime.TypeByExtension(path.Ext(req.FileName))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	relativePath := req.LocTag + "/" + req.FileName
	grant, err := h.broker.IssueUploadGrant(r.Context(), t, relativePath, contentType, req.ContentSize)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrObjectExists):
			respondError(w, http.StatusConflict, "File found - "+req.FileName)
		case errors.Is(err, storage.ErrUpstream):
			respondError(w, http.StatusBadGateway, "object store unavailable")
		default:
			slog.ErrorContext(r.Context(), "failed to issue upload grant",
				logger.Error(err),
				logger.TenantID(t.ID),
			)
			respondError(w, http.StatusInternalServerError, "failed to generate upload URL")
		}
		return
	}

	respondJSON(w, http.StatusOK, grant)
}

// PresignDownload issues a presigned download URL for an object key. Absent
// objects are not probed; the grant fails at use time instead.
func (h *Handler) PresignDownload(w http.ResponseWriter, r *http.Request) {
	t := GetTenant(r.Context())

	objectKey := r.URL.Query().Get("object_key")
	if objectKey == "" {
		respondError(w, http.StatusBadRequest, "object_key is required")
		return
	}

	grant, err := h.broker.IssueDownloadGrant(r.Context(), t, objectKey)
	if err != nil {
		if errors.Is(err, storage.ErrUpstream) {
			respondError(w, http.StatusBadGateway, "object store unavailable")
			return
		}
		slog.ErrorContext(r.Context(), "failed to issue download grant",
			logger.Error(err),
			logger.TenantID(t.ID),
		)
		respondError(w, http.StatusInternalServerError, "failed to generate download URL")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"url":        grant.URL,
		"expires_in": grant.ExpiresIn,
	})
}

// FileDeleteRequest names a folder inside the tenant's namespace.
type FileDeleteRequest struct {
	LocTag string `json:"loc_tag"`
}

// DeleteFiles removes every object under a tenant folder. Deleting an empty
// folder is reported as an error, not a silent success.
func (h *Handler) DeleteFiles(w http.ResponseWriter, r *http.Request) {
	t := GetTenant(r.Context())

	var req FileDeleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.LocTag == "" {
		respondError(w, http.StatusBadRequest, "loc_tag is required")
		return
	}

	count, err := h.broker.DeleteAll(r.Context(), t, req.LocTag)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrPrefixEmpty):
			respondError(w, http.StatusNotAcceptable, "Folder is empty")
		case errors.Is(err, storage.ErrUpstream):
			respondError(w, http.StatusBadGateway, "object store unavailable")
		default:
			slog.ErrorContext(r.Context(), "failed to delete files",
				logger.Error(err),
				logger.TenantID(t.ID),
				logger.StoragePrefix(req.LocTag),
			)
			respondError(w, http.StatusInternalServerError, "Something Went Wrong")
		}
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"message":       "Files deleted successfully",
		"deleted_count": count,
	})
}

// FolderSize reports the total size of a tenant folder.
func (h *Handler) FolderSize(w http.ResponseWriter, r *http.Request) {
	t := GetTenant(r.Context())

	locTag := r.URL.Query().Get("loc_tag")
	if locTag == "" {
		respondError(w, http.StatusBadRequest, "loc_tag is required")
		return
	}

	total, err := h.broker.FolderSize(r.Context(), t, locTag)
	if err != nil {
		if errors.Is(err, storage.ErrUpstream) {
			respondError(w, http.StatusBadGateway, "object store unavailable")
			return
		}
		slog.ErrorContext(r.Context(), "failed to compute folder size",
			logger.Error(err),
			logger.TenantID(t.ID),
			logger.StoragePrefix(locTag),
		)
		respondError(w, http.StatusInternalServerError, "failed to compute folder size")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"folder_path":         storage.Prefix(t, locTag),
		"total_size":          total,
		"total_size_readable": storage.HumanReadableSize(total),
	})
}
