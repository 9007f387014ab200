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

	"github.com/shelfgate/shelfgate/internal/filemeta"
	"github.com/shelfgate/shelfgate/internal/observability/logger"
)

// InsertFileMeta records one file transaction for the tenant.
func (h *Handler) InsertFileMeta(w http.ResponseWriter, r *http.Request) {
	t := GetTenant(r.Context())

	var in filemeta.RecordInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	record, err := h.fileMeta.Record(r.Context(), t.ID, in)
	if err != nil {
		switch {
		case errors.Is(err, filemeta.ErrMissingFileKey),
			errors.Is(err, filemeta.ErrInvalidSize),
			errors.Is(err, filemeta.ErrInvalidTxnType):
			respondError(w, http.StatusBadRequest, err.Error())
		default:
			slog.ErrorContext(r.Context(), "failed to record file transaction",
				logger.Error(err),
				logger.TenantID(t.ID),
			)
			respondError(w, http.StatusInternalServerError, "failed to record file transaction")
		}
		return
	}

	respondJSON(w, http.StatusCreated, record)
}
