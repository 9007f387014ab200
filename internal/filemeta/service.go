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

package filemeta

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RecordInput carries the client-supplied fields of a file transaction.
type RecordInput struct {
	FileName string `json:"file_name"`
	FileSize int64  `json:"file_size"`
	FileKey  string `json:"file_key"`
	TxnType  int16  `json:"file_txn_type"`
	TxnMeta  string `json:"file_txn_meta"`
}

// Service records file transactions for resolved tenants.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService creates a file transaction service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// Record validates and persists one file transaction for a tenant. A zero
// TxnType defaults to upload, matching the client contract.
func (s *Service) Record(ctx context.Context, tenantID string, in RecordInput) (*Record, error) {
	if in.FileKey == "" {
		return nil, ErrMissingFileKey
	}
	if in.FileSize < 0 {
		return nil, ErrInvalidSize
	}
	if in.TxnType == 0 {
		in.TxnType = TxnUpload
	}
	if in.TxnType != TxnUpload && in.TxnType != TxnDelete {
		return nil, fmt.Errorf("%w: %d", ErrInvalidTxnType, in.TxnType)
	}

	record := &Record{
		ID:        uuid.Must(uuid.NewV7()).String(),
		FileName:  in.FileName,
		FileSize:  in.FileSize,
		FileKey:   in.FileKey,
		TxnType:   in.TxnType,
		TxnMeta:   in.TxnMeta,
		TenantID:  tenantID,
		CreatedAt: s.now(),
	}

	if err := s.repo.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to persist file transaction: %w", err)
	}
	return record, nil
}

// History returns a tenant's most recent file transactions.
func (s *Service) History(ctx context.Context, tenantID string, limit int) ([]*Record, error) {
	if limit <= 0 {
		limit = 100
	}
	return s.repo.ListByTenant(ctx, tenantID, limit)
}
