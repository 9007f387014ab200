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

// Package filemeta keeps the per-tenant ledger of file transactions. Each
// record notes an upload or a deletion; quota adjustments ride the same
// transaction-type convention.
package filemeta

import (
	"context"
	"errors"
	"time"
)

// Domain errors
var (
	ErrRecordNotFound = errors.New("file transaction record not found")
	ErrInvalidTxnType = errors.New("invalid file transaction type")
	ErrInvalidSize    = errors.New("file size must not be negative")
	ErrMissingFileKey = errors.New("file key is required")
)

// Transaction types. The numeric values are part of the client contract.
const (
	TxnUpload int16 = 1
	TxnDelete int16 = 2
)

// Record is one file transaction of a tenant.
type Record struct {
	ID        string    `json:"id"`
	FileName  string    `json:"file_name,omitempty"`
	FileSize  int64     `json:"file_size"`
	FileKey   string    `json:"file_key"`
	TxnType   int16     `json:"file_txn_type"`
	TxnMeta   string    `json:"file_txn_meta,omitempty"`
	TenantID  string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// Repository defines the interface for file transaction persistence.
type Repository interface {
	// Create persists a new record.
	Create(ctx context.Context, record *Record) error

	// GetByID retrieves a record.
	GetByID(ctx context.Context, id string) (*Record, error)

	// ListByTenant returns a tenant's records, newest first.
	ListByTenant(ctx context.Context, tenantID string, limit int) ([]*Record, error)
}
