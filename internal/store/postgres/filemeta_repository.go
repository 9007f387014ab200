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

package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shelfgate/shelfgate/internal/filemeta"
)

// FileMetaRepository implements filemeta.Repository
type FileMetaRepository struct {
	db *DB
}

// NewFileMetaRepository creates a new file metadata repository
func NewFileMetaRepository(db *DB) *FileMetaRepository {
	return &FileMetaRepository{db: db}
}

// Create persists a new record
func (r *FileMetaRepository) Create(ctx context.Context, record *filemeta.Record) error {
	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO files_meta (
			id, file_name, file_size, file_key,
			file_txn_type, file_txn_meta, tenant_id, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		record.ID, record.FileName, record.FileSize, record.FileKey,
		record.TxnType, record.TxnMeta, record.TenantID, record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert file transaction: %w", err)
	}
	return nil
}

// GetByID retrieves a record
func (r *FileMetaRepository) GetByID(ctx context.Context, id string) (*filemeta.Record, error) {
	var rec filemeta.Record
	err := r.db.pool.QueryRow(ctx, `
		SELECT id, file_name, file_size, file_key,
			file_txn_type, file_txn_meta, tenant_id, created_at
		FROM files_meta
		WHERE id = $1
	`, id).Scan(
		&rec.ID, &rec.FileName, &rec.FileSize, &rec.FileKey,
		&rec.TxnType, &rec.TxnMeta, &rec.TenantID, &rec.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, filemeta.ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to get file transaction: %w", err)
	}
	return &rec, nil
}

// ListByTenant returns a tenant's records, newest first
func (r *FileMetaRepository) ListByTenant(ctx context.Context, tenantID string, limit int) ([]*filemeta.Record, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT id, file_name, file_size, file_key,
			file_txn_type, file_txn_meta, tenant_id, created_at
		FROM files_meta
		WHERE tenant_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, tenantID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list file transactions: %w", err)
	}
	defer rows.Close()

	var records []*filemeta.Record
	for rows.Next() {
		var rec filemeta.Record
		if err := rows.Scan(
			&rec.ID, &rec.FileName, &rec.FileSize, &rec.FileKey,
			&rec.TxnType, &rec.TxnMeta, &rec.TenantID, &rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan file transaction: %w", err)
		}
		records = append(records, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate file transactions: %w", err)
	}
	return records, nil
}
