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
	"github.com/shelfgate/shelfgate/internal/tenant"
)

// ProvisioningRepository implements tenant.ProvisioningRepository
type ProvisioningRepository struct {
	db *DB
}

// NewProvisioningRepository creates a new provisioning repository
func NewProvisioningRepository(db *DB) *ProvisioningRepository {
	return &ProvisioningRepository{db: db}
}

// GetActive returns the currently active provisioning record
func (r *ProvisioningRepository) GetActive(ctx context.Context) (*tenant.ProvisioningRecord, error) {
	var rec tenant.ProvisioningRecord
	err := r.db.pool.QueryRow(ctx, `
		SELECT id, bucket, region, access_key, secret_key,
			total_quota, default_quota, is_active, created_at
		FROM provisioning_records
		WHERE is_active = TRUE
		ORDER BY created_at DESC
		LIMIT 1
	`).Scan(
		&rec.ID, &rec.Bucket, &rec.Region, &rec.AccessKey, &rec.SecretKey,
		&rec.TotalQuota, &rec.DefaultQuota, &rec.Active, &rec.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, tenant.ErrNoActiveProvisioning
		}
		return nil, fmt.Errorf("failed to get provisioning record: %w", err)
	}
	return &rec, nil
}
