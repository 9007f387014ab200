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

// TenantRepository implements tenant.Repository
type TenantRepository struct {
	db *DB
}

// NewTenantRepository creates a new tenant repository
func NewTenantRepository(db *DB) *TenantRepository {
	return &TenantRepository{db: db}
}

const tenantColumns = `
	id, name, slug, api_key,
	access_key, secret_key, bucket, region,
	total_quota, used_quota, start_date, end_date, base_url,
	created_at, updated_at
`

func scanTenant(row pgx.Row) (*tenant.Tenant, error) {
	var t tenant.Tenant
	err := row.Scan(
		&t.ID, &t.Name, &t.Slug, &t.APIKey,
		&t.Storage.AccessKey, &t.Storage.SecretKey, &t.Storage.Bucket, &t.Storage.Region,
		&t.TotalQuota, &t.UsedQuota, &t.StartDate, &t.EndDate, &t.BaseURL,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, tenant.ErrTenantNotFound
		}
		return nil, fmt.Errorf("failed to get tenant: %w", err)
	}
	return &t, nil
}

// GetByAPIKey resolves a tenant by exact API-key match
func (r *TenantRepository) GetByAPIKey(ctx context.Context, apiKey string) (*tenant.Tenant, error) {
	row := r.db.pool.QueryRow(ctx, `
		SELECT `+tenantColumns+`
		FROM tenants
		WHERE api_key = $1
	`, apiKey)
	return scanTenant(row)
}

// GetByID retrieves a tenant by id
func (r *TenantRepository) GetByID(ctx context.Context, id string) (*tenant.Tenant, error) {
	row := r.db.pool.QueryRow(ctx, `
		SELECT `+tenantColumns+`
		FROM tenants
		WHERE id = $1
	`, id)
	return scanTenant(row)
}

// NameOrSlugExists reports whether a tenant with the given name or slug exists
func (r *TenantRepository) NameOrSlugExists(ctx context.Context, name, slug string) (bool, error) {
	var exists bool
	err := r.db.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM tenants WHERE name = $1 OR slug = $2
		)
	`, name, slug).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check tenant existence: %w", err)
	}
	return exists, nil
}

// APIKeyExists reports whether the key is already assigned
func (r *TenantRepository) APIKeyExists(ctx context.Context, apiKey string) (bool, error) {
	var exists bool
	err := r.db.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM tenants WHERE api_key = $1
		)
	`, apiKey).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check api key existence: %w", err)
	}
	return exists, nil
}

// AdjustQuota applies a quota delta in a single UPDATE expression so that
// concurrent adjustments serialize on the row and never lose an increment.
// Decreases clamp at zero.
func (r *TenantRepository) AdjustQuota(ctx context.Context, tenantID string, delta int64, direction tenant.Direction) (int64, error) {
	var query string
	switch direction {
	case tenant.DirectionIncrease:
		query = `
			UPDATE tenants
			SET used_quota = used_quota + $2, updated_at = NOW()
			WHERE id = $1 AND used_quota IS NOT NULL
			RETURNING used_quota
		`
	case tenant.DirectionDecrease:
		query = `
			UPDATE tenants
			SET used_quota = GREATEST(0, used_quota - $2), updated_at = NOW()
			WHERE id = $1 AND used_quota IS NOT NULL
			RETURNING used_quota
		`
	default:
		return 0, tenant.ErrQuotaInvalid
	}

	var used int64
	err := r.db.pool.QueryRow(ctx, query, tenantID, delta).Scan(&used)
	if err != nil {
		if err == pgx.ErrNoRows {
			// Either the tenant is missing or its counter was never set.
			if _, getErr := r.GetByID(ctx, tenantID); getErr != nil {
				return 0, getErr
			}
			return 0, tenant.ErrQuotaInvalid
		}
		return 0, fmt.Errorf("failed to adjust quota: %w", err)
	}
	return used, nil
}
