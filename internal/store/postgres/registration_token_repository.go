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
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shelfgate/shelfgate/internal/tenant"
)

// RegistrationTokenRepository implements tenant.RegistrationTokenRepository
type RegistrationTokenRepository struct {
	db *DB
}

// NewRegistrationTokenRepository creates a new registration token repository
func NewRegistrationTokenRepository(db *DB) *RegistrationTokenRepository {
	return &RegistrationTokenRepository{db: db}
}

// Create persists a freshly issued, unbound token
func (r *RegistrationTokenRepository) Create(ctx context.Context, token *tenant.RegistrationToken) error {
	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO registration_tokens (id, token_hash, tenant_id, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, token.ID, token.TokenHash, token.TenantID, token.ExpiresAt, token.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert registration token: %w", err)
	}
	return nil
}

// GetByHash retrieves a token by its stored hash
func (r *RegistrationTokenRepository) GetByHash(ctx context.Context, tokenHash string) (*tenant.RegistrationToken, error) {
	var token tenant.RegistrationToken
	err := r.db.pool.QueryRow(ctx, `
		SELECT id, token_hash, tenant_id, expires_at, created_at
		FROM registration_tokens
		WHERE token_hash = $1
	`, tokenHash).Scan(&token.ID, &token.TokenHash, &token.TenantID, &token.ExpiresAt, &token.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, tenant.ErrRegTokenNotFound
		}
		return nil, fmt.Errorf("failed to get registration token: %w", err)
	}
	return &token, nil
}

// ConsumeAndCreateTenant binds the token to the tenant and creates the tenant
// row in one transaction. The token row is locked first, so two racing
// registrations with the same token cannot both succeed.
func (r *RegistrationTokenRepository) ConsumeAndCreateTenant(ctx context.Context, tokenHash string, t *tenant.Tenant) error {
	tx, err := r.db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var token tenant.RegistrationToken
	err = tx.QueryRow(ctx, `
		SELECT id, token_hash, tenant_id, expires_at, created_at
		FROM registration_tokens
		WHERE token_hash = $1
		FOR UPDATE
	`, tokenHash).Scan(&token.ID, &token.TokenHash, &token.TenantID, &token.ExpiresAt, &token.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return tenant.ErrRegTokenNotFound
		}
		return fmt.Errorf("failed to lock registration token: %w", err)
	}

	if token.Consumed() {
		return tenant.ErrRegTokenConsumed
	}
	if token.Expired(time.Now()) {
		return tenant.ErrRegTokenExpired
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO tenants (
			id, name, slug, api_key,
			access_key, secret_key, bucket, region,
			total_quota, used_quota, start_date, end_date, base_url,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`,
		t.ID, t.Name, t.Slug, t.APIKey,
		t.Storage.AccessKey, t.Storage.SecretKey, t.Storage.Bucket, t.Storage.Region,
		t.TotalQuota, t.UsedQuota, t.StartDate, t.EndDate, t.BaseURL,
		t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert tenant: %w", err)
	}

	_, err = tx.Exec(ctx, `
		UPDATE registration_tokens SET tenant_id = $2
		WHERE id = $1
	`, token.ID, t.ID)
	if err != nil {
		return fmt.Errorf("failed to bind registration token: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit registration: %w", err)
	}
	return nil
}
