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

package tenant

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/shelfgate/shelfgate/internal/audit"
)

const apiKeyAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
const apiKeySuffixLength = 32

// Directory resolves tenants from opaque API keys and registers new tenants.
// It is the single source of truth for tenant identity, storage credentials,
// and quota state.
type Directory struct {
	repo         Repository
	provisioning ProvisioningRepository
	tokens       RegistrationTokenRepository
	auditLogger  audit.Logger
	now          func() time.Time
}

// NewDirectory creates a tenant directory.
func NewDirectory(
	repo Repository,
	provisioning ProvisioningRepository,
	tokens RegistrationTokenRepository,
	auditLogger audit.Logger,
) *Directory {
	return &Directory{
		repo:         repo,
		provisioning: provisioning,
		tokens:       tokens,
		auditLogger:  auditLogger,
		now:          time.Now,
	}
}

// Resolve looks up a tenant by exact API-key match. Keys are opaque
// case-sensitive tokens; there is no normalization or partial matching.
func (d *Directory) Resolve(ctx context.Context, apiKey string) (*Tenant, error) {
	if apiKey == "" {
		return nil, ErrTenantNotFound
	}
	return d.repo.GetByAPIKey(ctx, apiKey)
}

// RegisterRequest carries the inputs of a tenant registration.
type RegisterRequest struct {
	Name              string
	KeyPrefix         string
	BaseURL           string
	RegistrationToken string
}

// Register creates a new tenant. The registration token is consumed in the
// same transaction that creates the tenant; a failure at any step leaves the
// token reusable and no tenant row behind.
func (d *Directory) Register(ctx context.Context, req RegisterRequest) (*Tenant, error) {
	tokenHash := hashToken(req.RegistrationToken)

	// Pre-check the token so obviously dead tokens fail before any other
	// work. The transactional consume re-checks under lock.
	tok, err := d.tokens.GetByHash(ctx, tokenHash)
	if err != nil {
		return nil, err
	}
	if tok.Consumed() {
		return nil, ErrRegTokenConsumed
	}
	if tok.Expired(d.now()) {
		return nil, ErrRegTokenExpired
	}

	tenantSlug := slug.Make(req.Name)
	exists, err := d.repo.NameOrSlugExists(ctx, req.Name, tenantSlug)
	if err != nil {
		return nil, fmt.Errorf("failed to check tenant name: %w", err)
	}
	if exists {
		return nil, ErrTenantExists
	}

	record, err := d.provisioning.GetActive(ctx)
	if err != nil {
		return nil, err
	}

	apiKey, err := generateAPIKey(req.KeyPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to generate api key: %w", err)
	}

	// The generator makes collisions astronomically unlikely; if one happens
	// anyway the registration fails and the caller retries, it is never
	// silently overwritten.
	taken, err := d.repo.APIKeyExists(ctx, apiKey)
	if err != nil {
		return nil, fmt.Errorf("failed to check api key uniqueness: %w", err)
	}
	if taken {
		return nil, ErrAPIKeyCollision
	}

	now := d.now()
	used := int64(0)
	total := record.DefaultQuota

	t := &Tenant{
		ID:     uuid.Must(uuid.NewV7()).String(),
		Name:   req.Name,
		Slug:   tenantSlug,
		APIKey: apiKey,
		Storage: StorageCredentials{
			AccessKey: record.AccessKey,
			SecretKey: record.SecretKey,
			Bucket:    record.Bucket,
			Region:    record.Region,
		},
		TotalQuota: &total,
		UsedQuota:  &used,
		StartDate:  now,
		EndDate:    now.Add(ValidityWindow),
		BaseURL:    req.BaseURL,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := d.tokens.ConsumeAndCreateTenant(ctx, tokenHash, t); err != nil {
		return nil, err
	}

	d.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeTenantRegistered,
		TenantID: t.ID,
		Resource: t.Slug,
		Metadata: map[string]any{"name": t.Name, "bucket": record.Bucket},
	})
	d.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeRegTokenConsumed,
		TenantID: t.ID,
		Resource: tok.ID,
	})

	return t, nil
}

// generateAPIKey builds a key of the form <prefix>_<32 alphanumeric chars>
// from a cryptographically strong source.
func generateAPIKey(prefix string) (string, error) {
	suffix := make([]byte, apiKeySuffixLength)
	max := big.NewInt(int64(len(apiKeyAlphabet)))
	for i := range suffix {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		suffix[i] = apiKeyAlphabet[n.Int64()]
	}
	return prefix + "_" + string(suffix), nil
}
