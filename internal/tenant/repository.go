package tenant

import (
	"context"
)

// Repository defines the interface for tenant storage.
type Repository interface {
	// GetByAPIKey resolves a tenant by exact API-key match.
	GetByAPIKey(ctx context.Context, apiKey string) (*Tenant, error)

	// GetByID retrieves a tenant by id.
	GetByID(ctx context.Context, id string) (*Tenant, error)

	// NameOrSlugExists reports whether a tenant with the given name or slug
	// already exists. Names are compared case-sensitively.
	NameOrSlugExists(ctx context.Context, name, slug string) (bool, error)

	// APIKeyExists reports whether the key is already assigned.
	APIKeyExists(ctx context.Context, apiKey string) (bool, error)

	// AdjustQuota applies a quota delta as a single server-side update so
	// concurrent adjustments to the same tenant never lose an increment.
	// Decreases clamp at zero. Returns the new used quota.
	AdjustQuota(ctx context.Context, tenantID string, delta int64, direction Direction) (int64, error)
}

// ProvisioningRepository reads the storage-provisioning credential pool.
type ProvisioningRepository interface {
	// GetActive returns the currently active provisioning record, or
	// ErrNoActiveProvisioning when none is active.
	GetActive(ctx context.Context) (*ProvisioningRecord, error)
}

// RegistrationTokenRepository persists onboarding tokens. Consumption and
// tenant creation share one transaction: either both the tenant row and the
// token binding persist, or neither does.
type RegistrationTokenRepository interface {
	// Create persists a freshly issued, unbound token.
	Create(ctx context.Context, token *RegistrationToken) error

	// GetByHash retrieves a token by its stored hash.
	GetByHash(ctx context.Context, tokenHash string) (*RegistrationToken, error)

	// ConsumeAndCreateTenant atomically binds the token to the tenant and
	// creates the tenant row. Fails with ErrRegTokenConsumed if the token is
	// already bound, ErrRegTokenExpired if past its validity window, and
	// ErrRegTokenNotFound if the hash is unknown.
	ConsumeAndCreateTenant(ctx context.Context, tokenHash string, t *Tenant) error
}
