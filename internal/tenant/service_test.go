package tenant

import (
	"context"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfgate/shelfgate/internal/audit"
)

// fakeRepo is an in-memory Repository whose AdjustQuota mirrors the atomic
// server-side update the postgres implementation performs.
type fakeRepo struct {
	mu      sync.Mutex
	tenants map[string]*Tenant // by id
	byKey   map[string]string  // api key -> id
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{tenants: map[string]*Tenant{}, byKey: map[string]string{}}
}

func (r *fakeRepo) put(t *Tenant) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tenants[t.ID] = t
	r.byKey[t.APIKey] = t.ID
}

func (r *fakeRepo) GetByAPIKey(ctx context.Context, apiKey string) (*Tenant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byKey[apiKey]
	if !ok {
		return nil, ErrTenantNotFound
	}
	return r.tenants[id], nil
}

func (r *fakeRepo) GetByID(ctx context.Context, id string) (*Tenant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tenants[id]
	if !ok {
		return nil, ErrTenantNotFound
	}
	return t, nil
}

func (r *fakeRepo) NameOrSlugExists(ctx context.Context, name, slug string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tenants {
		if t.Name == name || t.Slug == slug {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeRepo) APIKeyExists(ctx context.Context, apiKey string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.byKey[apiKey]
	return ok, nil
}

func (r *fakeRepo) AdjustQuota(ctx context.Context, tenantID string, delta int64, direction Direction) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tenants[tenantID]
	if !ok {
		return 0, ErrTenantNotFound
	}
	if t.UsedQuota == nil {
		return 0, ErrQuotaInvalid
	}
	used := *t.UsedQuota
	if direction == DirectionDecrease {
		used -= delta
		if used < 0 {
			used = 0
		}
	} else {
		used += delta
	}
	t.UsedQuota = &used
	return used, nil
}

// fakeTokenRepo is an in-memory RegistrationTokenRepository.
type fakeTokenRepo struct {
	mu      sync.Mutex
	tokens  map[string]*RegistrationToken // by hash
	created []*Tenant
	now     func() time.Time
}

func newFakeTokenRepo() *fakeTokenRepo {
	return &fakeTokenRepo{tokens: map[string]*RegistrationToken{}, now: time.Now}
}

func (r *fakeTokenRepo) Create(ctx context.Context, tok *RegistrationToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens[tok.TokenHash] = tok
	return nil
}

func (r *fakeTokenRepo) GetByHash(ctx context.Context, hash string) (*RegistrationToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tok, ok := r.tokens[hash]
	if !ok {
		return nil, ErrRegTokenNotFound
	}
	cp := *tok
	return &cp, nil
}

func (r *fakeTokenRepo) ConsumeAndCreateTenant(ctx context.Context, hash string, t *Tenant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	tok, ok := r.tokens[hash]
	if !ok {
		return ErrRegTokenNotFound
	}
	if tok.TenantID != nil {
		return ErrRegTokenConsumed
	}
	if r.now().After(tok.ExpiresAt) {
		return ErrRegTokenExpired
	}
	tok.TenantID = &t.ID
	r.created = append(r.created, t)
	return nil
}

type staticProvisioning struct {
	record *ProvisioningRecord
	err    error
}

func (p *staticProvisioning) GetActive(ctx context.Context) (*ProvisioningRecord, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.record, nil
}

func activeRecord() *ProvisioningRecord {
	return &ProvisioningRecord{
		ID:           "prov-1",
		Bucket:       "shared-bucket",
		Region:       "eu-central-1",
		AccessKey:    "AKIA-TEST",
		SecretKey:    "very-secret",
		TotalQuota:   10 * 1024 * 1024 * 1024,
		DefaultQuota: 250 * 1024 * 1024,
		Active:       true,
	}
}

func issueTestToken(t *testing.T, tokens *fakeTokenRepo) string {
	t.Helper()
	mgr := NewTokenManager(tokens, audit.NewSlogLogger())
	issued, err := mgr.Issue(context.Background(), "client-1", "https://gw.example.com")
	require.NoError(t, err)
	return issued.Token
}

func TestDirectory_Register(t *testing.T) {
	repo := newFakeRepo()
	tokens := newFakeTokenRepo()
	dir := NewDirectory(repo, &staticProvisioning{record: activeRecord()}, tokens, audit.NewSlogLogger())
	ctx := context.Background()

	raw := issueTestToken(t, tokens)

	tn, err := dir.Register(ctx, RegisterRequest{
		Name:              "Acme Logistics GmbH",
		KeyPrefix:         "shgw",
		BaseURL:           "https://gw.example.com",
		RegistrationToken: raw,
	})
	require.NoError(t, err)

	assert.Equal(t, "acme-logistics-gmbh", tn.Slug)
	assert.Regexp(t, regexp.MustCompile(`^shgw_[A-Za-z0-9]{32}$`), tn.APIKey)
	assert.Equal(t, "shared-bucket", tn.Storage.Bucket)
	require.NotNil(t, tn.UsedQuota)
	assert.Equal(t, int64(0), *tn.UsedQuota)
	require.NotNil(t, tn.TotalQuota)
	assert.Equal(t, int64(250*1024*1024), *tn.TotalQuota)
	assert.WithinDuration(t, tn.StartDate.Add(ValidityWindow), tn.EndDate, time.Second)
	require.Len(t, tokens.created, 1)
}

// TestPurpose: Validates conflict detection on duplicate tenant names and
// name-derived slugs.
// Scope: Unit Test
// Security: Namespace uniqueness; slugs back storage prefixes
// Expected: ErrTenantExists for an exact name match and for a differently
// cased name that collides on the slug; no tenant row is created.
// Test Case ID: DIR-01
func TestDirectory_Register_DuplicateName(t *testing.T) {
	repo := newFakeRepo()
	tokens := newFakeTokenRepo()
	dir := NewDirectory(repo, &staticProvisioning{record: activeRecord()}, tokens, audit.NewSlogLogger())
	ctx := context.Background()

	used := int64(0)
	repo.put(&Tenant{ID: "t-1", Name: "Acme", Slug: "acme", APIKey: "shgw_x", UsedQuota: &used})

	for _, name := range []string{"Acme", "ACME"} {
		_, err := dir.Register(ctx, RegisterRequest{
			Name:              name,
			KeyPrefix:         "shgw",
			RegistrationToken: issueTestToken(t, tokens),
		})
		assert.ErrorIs(t, err, ErrTenantExists, "name %q", name)
	}
	assert.Empty(t, tokens.created)
}

// TestPurpose: Validates that registration fails wholesale when no storage
// provisioning record is active.
// Scope: Unit Test
// Security: A tenant must never exist without storage credentials.
// Expected: ErrNoActiveProvisioning; the registration token stays unbound.
// Test Case ID: DIR-02
func TestDirectory_Register_NoActiveProvisioning(t *testing.T) {
	repo := newFakeRepo()
	tokens := newFakeTokenRepo()
	dir := NewDirectory(repo, &staticProvisioning{err: ErrNoActiveProvisioning}, tokens, audit.NewSlogLogger())
	ctx := context.Background()

	raw := issueTestToken(t, tokens)
	_, err := dir.Register(ctx, RegisterRequest{
		Name:              "Acme",
		KeyPrefix:         "shgw",
		RegistrationToken: raw,
	})
	assert.ErrorIs(t, err, ErrNoActiveProvisioning)
	assert.Empty(t, tokens.created)

	// The token survives the failed attempt and still registers.
	_, err = dir.Register(ctx, RegisterRequest{
		Name:              "Acme",
		KeyPrefix:         "shgw",
		RegistrationToken: raw,
	})
	assert.ErrorIs(t, err, ErrNoActiveProvisioning)
}

func TestDirectory_Resolve(t *testing.T) {
	repo := newFakeRepo()
	dir := NewDirectory(repo, &staticProvisioning{record: activeRecord()}, newFakeTokenRepo(), audit.NewSlogLogger())
	ctx := context.Background()

	used := int64(0)
	repo.put(&Tenant{ID: "t-1", Name: "Acme", Slug: "acme", APIKey: "shgw_abc123", UsedQuota: &used})

	tn, err := dir.Resolve(ctx, "shgw_abc123")
	require.NoError(t, err)
	assert.Equal(t, "t-1", tn.ID)

	// Keys are case-sensitive opaque tokens.
	_, err = dir.Resolve(ctx, "SHGW_ABC123")
	assert.ErrorIs(t, err, ErrTenantNotFound)

	_, err = dir.Resolve(ctx, "")
	assert.ErrorIs(t, err, ErrTenantNotFound)
}

func TestGenerateAPIKey_Format(t *testing.T) {
	seen := map[string]bool{}
	pattern := regexp.MustCompile(`^shgw_[A-Za-z0-9]{32}$`)
	for i := 0; i < 64; i++ {
		key, err := generateAPIKey("shgw")
		require.NoError(t, err)
		assert.Regexp(t, pattern, key)
		assert.False(t, seen[key], "generated keys must not repeat")
		seen[key] = true
	}
}
