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

// Package system provides integration tests that run against a real PostgreSQL database.
//
// Test Execution:
//
//	INTEGRATION_TEST=true go test -v ./tests/system/...
//
// Prerequisites:
//
//	docker compose up -d postgres
//
// Test Categories:
//   - TEN-*: Tenant isolation tests
//   - REG-*: Registration token tests
//   - QTA-*: Quota ledger tests
package system

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfgate/shelfgate/internal/filemeta"
	"github.com/shelfgate/shelfgate/internal/store/postgres"
	"github.com/shelfgate/shelfgate/internal/tenant"
)

// testDB is the shared database connection for integration tests
var testDB *postgres.DB

// TestMain sets up and tears down the test database connection
func TestMain(m *testing.M) {
	// Skip if not integration test
	if os.Getenv("INTEGRATION_TEST") != "true" {
		os.Exit(0)
	}

	// Setup database
	ctx := context.Background()
	db, err := postgres.New(ctx, postgres.Config{
		Host:         getEnvOrDefault("DB_HOST", "localhost"),
		Port:         getEnvOrDefault("DB_PORT", "5432"),
		User:         getEnvOrDefault("DB_USER", "shelfgate"),
		Password:     getEnvOrDefault("DB_PASSWORD", "shelfgate_dev_password"),
		Database:     getEnvOrDefault("DB_NAME", "shelfgate"),
		SSLMode:      "disable",
		MaxOpenConns: 5,
		MaxIdleConns: 2,
	})
	if err != nil {
		panic("failed to connect to test database: " + err.Error())
	}
	testDB = db

	// Apply migrations
	if err := db.Migrate(ctx, postgres.InitialSchema); err != nil {
		// Ignore errors for already existing tables
		_ = err
	}

	code := m.Run()
	db.Close()
	os.Exit(code)
}

func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// createTestTenant persists a tenant through the registration-token path and
// schedules cleanup. Each call produces a unique name, slug, and API key.
func createTestTenant(t *testing.T, usedQuota, totalQuota int64) *tenant.Tenant {
	t.Helper()
	ctx := context.Background()

	tokenRepo := postgres.NewRegistrationTokenRepository(testDB)
	suffix := uuid.Must(uuid.NewV7()).String()

	tok := &tenant.RegistrationToken{
		ID:        uuid.Must(uuid.NewV7()).String(),
		TokenHash: "hash-" + suffix,
		ExpiresAt: time.Now().Add(10 * time.Minute),
		CreatedAt: time.Now(),
	}
	require.NoError(t, tokenRepo.Create(ctx, tok))

	now := time.Now()
	tn := &tenant.Tenant{
		ID:     uuid.Must(uuid.NewV7()).String(),
		Name:   "company-" + suffix,
		Slug:   "company-" + suffix,
		APIKey: "shgw_" + suffix,
		Storage: tenant.StorageCredentials{
			AccessKey: "AKTEST",
			SecretKey: "test-secret",
			Bucket:    "test-bucket",
			Region:    "eu-central-1",
		},
		TotalQuota: &totalQuota,
		UsedQuota:  &usedQuota,
		StartDate:  now,
		EndDate:    now.Add(tenant.ValidityWindow),
		BaseURL:    "http://localhost:9090",
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	require.NoError(t, tokenRepo.ConsumeAndCreateTenant(ctx, tok.TokenHash, tn))

	t.Cleanup(func() {
		pool := testDB.Pool()
		pool.Exec(ctx, "DELETE FROM files_meta WHERE tenant_id = $1", tn.ID)
		pool.Exec(ctx, "DELETE FROM registration_tokens WHERE tenant_id = $1", tn.ID)
		pool.Exec(ctx, "DELETE FROM tenants WHERE id = $1", tn.ID)
	})

	return tn
}

// TestPurpose: Validates that API-key resolution never returns another
// tenant's row, even for keys differing only in case.
// Scope: Database Integration Test
// Security: Multi-tenant Data Separation (CWE-284)
// Expected: Each key resolves exactly its own tenant; a case-variant of a
// valid key resolves nothing.
// Test Case ID: TEN-01
// Metadata:
//   - Category: Tenant
//   - Priority: High
//   - Tags: multi-tenancy, security, data-isolation
func TestTenantRepository_APIKeyIsolation(t *testing.T) {
	ctx := context.Background()
	repo := postgres.NewTenantRepository(testDB)

	tenantA := createTestTenant(t, 0, 1<<30)
	tenantB := createTestTenant(t, 0, 1<<30)

	gotA, err := repo.GetByAPIKey(ctx, tenantA.APIKey)
	require.NoError(t, err)
	assert.Equal(t, tenantA.ID, gotA.ID)

	gotB, err := repo.GetByAPIKey(ctx, tenantB.APIKey)
	require.NoError(t, err)
	assert.Equal(t, tenantB.ID, gotB.ID)

	// Keys are opaque and case-sensitive; a case-variant must not resolve.
	_, err = repo.GetByAPIKey(ctx, "SHGW_"+tenantA.APIKey[5:])
	assert.ErrorIs(t, err, tenant.ErrTenantNotFound)
}

// TestPurpose: Validates that file transaction listings are scoped to one
// tenant.
// Scope: Database Integration Test
// Security: Multi-tenant Data Separation (CWE-284)
// Expected: Tenant A's listing never contains tenant B's records.
// Test Case ID: TEN-02
// Metadata:
//   - Category: Tenant
//   - Priority: High
//   - Tags: multi-tenancy, security, data-isolation
func TestFileMetaRepository_TenantIsolation(t *testing.T) {
	ctx := context.Background()
	repo := postgres.NewFileMetaRepository(testDB)

	tenantA := createTestTenant(t, 0, 1<<30)
	tenantB := createTestTenant(t, 0, 1<<30)

	for i, tn := range []*tenant.Tenant{tenantA, tenantA, tenantB} {
		rec := &filemeta.Record{
			ID:        uuid.Must(uuid.NewV7()).String(),
			FileName:  fmt.Sprintf("file-%d.bin", i),
			FileSize:  4096,
			FileKey:   fmt.Sprintf("%s/data/file-%d.bin", tn.Slug, i),
			TxnType:   filemeta.TxnUpload,
			TenantID:  tn.ID,
			CreatedAt: time.Now(),
		}
		require.NoError(t, repo.Create(ctx, rec))
	}

	listA, err := repo.ListByTenant(ctx, tenantA.ID, 10)
	require.NoError(t, err)
	assert.Len(t, listA, 2)
	for _, rec := range listA {
		assert.Equal(t, tenantA.ID, rec.TenantID)
	}

	listB, err := repo.ListByTenant(ctx, tenantB.ID, 10)
	require.NoError(t, err)
	assert.Len(t, listB, 1)
}

// TestPurpose: Validates that a registration token creates at most one
// tenant, including under concurrent consumption.
// Scope: Database Integration Test
// Security: Single-use onboarding gate
// Expected: Exactly one of the concurrent consumers succeeds; the rest get
// ErrRegTokenConsumed.
// Test Case ID: REG-01
// Metadata:
//   - Category: Registration
//   - Priority: High
//   - Tags: onboarding, concurrency, security
func TestRegistrationToken_SingleUse(t *testing.T) {
	ctx := context.Background()
	tokenRepo := postgres.NewRegistrationTokenRepository(testDB)

	suffix := uuid.Must(uuid.NewV7()).String()
	tok := &tenant.RegistrationToken{
		ID:        uuid.Must(uuid.NewV7()).String(),
		TokenHash: "hash-" + suffix,
		ExpiresAt: time.Now().Add(10 * time.Minute),
		CreatedAt: time.Now(),
	}
	require.NoError(t, tokenRepo.Create(ctx, tok))

	const racers = 5
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded []string
	)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			now := time.Now()
			quota := int64(1 << 30)
			used := int64(0)
			tn := &tenant.Tenant{
				ID:         uuid.Must(uuid.NewV7()).String(),
				Name:       fmt.Sprintf("racer-%s-%d", suffix, i),
				Slug:       fmt.Sprintf("racer-%s-%d", suffix, i),
				APIKey:     fmt.Sprintf("shgw_race_%s_%d", suffix, i),
				TotalQuota: &quota,
				UsedQuota:  &used,
				StartDate:  now,
				EndDate:    now.Add(tenant.ValidityWindow),
				CreatedAt:  now,
				UpdatedAt:  now,
			}
			err := tokenRepo.ConsumeAndCreateTenant(ctx, tok.TokenHash, tn)
			if err == nil {
				mu.Lock()
				succeeded = append(succeeded, tn.ID)
				mu.Unlock()
			} else {
				assert.ErrorIs(t, err, tenant.ErrRegTokenConsumed)
			}
		}(i)
	}
	wg.Wait()

	require.Len(t, succeeded, 1)

	t.Cleanup(func() {
		pool := testDB.Pool()
		pool.Exec(ctx, "DELETE FROM registration_tokens WHERE id = $1", tok.ID)
		pool.Exec(ctx, "DELETE FROM tenants WHERE id = $1", succeeded[0])
	})
}

// TestPurpose: Validates that concurrent quota increments never lose an
// update and that decreases clamp at zero.
// Scope: Database Integration Test
// Expected: N concurrent +delta adjustments land at exactly N*delta; an
// oversized decrease lands at zero.
// Test Case ID: QTA-01
// Metadata:
//   - Category: Quota
//   - Priority: High
//   - Tags: quota, concurrency
func TestTenantRepository_QuotaAdjustConcurrency(t *testing.T) {
	ctx := context.Background()
	repo := postgres.NewTenantRepository(testDB)

	tn := createTestTenant(t, 0, 1<<30)

	const workers = 10
	const delta = int64(1 << 20)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.AdjustQuota(ctx, tn.ID, delta, tenant.DirectionIncrease)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := repo.GetByID(ctx, tn.ID)
	require.NoError(t, err)
	require.NotNil(t, got.UsedQuota)
	assert.Equal(t, int64(workers)*delta, *got.UsedQuota)

	// Releasing more than is used clamps at zero instead of going negative.
	used, err := repo.AdjustQuota(ctx, tn.ID, 2*int64(workers)*delta, tenant.DirectionDecrease)
	require.NoError(t, err)
	assert.Equal(t, int64(0), used)
}
