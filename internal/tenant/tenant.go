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

// Package tenant owns tenant identity: API-key resolution, registration
// gated by single-use tokens, and the byte-quota ledger.
package tenant

import (
	"errors"
	"time"
)

// Domain errors
var (
	ErrTenantNotFound       = errors.New("tenant not found")
	ErrTenantExists         = errors.New("tenant name or slug already exists")
	ErrAPIKeyCollision      = errors.New("generated api key already exists")
	ErrNoActiveProvisioning = errors.New("no active storage provisioning record")
	ErrQuotaInvalid         = errors.New("tenant quota fields are unset")
	ErrQuotaExceeded        = errors.New("tenant quota exceeded")
	ErrNegativeDelta        = errors.New("quota delta must not be negative")
	ErrRegTokenNotFound     = errors.New("registration token not found")
	ErrRegTokenExpired      = errors.New("registration token expired")
	ErrRegTokenConsumed     = errors.New("registration token already consumed")
)

// ValidityWindow is how long a freshly registered tenant stays valid.
const ValidityWindow = 365 * 24 * time.Hour

// StorageCredentials are the object-store credentials a tenant inherits from
// the provisioning record active at registration time.
type StorageCredentials struct {
	AccessKey string `json:"-"`
	SecretKey string `json:"-"`
	Bucket    string `json:"bucket"`
	Region    string `json:"region"`
}

// Tenant represents a registered company with its own storage namespace.
// UsedQuota and TotalQuota are soft-tracked counters maintained from
// client-reported deltas, not derived by scanning storage.
type Tenant struct {
	ID         string             `json:"id"`
	Name       string             `json:"name"`
	Slug       string             `json:"slug"`
	APIKey     string             `json:"-"`
	Storage    StorageCredentials `json:"storage"`
	TotalQuota *int64             `json:"total_usage_quota"`
	UsedQuota  *int64             `json:"used_quota"`
	StartDate  time.Time          `json:"start_date"`
	EndDate    time.Time          `json:"end_date"`
	BaseURL    string             `json:"base_url"`
	CreatedAt  time.Time          `json:"created_at"`
	UpdatedAt  time.Time          `json:"updated_at"`
}

// ProvisioningRecord is a pooled set of storage-backend credentials. Exactly
// one record must be active when a tenant registers; the core only reads it.
type ProvisioningRecord struct {
	ID           string
	Bucket       string
	Region       string
	AccessKey    string
	SecretKey    string
	TotalQuota   int64
	DefaultQuota int64
	Active       bool
	CreatedAt    time.Time
}

// RegistrationToken gates new-tenant onboarding. A token is consumable while
// it is unexpired and unbound; binding a tenant permanently invalidates it.
// Consumed tokens are retained as an audit trail.
type RegistrationToken struct {
	ID        string
	TokenHash string
	TenantID  *string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Consumed reports whether the token has already minted a tenant.
func (t *RegistrationToken) Consumed() bool {
	return t.TenantID != nil
}

// Expired reports whether the token is past its validity window.
func (t *RegistrationToken) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// Direction selects whether a quota adjustment adds or releases bytes. The
// values follow the file transaction type convention: 1 records an upload,
// 2 a deletion.
type Direction int

const (
	DirectionIncrease Direction = 1
	DirectionDecrease Direction = 2
)

func (d Direction) String() string {
	if d == DirectionDecrease {
		return "decrease"
	}
	return "increase"
}
