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

	"github.com/shelfgate/shelfgate/internal/audit"
)

// Ledger tracks bytes consumed against a tenant's storage budget. All
// adjustments go through the repository as a single server-side update
// expression, so concurrent uploads against one tenant serialize in the
// database instead of racing read-modify-write cycles here.
type Ledger struct {
	repo        Repository
	auditLogger audit.Logger
}

// NewLedger creates a quota ledger.
func NewLedger(repo Repository, auditLogger audit.Logger) *Ledger {
	return &Ledger{repo: repo, auditLogger: auditLogger}
}

// Adjust applies a byte delta to the tenant's used quota. Increases add the
// delta; decreases subtract it, clamped so the counter never goes below
// zero. Returns the new used quota.
func (l *Ledger) Adjust(ctx context.Context, t *Tenant, delta int64, direction Direction) (int64, error) {
	if delta < 0 {
		return 0, ErrNegativeDelta
	}
	if direction != DirectionIncrease && direction != DirectionDecrease {
		return 0, ErrQuotaInvalid
	}

	used, err := l.repo.AdjustQuota(ctx, t.ID, delta, direction)
	if err != nil {
		return 0, err
	}

	l.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeQuotaAdjusted,
		TenantID: t.ID,
		Resource: "used_quota",
		Metadata: map[string]any{
			audit.AttrDirection: direction.String(),
			audit.AttrDelta:     delta,
			"used_quota":        used,
		},
	})

	return used, nil
}

// Available reports whether the tenant still has budget left. Both quota
// fields must be set; an unset field is a data fault, never treated as
// unlimited or zero.
func (l *Ledger) Available(t *Tenant) (bool, error) {
	if t.TotalQuota == nil || t.UsedQuota == nil {
		return false, ErrQuotaInvalid
	}
	return *t.TotalQuota > *t.UsedQuota, nil
}

// Ensure fails with ErrQuotaExceeded when the tenant has no budget left.
// Grant-issuing paths call this before handing out storage capabilities.
func (l *Ledger) Ensure(t *Tenant) error {
	available, err := l.Available(t)
	if err != nil {
		return err
	}
	if !available {
		return ErrQuotaExceeded
	}
	return nil
}
