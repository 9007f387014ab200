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
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shelfgate/shelfgate/internal/audit"
)

// RegistrationTokenLifetime is the validity window of an onboarding token.
const RegistrationTokenLifetime = 15 * time.Minute

// IssuedToken is the result of minting a registration token. Token is the
// raw secret handed to the operator once; only its hash is persisted.
type IssuedToken struct {
	Token     string
	URL       string
	ExpiresAt time.Time
}

// TokenManager issues single-use, time-limited registration tokens. Issuance
// is admin-gated at the transport layer; consumption happens inside
// Directory.Register through the shared repository transaction.
type TokenManager struct {
	repo        RegistrationTokenRepository
	auditLogger audit.Logger
	lifetime    time.Duration
	now         func() time.Time
}

// NewTokenManager creates a registration token manager.
func NewTokenManager(repo RegistrationTokenRepository, auditLogger audit.Logger) *TokenManager {
	return &TokenManager{
		repo:        repo,
		auditLogger: auditLogger,
		lifetime:    RegistrationTokenLifetime,
		now:         time.Now,
	}
}

// Issue mints a new unbound token and returns the one-time registration URL.
func (m *TokenManager) Issue(ctx context.Context, actorID, baseURL string) (*IssuedToken, error) {
	raw := generateRegistrationToken()

	tok := &RegistrationToken{
		ID:        uuid.Must(uuid.NewV7()).String(),
		TokenHash: hashToken(raw),
		ExpiresAt: m.now().Add(m.lifetime),
		CreatedAt: m.now(),
	}

	if err := m.repo.Create(ctx, tok); err != nil {
		return nil, fmt.Errorf("failed to persist registration token: %w", err)
	}

	m.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeRegTokenIssued,
		ActorID:  actorID,
		Resource: tok.ID,
	})

	return &IssuedToken{
		Token:     raw,
		URL:       RegistrationURL(baseURL, raw),
		ExpiresAt: tok.ExpiresAt,
	}, nil
}

// Inspect resolves a raw token and reports its consumability.
func (m *TokenManager) Inspect(ctx context.Context, raw string) (*RegistrationToken, error) {
	tok, err := m.repo.GetByHash(ctx, hashToken(raw))
	if err != nil {
		return nil, err
	}
	if tok.Consumed() {
		return tok, ErrRegTokenConsumed
	}
	if tok.Expired(m.now()) {
		return tok, ErrRegTokenExpired
	}
	return tok, nil
}

// RegistrationURL builds the one-time onboarding URL for a raw token.
func RegistrationURL(baseURL, raw string) string {
	return fmt.Sprintf("%s/companies/register?token=%s",
		strings.TrimSuffix(baseURL, "/"), url.QueryEscape(raw))
}

// generateRegistrationToken returns an unguessable URL-safe token.
func generateRegistrationToken() string {
	b := make([]byte, 32)
	rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}

// hashToken derives the at-rest form of a registration token. Raw tokens are
// never persisted.
func hashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
