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

package admin

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shelfgate/shelfgate/internal/audit"
	"github.com/shelfgate/shelfgate/internal/secrets"
)

// Service provides admin client registration and authentication.
type Service struct {
	repo        ClientRepository
	hasher      *secrets.Hasher
	auditLogger audit.Logger
}

// NewService creates an admin client service.
func NewService(repo ClientRepository, hasher *secrets.Hasher, auditLogger audit.Logger) *Service {
	return &Service{repo: repo, hasher: hasher, auditLogger: auditLogger}
}

// RegisterClient creates a new admin client. Re-registration of an existing
// id is rejected, never merged.
func (s *Service) RegisterClient(ctx context.Context, clientID, clientSecret string) (*Client, error) {
	if clientID == "" || clientSecret == "" {
		return nil, ErrInvalidCredentials
	}

	digest, err := s.hasher.Hash(clientSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to hash client secret: %w", err)
	}

	client := &Client{
		ClientID:     clientID,
		SecretDigest: digest,
		CreatedAt:    time.Now(),
	}

	if err := s.repo.Create(ctx, client); err != nil {
		return nil, err
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeClientCreated,
		ActorID:  clientID,
		Resource: "admin_client",
	})

	return client, nil
}

// Authenticate verifies a client secret. The error is the same whether the
// client is unknown or the secret is wrong.
func (s *Service) Authenticate(ctx context.Context, clientID, clientSecret string) (*Client, error) {
	client, err := s.repo.GetByClientID(ctx, clientID)
	if err != nil {
		if errors.Is(err, ErrClientNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to load client: %w", err)
	}

	if !s.hasher.Verify(clientSecret, client.SecretDigest) {
		s.auditLogger.Log(ctx, audit.Event{
			Type:     audit.TypeTokenRejected,
			ActorID:  clientID,
			Resource: "admin_client",
			Metadata: map[string]any{audit.AttrReason: "secret_mismatch"},
		})
		return nil, ErrInvalidCredentials
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeClientAuthenticated,
		ActorID:  clientID,
		Resource: "admin_client",
	})

	return client, nil
}

// SubjectExists implements token.SubjectDirectory for the service token
// validator.
func (s *Service) SubjectExists(ctx context.Context, clientID string) (bool, error) {
	return s.repo.Exists(ctx, clientID)
}
