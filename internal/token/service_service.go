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

package token

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// RoleClient is the only role the admin API issues for machine clients.
const RoleClient = "client"

// ServiceTokenLifetime is the default validity window of a service token.
const ServiceTokenLifetime = 15 * time.Minute

// ServiceClaims is the claim set carried by machine client bearer tokens.
type ServiceClaims struct {
	Subject   string
	Role      string
	Scope     string
	ExpiresAt int64
}

// SubjectDirectory answers whether a client id belongs to a registered admin
// client. Implemented by the admin client repository.
type SubjectDirectory interface {
	SubjectExists(ctx context.Context, clientID string) (bool, error)
}

// ServiceTokenService issues and validates bearer tokens for machine clients
// of the admin API, signed with a shared symmetric secret. It is a trust
// domain separate from UserTokenService: different key material, different
// claim shape, and a subject population of registered clients rather than
// human users.
type ServiceTokenService struct {
	codec    *Codec
	keys     KeyProvider
	subjects SubjectDirectory
	lifetime time.Duration
	now      func() time.Time
}

// NewServiceTokenService creates a service token service.
func NewServiceTokenService(keys KeyProvider, subjects SubjectDirectory) *ServiceTokenService {
	return &ServiceTokenService{
		codec:    NewCodec(jwt.SigningMethodHS256),
		keys:     keys,
		subjects: subjects,
		lifetime: ServiceTokenLifetime,
		now:      time.Now,
	}
}

// Issue signs a token for an authenticated admin client.
func (s *ServiceTokenService) Issue(ctx context.Context, clientID, scope string) (string, error) {
	key, err := s.keys.SigningKey()
	if err != nil {
		return "", err
	}

	claims := Claims{
		"sub":   clientID,
		"role":  RoleClient,
		"scope": scope,
		"exp":   s.now().Add(s.lifetime).Unix(),
	}

	return s.codec.Sign(claims, key)
}

// Validate decodes a service token and enforces the role, subject, and
// expiry policy of the admin trust domain.
func (s *ServiceTokenService) Validate(ctx context.Context, tokenString string) (*ServiceClaims, error) {
	key, err := s.keys.VerificationKey()
	if err != nil {
		return nil, err
	}

	claims, err := s.codec.Verify(tokenString, key)
	if err != nil {
		return nil, err
	}

	exp, ok := claimInt64(claims, "exp")
	if !ok {
		return nil, ErrMissingExpiry
	}
	if exp < s.now().Unix() {
		return nil, ErrTokenExpired
	}

	role, _ := claims["role"].(string)
	if role != RoleClient {
		return nil, ErrInvalidRole
	}

	sub, _ := claims["sub"].(string)
	known, err := s.subjects.SubjectExists(ctx, sub)
	if err != nil {
		return nil, fmt.Errorf("failed to look up token subject: %w", err)
	}
	if !known {
		return nil, ErrUnknownSubject
	}

	scope, _ := claims["scope"].(string)

	return &ServiceClaims{
		Subject:   sub,
		Role:      role,
		Scope:     scope,
		ExpiresAt: exp,
	}, nil
}
