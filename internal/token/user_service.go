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
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// UserTokenLifetime is how long a user bearer token stays valid.
const UserTokenLifetime = 600 * time.Second

// UserClaims is the claim set carried by user bearer tokens. Expiry lives in
// a custom "expires" claim, an absolute unix timestamp, rather than the
// registered "exp" claim used by the service token scheme.
type UserClaims struct {
	UserID  string
	Expires int64
}

// UserTokenService issues and validates short-lived bearer tokens for human
// users, signed with an asymmetric key pair.
type UserTokenService struct {
	codec    *Codec
	keys     KeyProvider
	lifetime time.Duration
	now      func() time.Time
}

// NewUserTokenService creates a user token service over the given key pair.
func NewUserTokenService(keys KeyProvider) *UserTokenService {
	return &UserTokenService{
		codec:    NewCodec(jwt.SigningMethodRS256),
		keys:     keys,
		lifetime: UserTokenLifetime,
		now:      time.Now,
	}
}

// Issue signs a token for the user. Unavailable key material returns
// ErrKeyUnavailable and no token.
func (s *UserTokenService) Issue(ctx context.Context, userID string) (string, error) {
	key, err := s.keys.SigningKey()
	if err != nil {
		return "", err
	}

	claims := Claims{
		"user_id": userID,
		"expires": s.now().Add(s.lifetime).Unix(),
	}

	return s.codec.Sign(claims, key)
}

// Validate decodes a user token. A token without an expiry claim is never
// trusted, even if its signature verifies.
func (s *UserTokenService) Validate(ctx context.Context, tokenString string) (*UserClaims, error) {
	key, err := s.keys.VerificationKey()
	if err != nil {
		return nil, err
	}

	claims, err := s.codec.Verify(tokenString, key)
	if err != nil {
		return nil, err
	}

	expires, ok := claimInt64(claims, "expires")
	if !ok {
		return nil, ErrMissingExpiry
	}
	if expires < s.now().Unix() {
		return nil, ErrTokenExpired
	}

	userID, _ := claims["user_id"].(string)

	return &UserClaims{UserID: userID, Expires: expires}, nil
}

// claimInt64 reads a numeric claim. JSON round-tripping turns numbers into
// float64, so both representations are accepted.
func claimInt64(claims Claims, key string) (int64, bool) {
	switch v := claims[key].(type) {
	case float64:
		return int64(v), true
	case int64:
		return v, true
	default:
		return 0, false
	}
}
