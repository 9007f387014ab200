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

// Package token implements the two bearer token schemes of the gateway: an
// asymmetric scheme for human users and a symmetric scheme for machine
// clients of the admin API. Both are built on a shared Codec that signs and
// verifies claim sets without interpreting them; expiry and subject policy
// belong to the services wrapping the codec.
package token

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is an unordered claim set carried inside a signed token.
type Claims = jwt.MapClaims

// Codec signs and verifies claim sets with a fixed signing algorithm. It
// performs no semantic validation of claim contents, which lets the user and
// service token schemes apply their own independent expiry policies.
type Codec struct {
	method jwt.SigningMethod
}

// NewCodec creates a codec bound to a signing algorithm.
func NewCodec(method jwt.SigningMethod) *Codec {
	return &Codec{method: method}
}

// Sign produces a signed token over the claim set.
func (c *Codec) Sign(claims Claims, key any) (string, error) {
	signed, err := jwt.NewWithClaims(c.method, claims).SignedString(key)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify checks the token's signature and algorithm and returns its claims.
// Claim contents are returned as-is; an expired token with a valid signature
// verifies successfully here.
func (c *Codec) Verify(tokenString string, key any) (Claims, error) {
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())

	claims := Claims{}
	_, err := parser.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != c.method.Alg() {
			return nil, ErrAlgorithmMismatch
		}
		return key, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrAlgorithmMismatch):
			return nil, ErrAlgorithmMismatch
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, ErrSignatureInvalid
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, ErrTokenMalformed
		default:
			// Unverifiable tokens (bad key material, unparsable segments)
			// collapse into the malformed bucket; callers never learn which
			// part of verification failed.
			return nil, ErrTokenMalformed
		}
	}

	return claims, nil
}
