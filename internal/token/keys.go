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
	"crypto/rsa"
	"fmt"
	"os"

	"github.com/golang-jwt/jwt/v5"
)

// KeyProvider supplies signing and verification key material. Providers own
// caching and reload policy; services never touch the filesystem directly.
type KeyProvider interface {
	// SigningKey returns the private key used to sign tokens.
	SigningKey() (any, error)

	// VerificationKey returns the key used to verify token signatures.
	VerificationKey() (any, error)
}

// FileKeyPair reads a PEM-encoded RSA key pair from disk on every call.
// Rotating the files on disk takes effect on the next issue or validate; a
// missing or unreadable file surfaces as ErrKeyUnavailable, never a panic.
type FileKeyPair struct {
	PrivateKeyPath string
	PublicKeyPath  string
}

// SigningKey loads and parses the private key file.
func (p *FileKeyPair) SigningKey() (any, error) {
	pemBytes, err := os.ReadFile(p.PrivateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrKeyUnavailable, p.PrivateKeyPath)
	}

	key, err := jwt.ParseRSAPrivateKeyFromPEM(pemBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse private key", ErrKeyUnavailable)
	}
	return key, nil
}

// VerificationKey loads and parses the public key file.
func (p *FileKeyPair) VerificationKey() (any, error) {
	pemBytes, err := os.ReadFile(p.PublicKeyPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrKeyUnavailable, p.PublicKeyPath)
	}

	key, err := jwt.ParseRSAPublicKeyFromPEM(pemBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse public key", ErrKeyUnavailable)
	}
	return key, nil
}

// StaticKeyPair holds an in-memory RSA key pair. Used in tests and wherever
// key material is provisioned outside the filesystem.
type StaticKeyPair struct {
	Private *rsa.PrivateKey
	Public  *rsa.PublicKey
}

func (p *StaticKeyPair) SigningKey() (any, error) {
	if p.Private == nil {
		return nil, ErrKeyUnavailable
	}
	return p.Private, nil
}

func (p *StaticKeyPair) VerificationKey() (any, error) {
	if p.Public == nil {
		return nil, ErrKeyUnavailable
	}
	return p.Public, nil
}

// SymmetricKey wraps a shared HMAC secret; the same bytes sign and verify.
type SymmetricKey []byte

func (k SymmetricKey) SigningKey() (any, error) {
	if len(k) == 0 {
		return nil, ErrKeyUnavailable
	}
	return []byte(k), nil
}

func (k SymmetricKey) VerificationKey() (any, error) {
	return k.SigningKey()
}
