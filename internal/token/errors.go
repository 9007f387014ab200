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

import "errors"

// Domain errors
var (
	ErrTokenMalformed    = errors.New("token is malformed")
	ErrSignatureInvalid  = errors.New("token signature is invalid")
	ErrAlgorithmMismatch = errors.New("token algorithm does not match expected algorithm")
	ErrTokenExpired      = errors.New("token expired")
	ErrMissingExpiry     = errors.New("token has no expiry claim")
	ErrInvalidRole       = errors.New("token role is not allowed")
	ErrUnknownSubject    = errors.New("token subject is not a registered client")
	ErrKeyUnavailable    = errors.New("signing key material is unavailable")
)
