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
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockSubjects struct {
	mock.Mock
}

func (m *mockSubjects) SubjectExists(ctx context.Context, clientID string) (bool, error) {
	args := m.Called(ctx, clientID)
	return args.Bool(0), args.Error(1)
}

func TestServiceTokenService_IssueAndValidate(t *testing.T) {
	subjects := new(mockSubjects)
	svc := NewServiceTokenService(SymmetricKey("test-secret"), subjects)
	ctx := context.Background()

	subjects.On("SubjectExists", ctx, "client-1").Return(true, nil)

	signed, err := svc.Issue(ctx, "client-1", "register:company")
	require.NoError(t, err)

	claims, err := svc.Validate(ctx, signed)
	require.NoError(t, err)
	assert.Equal(t, "client-1", claims.Subject)
	assert.Equal(t, RoleClient, claims.Role)
	assert.Equal(t, "register:company", claims.Scope)
	subjects.AssertExpectations(t)
}

// TestPurpose: Validates that service tokens without the client role are
// rejected even when the signature and expiry are valid.
// Scope: Unit Test
// Security: Role separation between token trust domains
// Expected: ErrInvalidRole.
// Test Case ID: STK-01
func TestServiceTokenService_WrongRole(t *testing.T) {
	subjects := new(mockSubjects)
	svc := NewServiceTokenService(SymmetricKey("test-secret"), subjects)
	ctx := context.Background()

	signed, err := NewCodec(jwt.SigningMethodHS256).Sign(Claims{
		"sub":  "client-1",
		"role": "admin",
		"exp":  time.Now().Add(time.Minute).Unix(),
	}, []byte("test-secret"))
	require.NoError(t, err)

	_, err = svc.Validate(ctx, signed)
	assert.ErrorIs(t, err, ErrInvalidRole)
}

// TestPurpose: Validates that tokens for unregistered clients are rejected.
// Scope: Unit Test
// Security: Subject population check against the client directory
// Expected: ErrUnknownSubject.
// Test Case ID: STK-02
func TestServiceTokenService_UnknownSubject(t *testing.T) {
	subjects := new(mockSubjects)
	svc := NewServiceTokenService(SymmetricKey("test-secret"), subjects)
	ctx := context.Background()

	subjects.On("SubjectExists", ctx, "ghost").Return(false, nil)

	signed, err := NewCodec(jwt.SigningMethodHS256).Sign(Claims{
		"sub":  "ghost",
		"role": RoleClient,
		"exp":  time.Now().Add(time.Minute).Unix(),
	}, []byte("test-secret"))
	require.NoError(t, err)

	_, err = svc.Validate(ctx, signed)
	assert.ErrorIs(t, err, ErrUnknownSubject)
}

func TestServiceTokenService_Expired(t *testing.T) {
	subjects := new(mockSubjects)
	svc := NewServiceTokenService(SymmetricKey("test-secret"), subjects)
	ctx := context.Background()

	base := time.Now()
	svc.now = func() time.Time { return base }

	signed, err := svc.Issue(ctx, "client-1", "")
	require.NoError(t, err)

	svc.now = func() time.Time { return base.Add(16 * time.Minute) }
	_, err = svc.Validate(ctx, signed)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestServiceTokenService_UserTokenRejected(t *testing.T) {
	// A user token presented to the admin validator must fail on the
	// algorithm boundary; the two schemes are not interchangeable.
	userSvc, _ := newUserService(t)
	ctx := context.Background()

	userToken, err := userSvc.Issue(ctx, "user-42")
	require.NoError(t, err)

	subjects := new(mockSubjects)
	svc := NewServiceTokenService(SymmetricKey("test-secret"), subjects)

	_, err = svc.Validate(ctx, userToken)
	assert.ErrorIs(t, err, ErrAlgorithmMismatch)
}
