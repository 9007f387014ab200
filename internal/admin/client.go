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

// Package admin manages the machine clients of the administrative API.
package admin

import (
	"context"
	"errors"
	"time"
)

// Domain errors
var (
	ErrClientNotFound     = errors.New("admin client not found")
	ErrClientExists       = errors.New("admin client already exists")
	ErrInvalidCredentials = errors.New("invalid client credentials")
)

// Client is a machine client of the admin API, authenticated by a shared
// secret that is only ever stored hashed.
type Client struct {
	ClientID     string
	SecretDigest string
	CreatedAt    time.Time
}

// ClientRepository defines the interface for admin client persistence.
type ClientRepository interface {
	// Create persists a new client; duplicate ids fail with ErrClientExists.
	Create(ctx context.Context, client *Client) error

	// GetByClientID retrieves a client by id.
	GetByClientID(ctx context.Context, clientID string) (*Client, error)

	// Exists reports whether a client id is registered.
	Exists(ctx context.Context, clientID string) (bool, error)
}
