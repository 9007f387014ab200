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

package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shelfgate/shelfgate/internal/admin"
)

// AdminClientRepository implements admin.ClientRepository
type AdminClientRepository struct {
	db *DB
}

// NewAdminClientRepository creates a new admin client repository
func NewAdminClientRepository(db *DB) *AdminClientRepository {
	return &AdminClientRepository{db: db}
}

// Create persists a new client; duplicate ids fail with ErrClientExists
func (r *AdminClientRepository) Create(ctx context.Context, client *admin.Client) error {
	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO admin_clients (client_id, secret_digest, created_at)
		VALUES ($1, $2, $3)
	`, client.ClientID, client.SecretDigest, client.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return admin.ErrClientExists
		}
		return fmt.Errorf("failed to insert admin client: %w", err)
	}
	return nil
}

// GetByClientID retrieves a client by id
func (r *AdminClientRepository) GetByClientID(ctx context.Context, clientID string) (*admin.Client, error) {
	var client admin.Client
	err := r.db.pool.QueryRow(ctx, `
		SELECT client_id, secret_digest, created_at
		FROM admin_clients
		WHERE client_id = $1
	`, clientID).Scan(&client.ClientID, &client.SecretDigest, &client.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, admin.ErrClientNotFound
		}
		return nil, fmt.Errorf("failed to get admin client: %w", err)
	}
	return &client, nil
}

// Exists reports whether a client id is registered
func (r *AdminClientRepository) Exists(ctx context.Context, clientID string) (bool, error) {
	var exists bool
	err := r.db.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM admin_clients WHERE client_id = $1
		)
	`, clientID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check admin client existence: %w", err)
	}
	return exists, nil
}
