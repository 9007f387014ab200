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

// Package storage brokers tenant access to the object store. It never moves
// bytes itself; it issues time-limited capabilities (presigned URLs) scoped
// to a tenant's namespace and performs the bookkeeping operations around
// them (existence probes, enumeration, bulk deletion).
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shelfgate/shelfgate/internal/audit"
	"github.com/shelfgate/shelfgate/internal/tenant"
)

// Domain errors
var (
	ErrObjectExists = errors.New("object already exists at key")
	ErrPrefixEmpty  = errors.New("prefix contains no objects")
	ErrUpstream     = errors.New("object store unavailable")
)

// GrantLifetime is how long issued capabilities stay usable.
const GrantLifetime = 3600 * time.Second

// MinUploadSize is the lower bound of every upload grant's size condition.
const MinUploadSize int64 = 1024

// ObjectInfo describes one stored object during enumeration.
type ObjectInfo struct {
	Key  string
	Size int64
}

// UploadCapability is a presigned POST grant. Conditions mirrors the policy
// embedded in the signature so callers can render it verbatim.
type UploadCapability struct {
	URL        string            `json:"url"`
	Fields     map[string]string `json:"fields"`
	Conditions []any             `json:"conditions"`
	ExpiresIn  int64             `json:"expires_in"`
}

// DownloadCapability is a presigned GET grant.
type DownloadCapability struct {
	URL       string `json:"url"`
	ExpiresIn int64  `json:"expires_in"`
}

// ObjectStore is the minimal surface the broker needs from an object-storage
// backend. Implementations own pagination and wire details.
type ObjectStore interface {
	// Exists probes a fully-qualified key.
	Exists(ctx context.Context, bucket, key string) (bool, error)

	// PresignUpload issues a POST-policy capability with an exact
	// content-type condition and a [minSize, maxSize] length condition.
	PresignUpload(ctx context.Context, bucket, key, contentType string, minSize, maxSize int64, expiry time.Duration) (string, map[string]string, error)

	// PresignDownload issues a GET capability. Absent objects are not
	// checked; they surface when the capability is used.
	PresignDownload(ctx context.Context, bucket, key string, expiry time.Duration) (string, error)

	// List enumerates all objects under a prefix, exhaustively.
	List(ctx context.Context, bucket, prefix string) ([]ObjectInfo, error)

	// Remove deletes the given keys.
	Remove(ctx context.Context, bucket string, keys []string) error
}

// StoreProvider builds an ObjectStore from a tenant's own storage
// credentials. Every tenant carries the credentials it inherited at
// registration, so clients are constructed per credential set.
type StoreProvider interface {
	StoreFor(creds tenant.StorageCredentials) (ObjectStore, error)
}

// Broker issues storage capabilities for resolved tenants.
type Broker struct {
	provider    StoreProvider
	auditLogger audit.Logger
	opTimeout   time.Duration
}

// NewBroker creates a storage access broker. opTimeout bounds every call to
// the object store.
func NewBroker(provider StoreProvider, auditLogger audit.Logger, opTimeout time.Duration) *Broker {
	if opTimeout <= 0 {
		opTimeout = 30 * time.Second
	}
	return &Broker{provider: provider, auditLogger: auditLogger, opTimeout: opTimeout}
}

// Namespace returns the storage prefix of a tenant. It is the slug fixed at
// registration, never recomputed from the display name.
func Namespace(t *tenant.Tenant) string {
	return t.Slug
}

// IssueUploadGrant issues a presigned upload capability for a path inside
// the tenant's namespace. An object already present at the key fails with
// ErrObjectExists; there is no overwrite-by-default.
func (b *Broker) IssueUploadGrant(ctx context.Context, t *tenant.Tenant, relativePath, contentType string, maxSize int64) (*UploadCapability, error) {
	store, err := b.provider.StoreFor(t.Storage)
	if err != nil {
		return nil, err
	}

	key := qualifyKey(t, relativePath)

	ctx, cancel := context.WithTimeout(ctx, b.opTimeout)
	defer cancel()

	exists, err := store.Exists(ctx, t.Storage.Bucket, key)
	if err != nil {
		return nil, fmt.Errorf("existence probe failed: %w", err)
	}
	if exists {
		return nil, fmt.Errorf("%w: %s", ErrObjectExists, key)
	}

	url, fields, err := store.PresignUpload(ctx, t.Storage.Bucket, key, contentType, MinUploadSize, maxSize, GrantLifetime)
	if err != nil {
		return nil, err
	}

	b.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeUploadGranted,
		TenantID: t.ID,
		Resource: t.Storage.Bucket,
		Metadata: map[string]any{audit.AttrObjectKey: key, "max_size": maxSize},
	})

	return &UploadCapability{
		URL:    url,
		Fields: fields,
		Conditions: []any{
			map[string]string{"Content-Type": contentType},
			[]any{"content-length-range", MinUploadSize, maxSize},
		},
		ExpiresIn: int64(GrantLifetime.Seconds()),
	}, nil
}

// IssueDownloadGrant issues a presigned download capability. The object is
// not probed; a grant for an absent object errors at use time.
func (b *Broker) IssueDownloadGrant(ctx context.Context, t *tenant.Tenant, objectKey string) (*DownloadCapability, error) {
	store, err := b.provider.StoreFor(t.Storage)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, b.opTimeout)
	defer cancel()

	url, err := store.PresignDownload(ctx, t.Storage.Bucket, objectKey, GrantLifetime)
	if err != nil {
		return nil, err
	}

	b.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeDownloadGranted,
		TenantID: t.ID,
		Resource: t.Storage.Bucket,
		Metadata: map[string]any{audit.AttrObjectKey: objectKey},
	})

	return &DownloadCapability{URL: url, ExpiresIn: int64(GrantLifetime.Seconds())}, nil
}

// DeleteAll removes every object under a tenant-scoped prefix. An empty
// prefix is an error so callers can tell "nothing to delete" apart from a
// successful deletion. Returns the number of objects removed.
func (b *Broker) DeleteAll(ctx context.Context, t *tenant.Tenant, prefixSuffix string) (int, error) {
	store, err := b.provider.StoreFor(t.Storage)
	if err != nil {
		return 0, err
	}

	prefix := Prefix(t, prefixSuffix)

	ctx, cancel := context.WithTimeout(ctx, b.opTimeout)
	defer cancel()

	objects, err := store.List(ctx, t.Storage.Bucket, prefix)
	if err != nil {
		return 0, fmt.Errorf("failed to enumerate %s: %w", prefix, err)
	}
	if len(objects) == 0 {
		return 0, fmt.Errorf("%w: %s", ErrPrefixEmpty, prefix)
	}

	keys := make([]string, len(objects))
	for i, obj := range objects {
		keys[i] = obj.Key
	}

	if err := store.Remove(ctx, t.Storage.Bucket, keys); err != nil {
		return 0, fmt.Errorf("failed to delete under %s: %w", prefix, err)
	}

	b.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeFilesDeleted,
		TenantID: t.ID,
		Resource: t.Storage.Bucket,
		Metadata: map[string]any{audit.AttrPrefix: prefix, "count": len(keys)},
	})

	return len(keys), nil
}

// FolderSize sums object sizes under a tenant-scoped prefix by exhaustive
// enumeration. It serves reconciliation and reporting; the quota ledger
// remains the authoritative counter.
func (b *Broker) FolderSize(ctx context.Context, t *tenant.Tenant, prefixSuffix string) (int64, error) {
	store, err := b.provider.StoreFor(t.Storage)
	if err != nil {
		return 0, err
	}

	prefix := Prefix(t, prefixSuffix)

	ctx, cancel := context.WithTimeout(ctx, b.opTimeout)
	defer cancel()

	objects, err := store.List(ctx, t.Storage.Bucket, prefix)
	if err != nil {
		return 0, fmt.Errorf("failed to enumerate %s: %w", prefix, err)
	}

	var total int64
	for _, obj := range objects {
		total += obj.Size
	}
	return total, nil
}

// qualifyKey joins a tenant namespace with a relative object path.
func qualifyKey(t *tenant.Tenant, relativePath string) string {
	return Namespace(t) + "/" + strings.TrimPrefix(relativePath, "/")
}

// Prefix builds a tenant-scoped prefix normalized to end with the
// separator, so "reports" and "reports/" address the same folder.
func Prefix(t *tenant.Tenant, suffix string) string {
	prefix := qualifyKey(t, suffix)
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return prefix
}

// HumanReadableSize renders a byte count for reporting output.
func HumanReadableSize(size int64) string {
	value := float64(size)
	for _, unit := range []string{"B", "KB", "MB", "GB", "TB"} {
		if value < 1024.0 {
			return fmt.Sprintf("%.1f %s", value, unit)
		}
		value /= 1024.0
	}
	return fmt.Sprintf("%.1f PB", value)
}
