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

package storage

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/shelfgate/shelfgate/internal/tenant"
)

// MinioProvider builds S3-compatible object stores from tenant storage
// credentials. Clients are cached per access key; the underlying HTTP
// transport is safe for concurrent use.
type MinioProvider struct {
	endpoint string
	secure   bool

	mu      sync.Mutex
	clients map[string]*minioStore
}

// NewMinioProvider creates a provider that connects to the given
// S3-compatible endpoint (host:port, no scheme).
func NewMinioProvider(endpoint string, secure bool) *MinioProvider {
	return &MinioProvider{
		endpoint: endpoint,
		secure:   secure,
		clients:  map[string]*minioStore{},
	}
}

// StoreFor returns an ObjectStore authenticated with the tenant's own
// credentials.
func (p *MinioProvider) StoreFor(creds tenant.StorageCredentials) (ObjectStore, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if store, ok := p.clients[creds.AccessKey]; ok {
		return store, nil
	}

	client, err := minio.New(p.endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(creds.AccessKey, creds.SecretKey, ""),
		Secure: p.secure,
		Region: creds.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	store := &minioStore{client: client}
	p.clients[creds.AccessKey] = store
	return store, nil
}

type minioStore struct {
	client *minio.Client
}

func (s *minioStore) Exists(ctx context.Context, bucket, key string) (bool, error) {
	_, err := s.client.StatObject(ctx, bucket, key, minio.StatObjectOptions{})
	if err != nil {
		resp := minio.ToErrorResponse(err)
		if resp.Code == "NoSuchKey" || resp.Code == "NoSuchBucket" {
			return false, nil
		}
		return false, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	return true, nil
}

func (s *minioStore) PresignUpload(ctx context.Context, bucket, key, contentType string, minSize, maxSize int64, expiry time.Duration) (string, map[string]string, error) {
	policy := minio.NewPostPolicy()
	if err := policy.SetBucket(bucket); err != nil {
		return "", nil, fmt.Errorf("invalid bucket: %w", err)
	}
	if err := policy.SetKey(key); err != nil {
		return "", nil, fmt.Errorf("invalid key: %w", err)
	}
	if err := policy.SetExpires(time.Now().UTC().Add(expiry)); err != nil {
		return "", nil, fmt.Errorf("invalid expiry: %w", err)
	}
	if err := policy.SetContentType(contentType); err != nil {
		return "", nil, fmt.Errorf("invalid content type: %w", err)
	}
	if err := policy.SetContentLengthRange(minSize, maxSize); err != nil {
		return "", nil, fmt.Errorf("invalid length range: %w", err)
	}

	u, fields, err := s.client.PresignedPostPolicy(ctx, policy)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	return u.String(), fields, nil
}

func (s *minioStore) PresignDownload(ctx context.Context, bucket, key string, expiry time.Duration) (string, error) {
	u, err := s.client.PresignedGetObject(ctx, bucket, key, expiry, url.Values{})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	return u.String(), nil
}

func (s *minioStore) List(ctx context.Context, bucket, prefix string) ([]ObjectInfo, error) {
	var objects []ObjectInfo
	for obj := range s.client.ListObjects(ctx, bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUpstream, obj.Err)
		}
		objects = append(objects, ObjectInfo{Key: obj.Key, Size: obj.Size})
	}
	return objects, nil
}

func (s *minioStore) Remove(ctx context.Context, bucket string, keys []string) error {
	objectsCh := make(chan minio.ObjectInfo, len(keys))
	for _, key := range keys {
		objectsCh <- minio.ObjectInfo{Key: key}
	}
	close(objectsCh)

	for result := range s.client.RemoveObjects(ctx, bucket, objectsCh, minio.RemoveObjectsOptions{}) {
		if result.Err != nil {
			return fmt.Errorf("%w: failed to remove %s: %v", ErrUpstream, result.ObjectName, result.Err)
		}
	}
	return nil
}
