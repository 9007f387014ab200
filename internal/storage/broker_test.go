package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfgate/shelfgate/internal/audit"
	"github.com/shelfgate/shelfgate/internal/tenant"
)

type fakeStore struct {
	objects map[string]int64 // key -> size

	presignUploadCalls   []presignUploadCall
	presignDownloadCalls []string
	removedKeys          []string
	listErr              error
}

type presignUploadCall struct {
	key         string
	contentType string
	minSize     int64
	maxSize     int64
	expiry      time.Duration
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: map[string]int64{}}
}

func (s *fakeStore) Exists(ctx context.Context, bucket, key string) (bool, error) {
	_, ok := s.objects[key]
	return ok, nil
}

func (s *fakeStore) PresignUpload(ctx context.Context, bucket, key, contentType string, minSize, maxSize int64, expiry time.Duration) (string, map[string]string, error) {
	s.presignUploadCalls = append(s.presignUploadCalls, presignUploadCall{
		key: key, contentType: contentType, minSize: minSize, maxSize: maxSize, expiry: expiry,
	})
	return "https://s3.test/" + bucket, map[string]string{"key": key, "Content-Type": contentType}, nil
}

func (s *fakeStore) PresignDownload(ctx context.Context, bucket, key string, expiry time.Duration) (string, error) {
	s.presignDownloadCalls = append(s.presignDownloadCalls, key)
	return "https://s3.test/" + bucket + "/" + key + "?signed", nil
}

func (s *fakeStore) List(ctx context.Context, bucket, prefix string) ([]ObjectInfo, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []ObjectInfo
	for key, size := range s.objects {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			out = append(out, ObjectInfo{Key: key, Size: size})
		}
	}
	return out, nil
}

func (s *fakeStore) Remove(ctx context.Context, bucket string, keys []string) error {
	for _, key := range keys {
		delete(s.objects, key)
		s.removedKeys = append(s.removedKeys, key)
	}
	return nil
}

type staticProvider struct {
	store ObjectStore
}

func (p *staticProvider) StoreFor(creds tenant.StorageCredentials) (ObjectStore, error) {
	return p.store, nil
}

func brokerWithFake(t *testing.T) (*Broker, *fakeStore, *tenant.Tenant) {
	t.Helper()
	store := newFakeStore()
	broker := NewBroker(&staticProvider{store: store}, audit.NewSlogLogger(), 5*time.Second)
	tn := &tenant.Tenant{
		ID:   "t-1",
		Name: "Acme",
		Slug: "acme",
		Storage: tenant.StorageCredentials{
			AccessKey: "AKTEST",
			SecretKey: "secret",
			Bucket:    "shared-bucket",
			Region:    "eu-central-1",
		},
	}
	return broker, store, tn
}

func TestBroker_IssueUploadGrant(t *testing.T) {
	broker, store, tn := brokerWithFake(t)
	ctx := context.Background()

	grant, err := broker.IssueUploadGrant(ctx, tn, "reports/q3.pdf", "application/pdf", 10<<20)
	require.NoError(t, err)

	require.Len(t, store.presignUploadCalls, 1)
	call := store.presignUploadCalls[0]
	assert.Equal(t, "acme/reports/q3.pdf", call.key)
	assert.Equal(t, "application/pdf", call.contentType)
	assert.Equal(t, MinUploadSize, call.minSize)
	assert.Equal(t, int64(10<<20), call.maxSize)
	assert.Equal(t, GrantLifetime, call.expiry)

	assert.Equal(t, int64(3600), grant.ExpiresIn)
	assert.Equal(t, "acme/reports/q3.pdf", grant.Fields["key"])
	require.Len(t, grant.Conditions, 2)
	assert.Equal(t, map[string]string{"Content-Type": "application/pdf"}, grant.Conditions[0])
	assert.Equal(t, []any{"content-length-range", MinUploadSize, int64(10 << 20)}, grant.Conditions[1])
}

// TestPurpose: Validates that an upload grant is refused when an object
// already exists at the target key.
// Scope: Unit Test
// Security: Prevents silent overwrite through capability issuance
// Expected: ErrObjectExists, and no presign call reaches the store.
// Test Case ID: STO-01
func TestBroker_IssueUploadGrantConflict(t *testing.T) {
	broker, store, tn := brokerWithFake(t)
	store.objects["acme/reports/q3.pdf"] = 2048

	_, err := broker.IssueUploadGrant(context.Background(), tn, "reports/q3.pdf", "application/pdf", 10<<20)
	assert.ErrorIs(t, err, ErrObjectExists)
	assert.Empty(t, store.presignUploadCalls)
}

func TestBroker_IssueDownloadGrant(t *testing.T) {
	broker, store, tn := brokerWithFake(t)

	// No existence probe: a grant is issued even for an absent object.
	grant, err := broker.IssueDownloadGrant(context.Background(), tn, "acme/reports/missing.pdf")
	require.NoError(t, err)
	assert.Equal(t, int64(3600), grant.ExpiresIn)
	assert.Contains(t, grant.URL, "missing.pdf")
	assert.Equal(t, []string{"acme/reports/missing.pdf"}, store.presignDownloadCalls)
}

func TestBroker_DeleteAll(t *testing.T) {
	broker, store, tn := brokerWithFake(t)
	store.objects["acme/reports/a.pdf"] = 2048
	store.objects["acme/reports/b.pdf"] = 4096
	store.objects["acme/invoices/c.pdf"] = 1024

	count, err := broker.DeleteAll(context.Background(), tn, "reports")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.NotContains(t, store.objects, "acme/reports/a.pdf")
	assert.NotContains(t, store.objects, "acme/reports/b.pdf")
	assert.Contains(t, store.objects, "acme/invoices/c.pdf")
}

// TestPurpose: Validates that deleting an empty prefix is reported as an
// error instead of a no-op success.
// Scope: Unit Test
// Expected: ErrPrefixEmpty and nothing removed.
// Test Case ID: STO-02
func TestBroker_DeleteAllEmptyPrefix(t *testing.T) {
	broker, store, tn := brokerWithFake(t)
	store.objects["acme/invoices/c.pdf"] = 1024

	_, err := broker.DeleteAll(context.Background(), tn, "reports/")
	assert.ErrorIs(t, err, ErrPrefixEmpty)
	assert.Empty(t, store.removedKeys)
}

// TestPurpose: Validates that trailing-separator and bare folder names
// address the same prefix.
// Scope: Unit Test
// Expected: "reports" and "reports/" both resolve to acme/reports/.
// Test Case ID: STO-03
func TestBroker_PrefixNormalization(t *testing.T) {
	broker, store, tn := brokerWithFake(t)
	store.objects["acme/reports/a.pdf"] = 2048
	store.objects["acme/reportsold/b.pdf"] = 4096

	size, err := broker.FolderSize(context.Background(), tn, "reports")
	require.NoError(t, err)
	assert.Equal(t, int64(2048), size)

	size, err = broker.FolderSize(context.Background(), tn, "reports/")
	require.NoError(t, err)
	assert.Equal(t, int64(2048), size)
}

func TestBroker_FolderSize(t *testing.T) {
	broker, store, tn := brokerWithFake(t)
	store.objects["acme/reports/a.pdf"] = 2048
	store.objects["acme/reports/deep/b.pdf"] = 4096

	size, err := broker.FolderSize(context.Background(), tn, "reports")
	require.NoError(t, err)
	assert.Equal(t, int64(6144), size)

	size, err = broker.FolderSize(context.Background(), tn, "empty")
	require.NoError(t, err)
	assert.Equal(t, int64(0), size)
}

func TestBroker_ListFailurePropagates(t *testing.T) {
	broker, store, tn := brokerWithFake(t)
	store.listErr = ErrUpstream

	_, err := broker.FolderSize(context.Background(), tn, "reports")
	assert.ErrorIs(t, err, ErrUpstream)

	_, err = broker.DeleteAll(context.Background(), tn, "reports")
	assert.ErrorIs(t, err, ErrUpstream)
}

func TestHumanReadableSize(t *testing.T) {
	assert.Equal(t, "512.0 B", HumanReadableSize(512))
	assert.Equal(t, "1.0 KB", HumanReadableSize(1024))
	assert.Equal(t, "1.5 MB", HumanReadableSize(1<<20+512<<10))
	assert.Equal(t, "1.0 GB", HumanReadableSize(1<<30))
}
