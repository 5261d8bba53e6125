package storage

import (
	"context"
	"net/url"
	"strings"
	"testing"

	"github.com/storefront/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestNewS3ObjectStorage_Validation(t *testing.T) {
	ctx := context.Background()

	t.Run("nil config returns error", func(t *testing.T) {
		_, err := NewS3ObjectStorage(ctx, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "configuration is required")
	})

	t.Run("missing bucket returns error", func(t *testing.T) {
		_, err := NewS3ObjectStorage(ctx, &config.StorageConfig{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bucket is required")
	})

	t.Run("half a key pair returns error", func(t *testing.T) {
		_, err := NewS3ObjectStorage(ctx, &config.StorageConfig{Bucket: "exports", AccessKeyID: "AKIA"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "must be set together")
	})

	t.Run("valid config creates storage", func(t *testing.T) {
		s, err := NewS3ObjectStorage(ctx, &config.StorageConfig{
			Bucket:          "exports",
			AccessKeyID:     "test-key",
			SecretAccessKey: "test-secret",
			Endpoint:        "localhost:9000",
			UsePathStyle:    true,
		}, WithLogger(zaptest.NewLogger(t)))
		require.NoError(t, err)
		assert.Equal(t, "exports", s.GetBucket())
	})
}

func TestS3ObjectStorage_PresignGet(t *testing.T) {
	ctx := context.Background()
	s, err := NewS3ObjectStorage(ctx, &config.StorageConfig{
		Bucket:          "exports",
		Region:          "eu-west-1",
		AccessKeyID:     "test-key",
		SecretAccessKey: "test-secret",
		Endpoint:        "http://localhost:9000",
		UsePathStyle:    true,
	})
	require.NoError(t, err)

	raw, err := s.PresignGet(ctx, "exports/store/job.csv", "orders-20260101-120000.csv", 0)
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "localhost:9000", u.Host)
	assert.True(t, strings.HasPrefix(u.Path, "/exports/exports/store/job.csv"))
	assert.Equal(t, "900", u.Query().Get("X-Amz-Expires"))
	assert.Contains(t, u.Query().Get("response-content-disposition"), "orders-20260101-120000.csv")

	_, err = s.PresignGet(ctx, "", "", 0)
	assert.Error(t, err)
}

func TestS3ObjectStorage_ValidationOnly(t *testing.T) {
	ctx := context.Background()
	s, err := NewS3ObjectStorage(ctx, &config.StorageConfig{
		Bucket:          "exports",
		AccessKeyID:     "k",
		SecretAccessKey: "s",
		Endpoint:        "http://localhost:9000",
	})
	require.NoError(t, err)

	assert.Error(t, s.Put(ctx, "", strings.NewReader("x"), 1, "text/csv"))
	assert.Error(t, s.Delete(ctx, ""))
}

func TestMemoryObjectStorage(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryObjectStorage("http://files.test/")

	_, err := s.PresignGet(ctx, "missing.csv", "", 0)
	assert.Error(t, err)

	require.NoError(t, s.Put(ctx, "exports/a/b.csv", strings.NewReader("id\n1\n"), -1, "text/csv"))
	data, ok := s.Get("exports/a/b.csv")
	require.True(t, ok)
	assert.Equal(t, "id\n1\n", string(data))

	raw, err := s.PresignGet(ctx, "exports/a/b.csv", "b.csv", 0)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(raw, "http://files.test/exports/a/b.csv?"))
	assert.Contains(t, raw, "filename=b.csv")

	require.NoError(t, s.Delete(ctx, "exports/a/b.csv"))
	_, ok = s.Get("exports/a/b.csv")
	assert.False(t, ok)
}
