package minio

import (
	"context"
	"os"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/lexis/blobstore"
)

// TestStore_Integration requires a running MinIO instance.
// Skip if not available.
func TestStore_Integration(t *testing.T) {
	endpoint := os.Getenv("LEXIS_MINIO_ENDPOINT")
	if endpoint == "" {
		endpoint = "localhost:9000"
	}
	bucket := "test-lexis"

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4("minioadmin", "minioadmin", ""),
		Secure: false,
	})
	if err != nil {
		t.Skipf("MinIO client creation failed: %v", err)
	}

	ctx := context.Background()
	if _, err := client.ListBuckets(ctx); err != nil {
		t.Skipf("MinIO not available: %v", err)
	}

	exists, err := client.BucketExists(ctx, bucket)
	require.NoError(t, err)
	if !exists {
		require.NoError(t, client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}))
	}

	store := NewStore(client, bucket, "it/")

	content := []byte(`{"type": "term", "text": "lucene"}`)
	require.NoError(t, store.Put(ctx, "queries/q.json", content))
	t.Cleanup(func() { _ = store.Delete(ctx, "queries/q.json") })

	data, err := blobstore.ReadAll(ctx, store, "queries/q.json")
	require.NoError(t, err)
	assert.Equal(t, content, data)

	names, err := store.List(ctx, "queries/")
	require.NoError(t, err)
	assert.Contains(t, names, "queries/q.json")

	require.NoError(t, store.Delete(ctx, "queries/q.json"))
	_, err = store.Open(ctx, "queries/q.json")
	assert.ErrorIs(t, err, blobstore.ErrNotFound)
	assert.NoError(t, store.Delete(ctx, "queries/q.json"))
}
