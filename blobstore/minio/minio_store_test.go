package minio

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/hupe1980/dframe/blobstore"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsNotFound(t *testing.T) {
	assert.True(t, isNotFound(minio.ErrorResponse{Code: "NoSuchKey"}))
	assert.True(t, isNotFound(minio.ErrorResponse{Code: "NotFound"}))
	assert.False(t, isNotFound(minio.ErrorResponse{Code: "AccessDenied"}))
	assert.False(t, isNotFound(errors.New("network")))
}

func TestStore_Key(t *testing.T) {
	s := NewStore(nil, "b", "frames/")
	assert.Equal(t, "frames/frame-1/slice-000000", s.key("frame-1/slice-000000"))
	assert.Equal(t, "slice", NewStore(nil, "b", "").key("slice"))
}

// TestMinioStore_Integration needs a MinIO server; set DFRAME_MINIO_ENDPOINT
// (e.g. localhost:9000) to run it.
func TestMinioStore_Integration(t *testing.T) {
	endpoint := os.Getenv("DFRAME_MINIO_ENDPOINT")
	if endpoint == "" {
		t.Skip("DFRAME_MINIO_ENDPOINT not set")
	}
	bucket := "test-dframe"

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4("minioadmin", "minioadmin", ""),
		Secure: false,
	})
	require.NoError(t, err)

	ctx := context.Background()
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		t.Skipf("MinIO not available: %v", err)
	}
	if !exists {
		require.NoError(t, client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}))
	}

	store := NewStore(client, bucket, "test-prefix/")

	data := []byte("hello minio page")
	require.NoError(t, store.Put(ctx, "frame-1/slice-000000", data))

	blob, err := store.Open(ctx, "frame-1/slice-000000")
	require.NoError(t, err)
	require.Equal(t, int64(len(data)), blob.Size())

	got, err := blobstore.ReadAll(ctx, blob)
	require.NoError(t, err)
	assert.Equal(t, data, got)

	part, err := blobstore.ReadRange(ctx, blob, 6, 5)
	require.NoError(t, err)
	assert.Equal(t, "minio", string(part))
	require.NoError(t, blob.Close())

	names, err := store.List(ctx, "frame-1/")
	require.NoError(t, err)
	assert.Equal(t, []string{"frame-1/slice-000000"}, names)

	require.NoError(t, blobstore.DeletePrefix(ctx, store, "frame-1/"))
	_, err = store.Open(ctx, "frame-1/slice-000000")
	assert.ErrorIs(t, err, blobstore.ErrNotFound)
}
