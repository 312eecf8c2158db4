package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryBlobStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryBlobStore()
	key := "tenant-a/reg-1/pay-1/voucher.pdf"

	t.Run("upload then exists and get", func(t *testing.T) {
		require.NoError(t, store.Upload(ctx, key, []byte("blob"), "application/pdf"))

		exists, err := store.Exists(ctx, key)
		require.NoError(t, err)
		assert.True(t, exists)

		data, ok := store.Get(key)
		require.True(t, ok)
		assert.Equal(t, []byte("blob"), data)
	})

	t.Run("download URL carries the key", func(t *testing.T) {
		url, expiresAt, err := store.DownloadURL(ctx, key, time.Minute)
		require.NoError(t, err)
		assert.Contains(t, url, key)
		assert.True(t, expiresAt.After(time.Now()))
	})

	t.Run("download URL for a missing key fails", func(t *testing.T) {
		_, _, err := store.DownloadURL(ctx, "ghost", time.Minute)
		assert.Error(t, err)
	})

	t.Run("delete removes the blob", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, key))
		exists, err := store.Exists(ctx, key)
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("empty keys are rejected everywhere", func(t *testing.T) {
		assert.Error(t, store.Upload(ctx, "", nil, ""))
		assert.Error(t, store.Delete(ctx, ""))
		_, err := store.Exists(ctx, "")
		assert.Error(t, err)
		_, _, err = store.DownloadURL(ctx, "", 0)
		assert.Error(t, err)
	})
}
