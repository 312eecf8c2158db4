package docstore

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupGormStore(t *testing.T) *GormStore {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&documentRow{}))
	return NewGormStore(db, NewLocalNotifier(), nil)
}

func waitForSnapshot(t *testing.T, ch <-chan json.RawMessage) json.RawMessage {
	t.Helper()
	select {
	case items := <-ch:
		return items
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
		return nil
	}
}

func TestGormStore(t *testing.T) {
	ctx := context.Background()

	t.Run("missing document loads as nil", func(t *testing.T) {
		store := setupGormStore(t)
		items, err := store.Load(ctx, "vehicles")
		require.NoError(t, err)
		assert.Nil(t, items)
	})

	t.Run("update creates and rewrites the document", func(t *testing.T) {
		store := setupGormStore(t)

		err := store.Update(ctx, "vehicles", "tenant-a", func(current json.RawMessage) (json.RawMessage, error) {
			assert.Nil(t, current)
			return json.RawMessage(`[{"number":"T-1"}]`), nil
		})
		require.NoError(t, err)

		err = store.Update(ctx, "vehicles", "tenant-a", func(current json.RawMessage) (json.RawMessage, error) {
			assert.JSONEq(t, `[{"number":"T-1"}]`, string(current))
			return json.RawMessage(`[{"number":"T-1"},{"number":"T-2"}]`), nil
		})
		require.NoError(t, err)

		items, err := store.Load(ctx, "vehicles")
		require.NoError(t, err)
		assert.JSONEq(t, `[{"number":"T-1"},{"number":"T-2"}]`, string(items))
	})

	t.Run("update error aborts without writing", func(t *testing.T) {
		store := setupGormStore(t)
		require.NoError(t, store.Update(ctx, "vehicles", "tenant-a", func(json.RawMessage) (json.RawMessage, error) {
			return json.RawMessage(`[1]`), nil
		}))

		err := store.Update(ctx, "vehicles", "tenant-a", func(json.RawMessage) (json.RawMessage, error) {
			return nil, assert.AnError
		})
		require.Error(t, err)

		items, err := store.Load(ctx, "vehicles")
		require.NoError(t, err)
		assert.JSONEq(t, `[1]`, string(items))
	})

	t.Run("collections are isolated from each other", func(t *testing.T) {
		store := setupGormStore(t)
		require.NoError(t, store.Update(ctx, "vehicles", "t", func(json.RawMessage) (json.RawMessage, error) {
			return json.RawMessage(`["v"]`), nil
		}))
		require.NoError(t, store.Update(ctx, "clients", "t", func(json.RawMessage) (json.RawMessage, error) {
			return json.RawMessage(`["c"]`), nil
		}))

		items, err := store.Load(ctx, "vehicles")
		require.NoError(t, err)
		assert.JSONEq(t, `["v"]`, string(items))
	})

	t.Run("watch delivers the initial snapshot then every write", func(t *testing.T) {
		store := setupGormStore(t)
		require.NoError(t, store.Update(ctx, "vehicles", "t", func(json.RawMessage) (json.RawMessage, error) {
			return json.RawMessage(`["v1"]`), nil
		}))

		watchCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		ch, err := store.Watch(watchCtx, "vehicles")
		require.NoError(t, err)

		assert.JSONEq(t, `["v1"]`, string(waitForSnapshot(t, ch)))

		require.NoError(t, store.Update(ctx, "vehicles", "t", func(json.RawMessage) (json.RawMessage, error) {
			return json.RawMessage(`["v1","v2"]`), nil
		}))
		assert.JSONEq(t, `["v1","v2"]`, string(waitForSnapshot(t, ch)))
	})

	t.Run("cancelling the watch closes the channel", func(t *testing.T) {
		store := setupGormStore(t)
		watchCtx, cancel := context.WithCancel(ctx)
		ch, err := store.Watch(watchCtx, "vehicles")
		require.NoError(t, err)
		waitForSnapshot(t, ch)

		cancel()
		select {
		case _, open := <-ch:
			assert.False(t, open)
		case <-time.After(2 * time.Second):
			t.Fatal("channel did not close after cancel")
		}
	})
}

func TestMemoryStoreCoalescesDeliveries(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	ch, err := store.Watch(watchCtx, "vehicles")
	require.NoError(t, err)

	// Snapshot for the empty collection is delivered first.
	assert.Nil(t, waitForSnapshot(t, ch))

	// Two writes without draining: the subscriber sees only the latest.
	require.NoError(t, store.Update(ctx, "vehicles", "t", func(json.RawMessage) (json.RawMessage, error) {
		return json.RawMessage(`["stale"]`), nil
	}))
	require.NoError(t, store.Update(ctx, "vehicles", "t", func(json.RawMessage) (json.RawMessage, error) {
		return json.RawMessage(`["fresh"]`), nil
	}))

	assert.JSONEq(t, `["fresh"]`, string(waitForSnapshot(t, ch)))
}
