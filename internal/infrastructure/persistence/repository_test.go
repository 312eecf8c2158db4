package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/freightflow/backend/internal/domain/directory"
	"github.com/freightflow/backend/internal/domain/shared"
	"github.com/freightflow/backend/internal/infrastructure/docstore"
	"github.com/freightflow/backend/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	tenantA = session.Context{TenantID: "tenant-a"}
	tenantB = session.Context{TenantID: "tenant-b"}
)

func setupVehicleRepo(t *testing.T) *Repository[*directory.Vehicle] {
	t.Helper()
	return NewVehicleRepository(docstore.NewMemoryStore(), nil)
}

func TestRepositorySaveAndGet(t *testing.T) {
	ctx := context.Background()

	t.Run("round-trips an entity", func(t *testing.T) {
		repo := setupVehicleRepo(t)
		require.NoError(t, repo.Save(ctx, tenantA, &directory.Vehicle{Number: "T-1", Brand: "Kenworth"}))

		got, err := repo.Get(ctx, tenantA, "T-1")
		require.NoError(t, err)
		assert.Equal(t, "Kenworth", got.Brand)
		assert.Equal(t, "tenant-a", got.TenantID)
		assert.False(t, got.UpdatedAt.IsZero())
	})

	t.Run("save replaces by natural key instead of appending", func(t *testing.T) {
		repo := setupVehicleRepo(t)
		require.NoError(t, repo.Save(ctx, tenantA, &directory.Vehicle{Number: "T-1", Brand: "Kenworth"}))
		require.NoError(t, repo.Save(ctx, tenantA, &directory.Vehicle{Number: "T-1", Brand: "Freightliner"}))

		all, err := repo.GetAll(ctx, tenantA)
		require.NoError(t, err)
		require.Len(t, all, 1)
		assert.Equal(t, "Freightliner", all[0].Brand)
	})

	t.Run("update preserves the original tenant id", func(t *testing.T) {
		repo := setupVehicleRepo(t)
		require.NoError(t, repo.Save(ctx, tenantA, &directory.Vehicle{Number: "T-1"}))

		// A caller from another tenant updating the same key must not
		// steal the record.
		require.NoError(t, repo.Save(ctx, tenantB, &directory.Vehicle{Number: "T-1", Brand: "Volvo"}))

		all, err := repo.GetAll(ctx, tenantA)
		require.NoError(t, err)
		require.Len(t, all, 1)
		assert.Equal(t, "tenant-a", all[0].TenantID)
		assert.Equal(t, "Volvo", all[0].Brand)
	})

	t.Run("rejects entities without a natural key", func(t *testing.T) {
		repo := setupVehicleRepo(t)
		err := repo.Save(ctx, tenantA, &directory.Vehicle{Brand: "Kenworth"})
		require.Error(t, err)
	})

	t.Run("get reports not found", func(t *testing.T) {
		repo := setupVehicleRepo(t)
		_, err := repo.Get(ctx, tenantA, "T-404")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestRepositoryTenantIsolation(t *testing.T) {
	ctx := context.Background()

	t.Run("getAll never returns another tenant's records", func(t *testing.T) {
		repo := setupVehicleRepo(t)
		require.NoError(t, repo.Save(ctx, tenantA, &directory.Vehicle{Number: "A-1"}))
		require.NoError(t, repo.Save(ctx, tenantB, &directory.Vehicle{Number: "B-1"}))
		require.NoError(t, repo.Save(ctx, tenantB, &directory.Vehicle{Number: "B-2"}))

		forA, err := repo.GetAll(ctx, tenantA)
		require.NoError(t, err)
		require.Len(t, forA, 1)
		for _, v := range forA {
			assert.Equal(t, "tenant-a", v.TenantID)
		}

		forB, err := repo.GetAll(ctx, tenantB)
		require.NoError(t, err)
		assert.Len(t, forB, 2)
	})

	t.Run("get does not cross tenants", func(t *testing.T) {
		repo := setupVehicleRepo(t)
		require.NoError(t, repo.Save(ctx, tenantB, &directory.Vehicle{Number: "B-1"}))
		_, err := repo.Get(ctx, tenantA, "B-1")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("deleteAll leaves other tenants untouched", func(t *testing.T) {
		repo := setupVehicleRepo(t)
		require.NoError(t, repo.Save(ctx, tenantA, &directory.Vehicle{Number: "A-1"}))
		require.NoError(t, repo.Save(ctx, tenantB, &directory.Vehicle{Number: "B-1"}))

		require.NoError(t, repo.DeleteAll(ctx, tenantA))

		forA, err := repo.GetAll(ctx, tenantA)
		require.NoError(t, err)
		assert.Empty(t, forA)

		forB, err := repo.GetAll(ctx, tenantB)
		require.NoError(t, err)
		assert.Len(t, forB, 1)
	})
}

func TestRepositoryDelete(t *testing.T) {
	ctx := context.Background()

	t.Run("removes only the keyed record", func(t *testing.T) {
		repo := setupVehicleRepo(t)
		require.NoError(t, repo.Save(ctx, tenantA, &directory.Vehicle{Number: "T-1"}))
		require.NoError(t, repo.Save(ctx, tenantA, &directory.Vehicle{Number: "T-2"}))

		require.NoError(t, repo.Delete(ctx, tenantA, "T-1"))

		all, err := repo.GetAll(ctx, tenantA)
		require.NoError(t, err)
		require.Len(t, all, 1)
		assert.Equal(t, "T-2", all[0].Number)
	})

	t.Run("cannot delete across tenants", func(t *testing.T) {
		repo := setupVehicleRepo(t)
		require.NoError(t, repo.Save(ctx, tenantB, &directory.Vehicle{Number: "B-1"}))

		err := repo.Delete(ctx, tenantA, "B-1")
		assert.ErrorIs(t, err, shared.ErrNotFound)

		forB, err := repo.GetAll(ctx, tenantB)
		require.NoError(t, err)
		assert.Len(t, forB, 1)
	})
}

func TestRepositoryWatch(t *testing.T) {
	ctx := context.Background()

	t.Run("delivers tenant-filtered snapshots", func(t *testing.T) {
		repo := setupVehicleRepo(t)
		require.NoError(t, repo.Save(ctx, tenantA, &directory.Vehicle{Number: "A-1"}))
		require.NoError(t, repo.Save(ctx, tenantB, &directory.Vehicle{Number: "B-1"}))

		watchCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		ch, err := repo.Watch(watchCtx, tenantA)
		require.NoError(t, err)

		select {
		case snapshot := <-ch:
			require.Len(t, snapshot, 1)
			assert.Equal(t, "A-1", snapshot[0].Number)
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for initial snapshot")
		}

		require.NoError(t, repo.Save(ctx, tenantA, &directory.Vehicle{Number: "A-2"}))
		deadline := time.After(2 * time.Second)
		for {
			select {
			case snapshot := <-ch:
				if len(snapshot) == 2 {
					return
				}
			case <-deadline:
				t.Fatal("timed out waiting for updated snapshot")
			}
		}
	})
}
