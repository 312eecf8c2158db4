package directory

import (
	"context"
	"testing"

	domaindir "github.com/freightflow/backend/internal/domain/directory"
	"github.com/freightflow/backend/internal/domain/shared"
	"github.com/freightflow/backend/internal/infrastructure/docstore"
	"github.com/freightflow/backend/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSession = session.Context{
	TenantID:      "tenant-a",
	UserID:        "user-1",
	Source:        session.SourceLicense,
	Authenticated: true,
}

func newDirectory(t *testing.T, onClientChange func()) *Directory {
	t.Helper()
	return New(docstore.NewMemoryStore(), onClientChange, nil)
}

func TestServiceCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects invalid records without writing", func(t *testing.T) {
		d := newDirectory(t, nil)
		err := d.Vehicles.Create(ctx, testSession, &domaindir.Vehicle{Plates: "ABC-123"})
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "MISSING_FIELD", domainErr.Code)

		listing, err := d.Vehicles.List(ctx, testSession)
		require.NoError(t, err)
		assert.Empty(t, listing.Items)
	})

	t.Run("rejects a duplicate natural key", func(t *testing.T) {
		d := newDirectory(t, nil)
		require.NoError(t, d.Vehicles.Create(ctx, testSession, &domaindir.Vehicle{Number: "TR-102"}))

		err := d.Vehicles.Create(ctx, testSession, &domaindir.Vehicle{Number: "TR-102", Plates: "XYZ-999"})
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "ALREADY_EXISTS", domainErr.Code)
	})

	t.Run("the same key in another tenant is not a duplicate", func(t *testing.T) {
		d := newDirectory(t, nil)
		require.NoError(t, d.Vehicles.Create(ctx, testSession, &domaindir.Vehicle{Number: "TR-102"}))

		other := session.Context{TenantID: "tenant-b", Authenticated: true}
		assert.NoError(t, d.Vehicles.Create(ctx, other, &domaindir.Vehicle{Number: "TR-102"}))
	})
}

func TestServiceUpdate(t *testing.T) {
	ctx := context.Background()

	t.Run("replaces an existing record", func(t *testing.T) {
		d := newDirectory(t, nil)
		require.NoError(t, d.Operators.Create(ctx, testSession, &domaindir.Operator{
			LicenseNumber: "LIC-1", Name: "Juan", Active: true,
		}))

		require.NoError(t, d.Operators.Update(ctx, testSession, &domaindir.Operator{
			LicenseNumber: "LIC-1", Name: "Juan Pérez", Active: false,
		}))

		op, err := d.Operators.Get(ctx, testSession, "LIC-1")
		require.NoError(t, err)
		assert.Equal(t, "Juan Pérez", op.Name)
		assert.False(t, op.Active)
	})

	t.Run("refuses to update a missing record", func(t *testing.T) {
		d := newDirectory(t, nil)
		err := d.Operators.Update(ctx, testSession, &domaindir.Operator{
			LicenseNumber: "LIC-404", Name: "Nobody",
		})
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestServiceList(t *testing.T) {
	ctx := context.Background()

	t.Run("recomputes status counters on every load", func(t *testing.T) {
		d := newDirectory(t, nil)
		require.NoError(t, d.Vehicles.Create(ctx, testSession, &domaindir.Vehicle{Number: "TR-1", Status: domaindir.VehicleStatusActive}))
		require.NoError(t, d.Vehicles.Create(ctx, testSession, &domaindir.Vehicle{Number: "TR-2", Status: domaindir.VehicleStatusMaintenance}))
		require.NoError(t, d.Vehicles.Create(ctx, testSession, &domaindir.Vehicle{Number: "TR-3", Status: domaindir.VehicleStatusInactive}))

		listing, err := d.Vehicles.List(ctx, testSession)
		require.NoError(t, err)
		assert.Equal(t, Counters{Total: 3, Active: 2, Inactive: 1}, listing.Counters)

		require.NoError(t, d.Vehicles.Delete(ctx, testSession, "TR-3"))
		listing, err = d.Vehicles.List(ctx, testSession)
		require.NoError(t, err)
		assert.Equal(t, Counters{Total: 2, Active: 2}, listing.Counters)
	})

	t.Run("lists only the session tenant", func(t *testing.T) {
		d := newDirectory(t, nil)
		require.NoError(t, d.Clients.Create(ctx, testSession, &domaindir.Client{RFC: "AAA010101AAA", BusinessName: "ACME", Active: true}))
		other := session.Context{TenantID: "tenant-b", Authenticated: true}
		require.NoError(t, d.Clients.Create(ctx, other, &domaindir.Client{RFC: "BBB020202BBB", BusinessName: "Umbrella", Active: true}))

		listing, err := d.Clients.List(ctx, testSession)
		require.NoError(t, err)
		require.Len(t, listing.Items, 1)
		assert.Equal(t, "AAA010101AAA", listing.Items[0].RFC)
	})
}

func TestClientCacheInvalidation(t *testing.T) {
	ctx := context.Background()
	invalidations := 0
	d := newDirectory(t, func() { invalidations++ })

	require.NoError(t, d.Clients.Create(ctx, testSession, &domaindir.Client{
		RFC: "AAA010101AAA", BusinessName: "ACME", CreditTermDays: 45, Active: true,
	}))
	assert.Equal(t, 1, invalidations)

	client, err := d.Clients.Get(ctx, testSession, "AAA010101AAA")
	require.NoError(t, err)
	client.CreditTermDays = 60
	require.NoError(t, d.Clients.Update(ctx, testSession, client))
	assert.Equal(t, 2, invalidations)

	require.NoError(t, d.Clients.Delete(ctx, testSession, "AAA010101AAA"))
	assert.Equal(t, 3, invalidations)

	// Other entity types never touch the client hook.
	require.NoError(t, d.Vehicles.Create(ctx, testSession, &domaindir.Vehicle{Number: "TR-1"}))
	assert.Equal(t, 3, invalidations)
}

func TestCreateUser(t *testing.T) {
	ctx := context.Background()

	t.Run("hashes the password before storing", func(t *testing.T) {
		d := newDirectory(t, nil)
		user := &domaindir.User{Email: "Ana@Example.com", Name: "Ana", Role: domaindir.RoleBilling, Active: true}
		require.NoError(t, d.CreateUser(ctx, testSession, user, "s3cret-pass"))

		stored, err := d.Users.Get(ctx, testSession, "ana@example.com")
		require.NoError(t, err)
		assert.NotEqual(t, "s3cret-pass", stored.PasswordHash)
		assert.True(t, stored.CheckPassword("s3cret-pass"))
		assert.False(t, stored.CheckPassword("wrong"))
	})

	t.Run("rejects weak passwords", func(t *testing.T) {
		d := newDirectory(t, nil)
		user := &domaindir.User{Email: "ana@example.com", Name: "Ana"}
		err := d.CreateUser(ctx, testSession, user, "short")
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "WEAK_PASSWORD", domainErr.Code)
	})
}
