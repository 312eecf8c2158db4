package directory

import (
	"context"

	domaindir "github.com/freightflow/backend/internal/domain/directory"
	"github.com/freightflow/backend/internal/infrastructure/docstore"
	"github.com/freightflow/backend/internal/infrastructure/persistence"
	"github.com/freightflow/backend/internal/session"
	"go.uber.org/zap"
)

// Directory bundles the per-entity services behind one wiring point.
// Client writes additionally invalidate the ledger's credit-term cache
// through the hook handed to New.
type Directory struct {
	Vehicles     *Service[*domaindir.Vehicle]
	Operators    *Service[*domaindir.Operator]
	Clients      *Service[*domaindir.Client]
	Suppliers    *Service[*domaindir.Supplier]
	Warehouses   *Service[*domaindir.Warehouse]
	Users        *Service[*domaindir.User]
	BankAccounts *Service[*domaindir.BankAccount]
}

// New wires every directory service over the shared document store.
// onClientChange runs after each successful client write; pass the
// credit-term cache invalidator there.
func New(store docstore.Store, onClientChange func(), logger *zap.Logger) *Directory {
	return &Directory{
		Vehicles: NewService("vehicle", persistence.NewVehicleRepository(store, logger),
			func(v *domaindir.Vehicle) bool { return v.Status != domaindir.VehicleStatusInactive },
			nil, logger),
		Operators: NewService("operator", persistence.NewOperatorRepository(store, logger),
			func(o *domaindir.Operator) bool { return o.Active }, nil, logger),
		Clients: NewService("client", persistence.NewClientRepository(store, logger),
			func(c *domaindir.Client) bool { return c.Active }, onClientChange, logger),
		Suppliers: NewService("supplier", persistence.NewSupplierRepository(store, logger),
			func(s *domaindir.Supplier) bool { return s.Active }, nil, logger),
		Warehouses: NewService("warehouse", persistence.NewWarehouseRepository(store, logger),
			func(w *domaindir.Warehouse) bool { return w.Active }, nil, logger),
		Users: NewService("user", persistence.NewUserRepository(store, logger),
			func(u *domaindir.User) bool { return u.Active }, nil, logger),
		BankAccounts: NewService("bank_account", persistence.NewBankAccountRepository(store, logger),
			func(b *domaindir.BankAccount) bool { return b.Active }, nil, logger),
	}
}

// CreateUser hashes the plaintext password before the insert goes through
// the regular uniqueness path.
func (d *Directory) CreateUser(ctx context.Context, sess session.Context, user *domaindir.User, password string) error {
	if password != "" {
		if err := user.SetPassword(password); err != nil {
			return err
		}
	}
	return d.Users.Create(ctx, sess, user)
}

// ClientLookup adapts the client service to the ledger's credit-term
// source dependency.
func (d *Directory) ClientLookup() ClientGetter {
	return ClientGetter{clients: d.Clients}
}

// ClientGetter narrows the client service to the single read the ledger
// needs.
type ClientGetter struct {
	clients *Service[*domaindir.Client]
}

// Get returns the client with the given RFC.
func (g ClientGetter) Get(ctx context.Context, sess session.Context, rfc string) (*domaindir.Client, error) {
	return g.clients.Get(ctx, sess, rfc)
}
