package persistence

import (
	"github.com/freightflow/backend/internal/domain/directory"
	"github.com/freightflow/backend/internal/domain/ledger"
	"github.com/freightflow/backend/internal/infrastructure/docstore"
	"go.uber.org/zap"
)

// Collection names. One shared document per collection holds the item
// array for every tenant.
const (
	CollectionBillingRegisters = "billing_registers"
	CollectionReceivables      = "receivables"
	CollectionVehicles         = "vehicles"
	CollectionOperators        = "operators"
	CollectionClients          = "clients"
	CollectionSuppliers        = "suppliers"
	CollectionWarehouses       = "warehouses"
	CollectionUsers            = "users"
	CollectionBankAccounts     = "bank_accounts"
)

// NewBillingRegisterRepository builds the read-side repository for the
// billing module's invoice registers.
func NewBillingRegisterRepository(store docstore.Store, logger *zap.Logger) *Repository[*ledger.BillingRegister] {
	return NewRepository(store, CollectionBillingRegisters,
		(*ledger.BillingRegister).NaturalKey, logger)
}

// NewReceivableRepository builds the repository for payment-state records.
func NewReceivableRepository(store docstore.Store, logger *zap.Logger) *Repository[*ledger.ReceivableRecord] {
	return NewRepository(store, CollectionReceivables,
		(*ledger.ReceivableRecord).NaturalKey, logger)
}

// NewVehicleRepository builds the vehicle directory repository.
func NewVehicleRepository(store docstore.Store, logger *zap.Logger) *Repository[*directory.Vehicle] {
	return NewRepository(store, CollectionVehicles, (*directory.Vehicle).NaturalKey, logger)
}

// NewOperatorRepository builds the operator directory repository.
func NewOperatorRepository(store docstore.Store, logger *zap.Logger) *Repository[*directory.Operator] {
	return NewRepository(store, CollectionOperators, (*directory.Operator).NaturalKey, logger)
}

// NewClientRepository builds the client directory repository.
func NewClientRepository(store docstore.Store, logger *zap.Logger) *Repository[*directory.Client] {
	return NewRepository(store, CollectionClients, (*directory.Client).NaturalKey, logger)
}

// NewSupplierRepository builds the supplier directory repository.
func NewSupplierRepository(store docstore.Store, logger *zap.Logger) *Repository[*directory.Supplier] {
	return NewRepository(store, CollectionSuppliers, (*directory.Supplier).NaturalKey, logger)
}

// NewWarehouseRepository builds the warehouse directory repository.
func NewWarehouseRepository(store docstore.Store, logger *zap.Logger) *Repository[*directory.Warehouse] {
	return NewRepository(store, CollectionWarehouses, (*directory.Warehouse).NaturalKey, logger)
}

// NewUserRepository builds the user directory repository.
func NewUserRepository(store docstore.Store, logger *zap.Logger) *Repository[*directory.User] {
	return NewRepository(store, CollectionUsers, (*directory.User).NaturalKey, logger)
}

// NewBankAccountRepository builds the bank account directory repository.
func NewBankAccountRepository(store docstore.Store, logger *zap.Logger) *Repository[*directory.BankAccount] {
	return NewRepository(store, CollectionBankAccounts, (*directory.BankAccount).NaturalKey, logger)
}

// Compile-time checks that the generic repository satisfies the domain
// repository contracts.
var (
	_ ledger.BillingRegisterRepository = (*Repository[*ledger.BillingRegister])(nil)
	_ ledger.ReceivableRepository      = (*Repository[*ledger.ReceivableRecord])(nil)
)
