package ledger

import (
	"context"

	"github.com/freightflow/backend/internal/session"
)

// BillingRegisterRepository reads the billing module's invoice registers.
// This module never writes registers.
type BillingRegisterRepository interface {
	GetAll(ctx context.Context, sess session.Context) ([]*BillingRegister, error)
	Get(ctx context.Context, sess session.Context, registrationID string) (*BillingRegister, error)
	// Watch delivers the full tenant-scoped register set on every change
	// until ctx is cancelled. The first delivery is the current snapshot.
	Watch(ctx context.Context, sess session.Context) (<-chan []*BillingRegister, error)
	Ready(ctx context.Context) error
}

// ReceivableRepository persists the payment-state records owned by this
// module.
type ReceivableRepository interface {
	GetAll(ctx context.Context, sess session.Context) ([]*ReceivableRecord, error)
	Get(ctx context.Context, sess session.Context, registrationID string) (*ReceivableRecord, error)
	Save(ctx context.Context, sess session.Context, record *ReceivableRecord) error
	Delete(ctx context.Context, sess session.Context, registrationID string) error
	DeleteAll(ctx context.Context, sess session.Context) error
	Watch(ctx context.Context, sess session.Context) (<-chan []*ReceivableRecord, error)
	Ready(ctx context.Context) error
}

// CreditTermSource resolves per-client credit terms for due-date
// derivation. Implementations must not fail; unknown clients report 0 so
// the caller applies DefaultCreditTermDays.
type CreditTermSource interface {
	CreditTermDays(ctx context.Context, sess session.Context, clientID string) int
}
