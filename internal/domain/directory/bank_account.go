package directory

import (
	"github.com/freightflow/backend/internal/domain/shared"
)

// BankAccount is a company account payments can be received into, keyed
// by the CLABE (or account number for foreign accounts).
type BankAccount struct {
	shared.TenantRecord
	CLABE    string `json:"clabe" binding:"required"`
	Bank     string `json:"bank" binding:"required"`
	Alias    string `json:"alias,omitempty"`
	Holder   string `json:"holder,omitempty"`
	Currency string `json:"currency,omitempty"`
	Active   bool   `json:"active"`
}

// NaturalKey returns the per-tenant unique key
func (b *BankAccount) NaturalKey() string { return b.CLABE }

// Validate checks required fields
func (b *BankAccount) Validate() error {
	if b.CLABE == "" {
		return shared.NewDomainError("MISSING_FIELD", "Bank account CLABE is required")
	}
	if b.Bank == "" {
		return shared.NewDomainError("MISSING_FIELD", "Bank name is required")
	}
	return nil
}
