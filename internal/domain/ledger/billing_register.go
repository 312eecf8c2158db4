package ledger

import (
	"time"

	"github.com/freightflow/backend/internal/domain/shared"
)

// BillingRegister is the source-of-truth invoice record created by the
// billing module. From this module's point of view it is read-only: only
// the billing module writes it.
type BillingRegister struct {
	shared.TenantRecord
	RegistrationID string     `json:"registrationId"`
	ClientID       string     `json:"clientIdentifier"`
	Series         string     `json:"series,omitempty"`
	Folio          string     `json:"folio,omitempty"`
	FiscalFolio    string     `json:"fiscalFolio,omitempty"`
	TotalAmount    FlexAmount `json:"totalAmount"`
	IssueDate      FlexDate   `json:"issueDate"`
	CreatedAt      time.Time  `json:"creationTimestamp"`
}

// NaturalKey returns the per-tenant unique key
func (b *BillingRegister) NaturalKey() string {
	return b.RegistrationID
}

// InvoiceNumber derives the human invoice number from series and folio.
// When either component is missing it falls back to a synthesized
// identifier so every register has a stable, printable number.
func (b *BillingRegister) InvoiceNumber() string {
	if b.Series != "" && b.Folio != "" {
		return b.Series + "-" + b.Folio
	}
	return "REG-" + b.RegistrationID
}
