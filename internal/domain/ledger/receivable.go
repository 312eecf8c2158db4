package ledger

import (
	"fmt"
	"time"

	"github.com/freightflow/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultCreditTermDays applies when a client profile carries no credit term.
const DefaultCreditTermDays = 30

// pendingEpsilon clamps float-sourced drift: a pending balance within half
// a cent of zero is treated as zero.
var pendingEpsilon = decimal.NewFromFloat(0.005)

// Status represents the derived collection status of a receivable
type Status string

const (
	StatusPending Status = "pending"
	StatusPaid    Status = "paid"
	StatusOverdue Status = "overdue"
)

// IsValid checks if the status is a valid Status
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusPaid, StatusOverdue:
		return true
	}
	return false
}

// String returns the string representation of Status
func (s Status) String() string {
	return string(s)
}

// PaymentMethod identifies how a payment was made
type PaymentMethod string

const (
	PaymentMethodTransfer PaymentMethod = "transfer"
	PaymentMethodCheck    PaymentMethod = "check"
	PaymentMethodCash     PaymentMethod = "cash"
	PaymentMethodCard     PaymentMethod = "card"
	PaymentMethodOther    PaymentMethod = "other"
)

// IsValid checks if the payment method is valid
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodTransfer, PaymentMethodCheck, PaymentMethodCash,
		PaymentMethodCard, PaymentMethodOther:
		return true
	}
	return false
}

// Attachment is a payment proof file. Data carries the base64 payload as
// received from the client; StorageKey is set once the blob is offloaded
// to object storage.
type Attachment struct {
	Name        string `json:"name"`
	ContentType string `json:"type"`
	Size        int64  `json:"size"`
	Data        string `json:"data,omitempty"`
	StorageKey  string `json:"storageKey,omitempty"`
}

// PaymentEntry is one payment applied to a receivable
type PaymentEntry struct {
	ID                 uuid.UUID       `json:"id"`
	Amount             decimal.Decimal `json:"amount"`
	Date               FlexDate        `json:"date"`
	Method             PaymentMethod   `json:"method"`
	OriginBank         string          `json:"originBank,omitempty"`
	OriginAccount      string          `json:"originAccount,omitempty"`
	DestinationBank    string          `json:"destinationBank,omitempty"`
	DestinationAccount string          `json:"destinationAccount,omitempty"`
	Reference          string          `json:"reference,omitempty"`
	Notes              string          `json:"notes,omitempty"`
	Attachments        []Attachment    `json:"attachments,omitempty"`
}

// ReceivableRecord tracks the payment state of one BillingRegister. The
// payment list is the source of truth: paid, pending and status are
// derived from it on every recompute. The derived values are still
// persisted so documents written by older clients read back the same way.
type ReceivableRecord struct {
	shared.TenantRecord
	RegistrationID string          `json:"registrationId"`
	InvoiceNumber  string          `json:"invoiceNumber"`
	ClientID       string          `json:"clientIdentifier,omitempty"`
	TotalAmount    decimal.Decimal `json:"totalAmount"`
	PaidAmount     decimal.Decimal `json:"paidAmount"`
	PendingAmount  decimal.Decimal `json:"pendingAmount"`
	Status         Status          `json:"status"`
	CreditTermDays int             `json:"creditTermDays"`
	IssueDate      FlexDate        `json:"issueDate"`
	DueDate        FlexDate        `json:"dueDate"`
	DaysOverdue    *int            `json:"daysOverdue"`
	Payments       []PaymentEntry  `json:"payments"`
}

// NaturalKey returns the per-tenant unique key
func (r *ReceivableRecord) NaturalKey() string {
	return r.RegistrationID
}

// paid sums the payment list. Records written before payments were the
// source of truth may carry a paid amount with an empty list; the stored
// snapshot is trusted for those.
func (r *ReceivableRecord) paid() decimal.Decimal {
	if len(r.Payments) == 0 {
		return r.PaidAmount
	}
	sum := decimal.Zero
	for _, p := range r.Payments {
		sum = sum.Add(p.Amount)
	}
	return sum
}

// Recompute refreshes every derived field from the payment list and the
// canonical total: paid, pending (clamped to zero within epsilon of it),
// status, due date and days overdue.
func (r *ReceivableRecord) Recompute(today time.Time) {
	r.PaidAmount = r.paid()
	pending := r.TotalAmount.Sub(r.PaidAmount)
	if pending.Abs().LessThan(pendingEpsilon) {
		pending = decimal.Zero
	}
	r.PendingAmount = pending

	if r.IssueDate.Valid {
		term := r.CreditTermDays
		if term <= 0 {
			term = DefaultCreditTermDays
		}
		r.DueDate = NewFlexDate(DueDate(r.IssueDate.Time, term))
	}

	switch {
	case !pending.IsPositive():
		r.Status = StatusPaid
	case r.DueDate.Valid && atMidnight(today).After(r.DueDate.Time):
		r.Status = StatusOverdue
	default:
		r.Status = StatusPending
	}

	if r.DueDate.Valid {
		r.DaysOverdue = DaysOverdue(r.DueDate.Time, r.Status, today)
	} else {
		r.DaysOverdue = nil
	}
}

// RegisterPayment validates and appends a payment, then recomputes the
// derived state. A payment must be positive and must not exceed the
// pending balance (within the epsilon clamp).
func (r *ReceivableRecord) RegisterPayment(entry PaymentEntry, today time.Time) error {
	if !entry.Amount.IsPositive() {
		return shared.NewDomainError("INVALID_AMOUNT", "Payment amount must be positive")
	}
	if !entry.Method.IsValid() {
		return shared.NewDomainError("INVALID_METHOD", fmt.Sprintf("Unknown payment method %q", entry.Method))
	}
	pending := r.TotalAmount.Sub(r.paid())
	if entry.Amount.Sub(pending).GreaterThan(pendingEpsilon) {
		return shared.NewDomainError("EXCEEDS_PENDING",
			fmt.Sprintf("Payment %s exceeds pending balance %s", entry.Amount.StringFixed(2), pending.StringFixed(2)))
	}
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	r.Payments = append(r.Payments, entry)
	r.Recompute(today)
	return nil
}

// UpdatePayment replaces the payment at the given position, keeping its
// id, and recomputes the derived state. The edited list must still fit
// inside the total.
func (r *ReceivableRecord) UpdatePayment(index int, entry PaymentEntry, today time.Time) error {
	if index < 0 || index >= len(r.Payments) {
		return shared.NewDomainError("INVALID_INDEX", fmt.Sprintf("No payment at position %d", index))
	}
	if !entry.Amount.IsPositive() {
		return shared.NewDomainError("INVALID_AMOUNT", "Payment amount must be positive")
	}
	sum := decimal.Zero
	for i, p := range r.Payments {
		if i == index {
			sum = sum.Add(entry.Amount)
		} else {
			sum = sum.Add(p.Amount)
		}
	}
	if sum.Sub(r.TotalAmount).GreaterThan(pendingEpsilon) {
		return shared.NewDomainError("EXCEEDS_PENDING", "Edited payments exceed the invoice total")
	}
	entry.ID = r.Payments[index].ID
	r.Payments[index] = entry
	r.Recompute(today)
	return nil
}
