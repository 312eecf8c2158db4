package dto

import "github.com/freightflow/backend/internal/domain/ledger"

// RegisterPaymentRequest is the body for applying a payment to a
// receivable. Amount and date go through the flexible parsers so the
// capture forms may send numbers or formatted strings.
type RegisterPaymentRequest struct {
	Amount             ledger.FlexAmount    `json:"amount" binding:"required"`
	Date               ledger.FlexDate      `json:"date"`
	Method             ledger.PaymentMethod `json:"method" binding:"required"`
	OriginBank         string               `json:"originBank"`
	OriginAccount      string               `json:"originAccount"`
	DestinationBank    string               `json:"destinationBank"`
	DestinationAccount string               `json:"destinationAccount"`
	Reference          string               `json:"reference"`
	Notes              string               `json:"notes"`
	Attachments        []ledger.Attachment  `json:"attachments"`
}

// Entry converts the request into a domain payment entry.
func (r RegisterPaymentRequest) Entry() ledger.PaymentEntry {
	return ledger.PaymentEntry{
		Amount:             r.Amount.Decimal,
		Date:               r.Date,
		Method:             r.Method,
		OriginBank:         r.OriginBank,
		OriginAccount:      r.OriginAccount,
		DestinationBank:    r.DestinationBank,
		DestinationAccount: r.DestinationAccount,
		Reference:          r.Reference,
		Notes:              r.Notes,
		Attachments:        r.Attachments,
	}
}

// UpdatePaymentRequest edits one payment entry in place.
type UpdatePaymentRequest struct {
	Index int `json:"index"`
	RegisterPaymentRequest
}

// BulkClearRequest guards the destructive receivables wipe.
type BulkClearRequest struct {
	Confirm bool `json:"confirm"`
}

// LoginRequest authenticates a directory user.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}
