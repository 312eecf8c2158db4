package ledger

import (
	"sort"
	"time"
)

// CreditTermFn resolves a client's credit term in days. Implementations
// must not fail: any lookup problem falls back to DefaultCreditTermDays.
type CreditTermFn func(clientID string) int

// MergeResult is the output of MergeInvoiceView: the normalized invoice
// view plus the registration ids that had no receivable yet and need a
// backfill write.
type MergeResult struct {
	Records        []*ReceivableRecord
	NeedsBackfill  []string
	OrphanedCount  int
	CarriedForward int
}

// MergeInvoiceView reconciles billing registers (source invoices) with
// receivable records (payment history) into one normalized view per
// registration id. It is a pure function of its inputs: calling it twice
// with the same data yields the same output, which is what lets the sync
// coordinator re-run it on every change-stream event regardless of the
// interleaving of the two collections.
//
// Iteration is driven by the registers: a receivable whose registration id
// has no matching register is orphaned and excluded from the view.
func MergeInvoiceView(registers []*BillingRegister, receivables []*ReceivableRecord, terms CreditTermFn, today time.Time) MergeResult {
	byRegistration := make(map[string]*ReceivableRecord, len(receivables))
	for _, rec := range receivables {
		byRegistration[rec.RegistrationID] = rec
	}

	result := MergeResult{Records: make([]*ReceivableRecord, 0, len(registers))}
	for _, reg := range registers {
		total := reg.TotalAmount.Decimal // unparseable amounts arrive as zero

		merged := &ReceivableRecord{
			TenantRecord:   reg.TenantRecord,
			RegistrationID: reg.RegistrationID,
			InvoiceNumber:  reg.InvoiceNumber(),
			ClientID:       reg.ClientID,
			TotalAmount:    total,
			IssueDate:      reg.IssueDate,
		}

		if existing, ok := byRegistration[reg.RegistrationID]; ok {
			merged.Payments = existing.Payments
			merged.PaidAmount = existing.PaidAmount
			merged.PendingAmount = existing.PendingAmount
			merged.Status = existing.Status
			merged.TenantRecord = existing.TenantRecord
			result.CarriedForward++
		} else {
			merged.Payments = []PaymentEntry{}
			result.NeedsBackfill = append(result.NeedsBackfill, reg.RegistrationID)
		}

		term := DefaultCreditTermDays
		if terms != nil {
			if t := terms(reg.ClientID); t > 0 {
				term = t
			}
		}
		merged.CreditTermDays = term

		merged.Recompute(today)
		result.Records = append(result.Records, merged)
	}

	result.OrphanedCount = len(receivables) - result.CarriedForward

	sort.SliceStable(result.Records, func(i, j int) bool {
		return trailingNumber(result.Records[i].InvoiceNumber) > trailingNumber(result.Records[j].InvoiceNumber)
	})
	return result
}

// trailingNumber extracts the last run of digits in an invoice number as
// its sort key: "F-537" yields 537, "FAC-2025-001" yields 1. Numbers
// without digits sort last.
func trailingNumber(s string) int64 {
	end := -1
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] >= '0' && s[i] <= '9' {
			end = i
			break
		}
	}
	if end < 0 {
		return -1
	}
	start := end
	for start > 0 && s[start-1] >= '0' && s[start-1] <= '9' {
		start--
	}
	var n int64
	for _, c := range s[start : end+1] {
		n = n*10 + int64(c-'0')
		if n > 1<<52 {
			break
		}
	}
	return n
}
