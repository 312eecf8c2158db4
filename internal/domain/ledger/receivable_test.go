package ledger

import (
	"testing"
	"time"

	"github.com/freightflow/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testReceivable(total float64, issue time.Time, termDays int) *ReceivableRecord {
	return &ReceivableRecord{
		TenantRecord:   shared.TenantRecord{TenantID: "tenant-a"},
		RegistrationID: "reg-1",
		InvoiceNumber:  "F-100",
		ClientID:       "client-1",
		TotalAmount:    decimal.NewFromFloat(total),
		CreditTermDays: termDays,
		IssueDate:      NewFlexDate(issue),
		Payments:       []PaymentEntry{},
	}
}

func TestRecompute(t *testing.T) {
	issue := time.Date(2025, 1, 1, 0, 0, 0, 0, time.Local)
	today := time.Date(2025, 1, 10, 0, 0, 0, 0, time.Local)

	t.Run("derives due date from issue date and credit term", func(t *testing.T) {
		r := testReceivable(1000, issue, 15)
		r.Recompute(today)

		require.True(t, r.DueDate.Valid)
		assert.Equal(t, time.Date(2025, 1, 16, 0, 0, 0, 0, time.Local), r.DueDate.Time)
		assert.Equal(t, StatusPending, r.Status)
		require.NotNil(t, r.DaysOverdue)
		assert.Equal(t, 6, *r.DaysOverdue)
	})

	t.Run("zero credit term falls back to the default", func(t *testing.T) {
		r := testReceivable(1000, issue, 0)
		r.Recompute(today)
		require.True(t, r.DueDate.Valid)
		assert.Equal(t, issue.AddDate(0, 0, DefaultCreditTermDays), r.DueDate.Time)
	})

	t.Run("paid and pending follow the payment list", func(t *testing.T) {
		r := testReceivable(1000, issue, 30)
		r.Payments = []PaymentEntry{
			{ID: uuid.New(), Amount: decimal.NewFromInt(400)},
			{ID: uuid.New(), Amount: decimal.NewFromInt(350)},
		}
		r.Recompute(today)

		assert.True(t, r.PaidAmount.Equal(decimal.NewFromInt(750)))
		assert.True(t, r.PendingAmount.Equal(decimal.NewFromInt(250)))
		assert.Equal(t, StatusPending, r.Status)
	})

	t.Run("stale stored snapshot is overwritten by the list", func(t *testing.T) {
		r := testReceivable(1000, issue, 30)
		r.PaidAmount = decimal.NewFromInt(999)
		r.PendingAmount = decimal.NewFromInt(1)
		r.Payments = []PaymentEntry{{ID: uuid.New(), Amount: decimal.NewFromInt(100)}}
		r.Recompute(today)

		assert.True(t, r.PaidAmount.Equal(decimal.NewFromInt(100)))
		assert.True(t, r.PendingAmount.Equal(decimal.NewFromInt(900)))
	})

	t.Run("legacy records with no payment list keep their snapshot", func(t *testing.T) {
		r := testReceivable(1000, issue, 30)
		r.PaidAmount = decimal.NewFromInt(600)
		r.Payments = nil
		r.Recompute(today)

		assert.True(t, r.PaidAmount.Equal(decimal.NewFromInt(600)))
		assert.True(t, r.PendingAmount.Equal(decimal.NewFromInt(400)))
	})

	t.Run("pending within half a cent of zero clamps to zero and pays off", func(t *testing.T) {
		r := testReceivable(100, issue, 30)
		r.Payments = []PaymentEntry{{ID: uuid.New(), Amount: decimal.NewFromFloat(99.996)}}
		r.Recompute(today)

		assert.True(t, r.PendingAmount.IsZero())
		assert.Equal(t, StatusPaid, r.Status)
		assert.Nil(t, r.DaysOverdue)
	})

	t.Run("overdue when today is past the due date", func(t *testing.T) {
		r := testReceivable(1000, issue, 5)
		late := time.Date(2025, 2, 1, 0, 0, 0, 0, time.Local)
		r.Recompute(late)

		assert.Equal(t, StatusOverdue, r.Status)
		require.NotNil(t, r.DaysOverdue)
		assert.LessOrEqual(t, *r.DaysOverdue, 0)
	})

	t.Run("status stays pending on the due day itself", func(t *testing.T) {
		r := testReceivable(1000, issue, 15)
		onDue := time.Date(2025, 1, 16, 0, 0, 0, 0, time.Local)
		r.Recompute(onDue)

		assert.Equal(t, StatusPending, r.Status)
		require.NotNil(t, r.DaysOverdue)
		assert.Equal(t, 1, *r.DaysOverdue)
	})
}

func TestRegisterPayment(t *testing.T) {
	issue := time.Date(2025, 1, 1, 0, 0, 0, 0, time.Local)
	today := time.Date(2025, 1, 10, 0, 0, 0, 0, time.Local)

	t.Run("applies sequential partial payments", func(t *testing.T) {
		r := testReceivable(1000, issue, 30)

		require.NoError(t, r.RegisterPayment(PaymentEntry{
			Amount: decimal.NewFromInt(400),
			Method: PaymentMethodTransfer,
		}, today))
		assert.True(t, r.PendingAmount.Equal(decimal.NewFromInt(600)))
		assert.Equal(t, StatusPending, r.Status)

		require.NoError(t, r.RegisterPayment(PaymentEntry{
			Amount: decimal.NewFromInt(600),
			Method: PaymentMethodCash,
		}, today))
		assert.True(t, r.PaidAmount.Equal(decimal.NewFromInt(1000)))
		assert.True(t, r.PendingAmount.IsZero())
		assert.Equal(t, StatusPaid, r.Status)
		require.Len(t, r.Payments, 2)
		assert.NotEqual(t, uuid.Nil, r.Payments[0].ID)
		assert.NotEqual(t, r.Payments[0].ID, r.Payments[1].ID)
	})

	t.Run("rejects non-positive amounts", func(t *testing.T) {
		r := testReceivable(1000, issue, 30)
		err := r.RegisterPayment(PaymentEntry{Amount: decimal.Zero, Method: PaymentMethodCash}, today)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "must be positive")
		assert.Empty(t, r.Payments)
	})

	t.Run("rejects unknown payment methods", func(t *testing.T) {
		r := testReceivable(1000, issue, 30)
		err := r.RegisterPayment(PaymentEntry{Amount: decimal.NewFromInt(100), Method: "barter"}, today)
		require.Error(t, err)
	})

	t.Run("rejects payments exceeding the pending balance", func(t *testing.T) {
		r := testReceivable(1000, issue, 30)
		require.NoError(t, r.RegisterPayment(PaymentEntry{
			Amount: decimal.NewFromInt(900),
			Method: PaymentMethodTransfer,
		}, today))

		err := r.RegisterPayment(PaymentEntry{
			Amount: decimal.NewFromInt(200),
			Method: PaymentMethodTransfer,
		}, today)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "exceeds pending")
		require.Len(t, r.Payments, 1)
	})

	t.Run("keeps a caller-supplied payment id", func(t *testing.T) {
		r := testReceivable(1000, issue, 30)
		id := uuid.New()
		require.NoError(t, r.RegisterPayment(PaymentEntry{
			ID:     id,
			Amount: decimal.NewFromInt(100),
			Method: PaymentMethodCheck,
		}, today))
		assert.Equal(t, id, r.Payments[0].ID)
	})
}

func TestUpdatePayment(t *testing.T) {
	issue := time.Date(2025, 1, 1, 0, 0, 0, 0, time.Local)
	today := time.Date(2025, 1, 10, 0, 0, 0, 0, time.Local)

	seed := func() *ReceivableRecord {
		r := testReceivable(1000, issue, 30)
		require.NoError(t, r.RegisterPayment(PaymentEntry{Amount: decimal.NewFromInt(400), Method: PaymentMethodTransfer}, today))
		require.NoError(t, r.RegisterPayment(PaymentEntry{Amount: decimal.NewFromInt(300), Method: PaymentMethodCash}, today))
		return r
	}

	t.Run("replaces the entry and keeps its id", func(t *testing.T) {
		r := seed()
		originalID := r.Payments[1].ID

		require.NoError(t, r.UpdatePayment(1, PaymentEntry{
			Amount: decimal.NewFromInt(600),
			Method: PaymentMethodTransfer,
			Notes:  "corrected amount",
		}, today))

		assert.Equal(t, originalID, r.Payments[1].ID)
		assert.True(t, r.PaidAmount.Equal(decimal.NewFromInt(1000)))
		assert.Equal(t, StatusPaid, r.Status)
	})

	t.Run("rejects edits that push the list over the total", func(t *testing.T) {
		r := seed()
		err := r.UpdatePayment(0, PaymentEntry{
			Amount: decimal.NewFromInt(800),
			Method: PaymentMethodTransfer,
		}, today)
		require.Error(t, err)
		assert.True(t, r.Payments[0].Amount.Equal(decimal.NewFromInt(400)))
	})

	t.Run("rejects out-of-range positions", func(t *testing.T) {
		r := seed()
		require.Error(t, r.UpdatePayment(5, PaymentEntry{Amount: decimal.NewFromInt(1), Method: PaymentMethodCash}, today))
		require.Error(t, r.UpdatePayment(-1, PaymentEntry{Amount: decimal.NewFromInt(1), Method: PaymentMethodCash}, today))
	})
}
