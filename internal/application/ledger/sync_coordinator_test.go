package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	ledgerdomain "github.com/freightflow/backend/internal/domain/ledger"
	"github.com/freightflow/backend/internal/infrastructure/docstore"
	"github.com/freightflow/backend/internal/infrastructure/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCoordinatorFixture(t *testing.T) (*ledgerFixture, *SyncCoordinator) {
	t.Helper()
	f := newLedgerFixture(t, 15)
	c := NewSyncCoordinator(f.svc, f.registers, f.recs, 2, 5*time.Millisecond, nil)
	return f, c
}

func invoiceNumbers(recs []*ledgerdomain.ReceivableRecord) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.InvoiceNumber
	}
	return out
}

func TestSyncCoordinator(t *testing.T) {
	t.Run("initial load publishes the merged view", func(t *testing.T) {
		f, c := newCoordinatorFixture(t)
		seedRegister(t, f, "reg-1", "F", "1", "1000")

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		require.NoError(t, c.Start(ctx, testSession))
		defer c.Stop()

		assert.Equal(t, []string{"F-1"}, invoiceNumbers(c.Current()))
		assert.Equal(t, StateActive, c.State())
	})

	t.Run("change batches re-run the merge", func(t *testing.T) {
		f, c := newCoordinatorFixture(t)
		seedRegister(t, f, "reg-1", "F", "1", "1000")

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		updates := make(chan []*ledgerdomain.ReceivableRecord, 16)
		c.OnUpdate(func(recs []*ledgerdomain.ReceivableRecord) { updates <- recs })
		require.NoError(t, c.Start(ctx, testSession))
		defer c.Stop()

		seedRegister(t, f, "reg-2", "F", "2", "500")

		assert.Eventually(t, func() bool {
			return len(c.Current()) == 2
		}, time.Second, 10*time.Millisecond)
		assert.Equal(t, []string{"F-2", "F-1"}, invoiceNumbers(c.Current()))
	})

	t.Run("batches during a save hold leave the merged view untouched", func(t *testing.T) {
		f, c := newCoordinatorFixture(t)
		seedRegister(t, f, "reg-1", "F", "1", "1000")

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		require.NoError(t, c.Start(ctx, testSession))
		defer c.Stop()
		require.Len(t, c.Current(), 1)

		release := f.svc.Guard().Acquire("save")
		assert.Equal(t, StatePaused, c.State())

		seedRegister(t, f, "reg-2", "F", "2", "500")
		time.Sleep(50 * time.Millisecond) // let the skipped batch drain
		assert.Len(t, c.Current(), 1, "suspended coordinator must not apply change batches")

		release()
		assert.Equal(t, StateActive, c.State())

		// A later batch catches the view up; the merge always runs on
		// full lists, so nothing is lost by the skip.
		seedRegister(t, f, "reg-3", "F", "3", "700")
		assert.Eventually(t, func() bool {
			return len(c.Current()) == 3
		}, time.Second, 10*time.Millisecond)
	})

	t.Run("empty first batch is re-verified before wiping the view", func(t *testing.T) {
		f, c := newCoordinatorFixture(t)
		seedRegister(t, f, "reg-1", "F", "1", "1000")

		ctx := context.Background()
		regs, err := f.registers.GetAll(ctx, testSession)
		require.NoError(t, err)
		c.lastRegs = regs
		c.publish(c.svc.ReconcileLists(ctx, testSession, regs, nil))
		require.Len(t, c.Current(), 1)

		c.handleRegisterBatch(ctx, testSession, nil)
		assert.Len(t, c.Current(), 1, "transient empty snapshot must not clear the view")
	})

	t.Run("empty later batch is trusted", func(t *testing.T) {
		f, c := newCoordinatorFixture(t)
		seedRegister(t, f, "reg-1", "F", "1", "1000")

		ctx := context.Background()
		regs, err := f.registers.GetAll(ctx, testSession)
		require.NoError(t, err)
		c.lastRegs = regs
		c.firstRegBatch = false
		c.publish(c.svc.ReconcileLists(ctx, testSession, regs, nil))

		c.handleRegisterBatch(ctx, testSession, nil)
		assert.Empty(t, c.Current())
	})

	t.Run("stop unsubscribes exactly once", func(t *testing.T) {
		f, c := newCoordinatorFixture(t)
		seedRegister(t, f, "reg-1", "F", "1", "1000")

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		require.NoError(t, c.Start(ctx, testSession))

		c.Stop()
		c.Stop()
		assert.Equal(t, StateUnsubscribed, c.State())

		select {
		case <-c.Done():
		case <-time.After(time.Second):
			t.Fatal("Done channel never closed")
		}
	})

	t.Run("degrades to no realtime when readiness never arrives", func(t *testing.T) {
		store := &unreadyStore{MemoryStore: docstore.NewMemoryStore()}
		registers := persistence.NewBillingRegisterRepository(store, nil)
		recs := persistence.NewReceivableRepository(store, nil)
		svc := NewReconciliationService(registers, recs, fixedTerms(15),
			NewSaveGuard(time.Second, 0, nil), NewWriteBreaker(3, time.Minute, nil), nil)
		c := NewSyncCoordinator(svc, registers, recs, 2, time.Millisecond, nil)

		require.NoError(t, c.Start(context.Background(), testSession))
		assert.Equal(t, StateIdle, c.State())
	})
}

type unreadyStore struct {
	*docstore.MemoryStore
}

func (s *unreadyStore) Ready(context.Context) error {
	return errors.New("store warming up")
}
