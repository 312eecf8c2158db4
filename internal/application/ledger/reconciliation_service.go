package ledger

import (
	"context"
	"errors"
	"sync"
	"time"

	ledgerdomain "github.com/freightflow/backend/internal/domain/ledger"
	"github.com/freightflow/backend/internal/domain/shared"
	"github.com/freightflow/backend/internal/infrastructure/telemetry"
	"github.com/freightflow/backend/internal/session"
	"go.uber.org/zap"
)

// clearedResyncWindow is how long after a bulk clear the backfill stays
// disabled, so an intentionally emptied collection is not immediately
// repopulated from the register stream.
const clearedResyncWindow = 5 * time.Minute

// ReconciliationService owns the receivables side of the ledger: it runs
// the register/receivable merge, backfills missing records exactly once,
// and applies payment mutations under the save guard.
type ReconciliationService struct {
	registers   ledgerdomain.BillingRegisterRepository
	receivables ledgerdomain.ReceivableRepository
	terms       ledgerdomain.CreditTermSource
	guard       *SaveGuard
	breaker     *WriteBreaker
	attachments *AttachmentOffloader
	logger      *zap.Logger
	now         func() time.Time

	mu          sync.Mutex
	backfilling map[string]struct{} // tenant/registration pairs with a write in flight or completed
	clearedAt   map[string]time.Time
}

// NewReconciliationService wires the service.
func NewReconciliationService(
	registers ledgerdomain.BillingRegisterRepository,
	receivables ledgerdomain.ReceivableRepository,
	terms ledgerdomain.CreditTermSource,
	guard *SaveGuard,
	breaker *WriteBreaker,
	logger *zap.Logger,
) *ReconciliationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReconciliationService{
		registers:   registers,
		receivables: receivables,
		terms:       terms,
		guard:       guard,
		breaker:     breaker,
		logger:      logger,
		now:         time.Now,
		backfilling: make(map[string]struct{}),
		clearedAt:   make(map[string]time.Time),
	}
}

// Guard exposes the save guard so the sync coordinator and HTTP layer
// share the same suppression state.
func (s *ReconciliationService) Guard() *SaveGuard { return s.guard }

// SetAttachmentOffloader enables moving inline payment attachments to
// object storage before the receivable is saved. Without it attachments
// stay inline in the document.
func (s *ReconciliationService) SetAttachmentOffloader(o *AttachmentOffloader) {
	s.attachments = o
}

// Reconcile loads both collections and returns the merged invoice view.
func (s *ReconciliationService) Reconcile(ctx context.Context, sess session.Context) ([]*ledgerdomain.ReceivableRecord, error) {
	regs, err := s.registers.GetAll(ctx, sess)
	if err != nil {
		return nil, err
	}
	recs, err := s.receivables.GetAll(ctx, sess)
	if err != nil {
		return nil, err
	}
	return s.ReconcileLists(ctx, sess, regs, recs), nil
}

// ReconcileLists merges pre-fetched collections and triggers backfill
// writes for registers that have no receivable yet. Backfill failures are
// logged, never surfaced: the merged view is already correct in memory
// and the next merge retries.
func (s *ReconciliationService) ReconcileLists(ctx context.Context, sess session.Context, regs []*ledgerdomain.BillingRegister, recs []*ledgerdomain.ReceivableRecord) []*ledgerdomain.ReceivableRecord {
	result := ledgerdomain.MergeInvoiceView(regs, recs, func(clientID string) int {
		if s.terms == nil {
			return 0
		}
		return s.terms.CreditTermDays(ctx, sess, clientID)
	}, s.now())

	if result.OrphanedCount > 0 {
		s.logger.Debug("Excluded orphaned receivables from merged view",
			zap.String("tenant_id", sess.TenantID),
			zap.Int("count", result.OrphanedCount))
	}

	s.releaseBackfillMarks(sess.TenantID, recs)

	if len(result.NeedsBackfill) > 0 && !s.RecentlyCleared(sess.TenantID) {
		s.backfill(ctx, sess, result)
	}

	return result.Records
}

// releaseBackfillMarks drops in-flight marks for registrations whose
// receivable is now visible, closing the exactly-once window.
func (s *ReconciliationService) releaseBackfillMarks(tenantID string, recs []*ledgerdomain.ReceivableRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range recs {
		delete(s.backfilling, tenantID+"/"+rec.RegistrationID)
	}
}

// backfill persists a receivable for every register that has none. The
// in-flight mark guarantees at most one write per registration across
// repeated merges until the record becomes visible to reads.
func (s *ReconciliationService) backfill(ctx context.Context, sess session.Context, result ledgerdomain.MergeResult) {
	pending := make(map[string]bool, len(result.NeedsBackfill))
	for _, id := range result.NeedsBackfill {
		pending[id] = true
	}

	for _, rec := range result.Records {
		if !pending[rec.RegistrationID] {
			continue
		}
		key := sess.TenantID + "/" + rec.RegistrationID

		s.mu.Lock()
		if _, inFlight := s.backfilling[key]; inFlight {
			s.mu.Unlock()
			continue
		}
		s.backfilling[key] = struct{}{}
		s.mu.Unlock()

		if err := s.breaker.Allow(); err != nil {
			s.unmarkBackfill(key)
			s.logger.Warn("Skipping backfill, writes suspended",
				zap.String("registration_id", rec.RegistrationID))
			return
		}

		err := s.receivables.Save(ctx, sess, rec)
		s.breaker.Record(err)
		if err != nil {
			s.unmarkBackfill(key)
			s.logger.Warn("Receivable backfill failed",
				zap.String("registration_id", rec.RegistrationID),
				zap.Error(err))
			continue
		}
		s.logger.Debug("Backfilled receivable",
			zap.String("registration_id", rec.RegistrationID),
			zap.String("tenant_id", sess.TenantID))
	}
}

func (s *ReconciliationService) unmarkBackfill(key string) {
	s.mu.Lock()
	delete(s.backfilling, key)
	s.mu.Unlock()
}

// GetReceivable returns the payment-state record for one registration,
// reconciling first when it has not been backfilled yet.
func (s *ReconciliationService) GetReceivable(ctx context.Context, sess session.Context, registrationID string) (*ledgerdomain.ReceivableRecord, error) {
	rec, err := s.receivables.Get(ctx, sess, registrationID)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}
	if _, err := s.Reconcile(ctx, sess); err != nil {
		return nil, err
	}
	return s.receivables.Get(ctx, sess, registrationID)
}

// RegisterPayment validates and applies a payment to a receivable. The
// save guard is held for the duration of the write so the coordinator
// skips the change-stream echo.
func (s *ReconciliationService) RegisterPayment(ctx context.Context, sess session.Context, registrationID string, entry ledgerdomain.PaymentEntry) (*ledgerdomain.ReceivableRecord, error) {
	ctx, span := telemetry.StartSpan(ctx, "ledger.register_payment",
		telemetry.WithAttribute(telemetry.SpanAttrTenantID, sess.TenantID),
		telemetry.WithAttribute(telemetry.SpanAttrRegistrationID, registrationID))
	defer span.End()

	if err := s.breaker.Allow(); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	release := s.guard.Acquire("register-payment")
	defer release()

	rec, err := s.GetReceivable(ctx, sess, registrationID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if s.attachments != nil {
		if err := s.attachments.Offload(ctx, sess, registrationID, &entry); err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
	}
	if err := rec.RegisterPayment(entry, s.now()); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	err = s.receivables.Save(ctx, sess, rec)
	s.breaker.Record(err)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttribute(span, telemetry.SpanAttrAmount, entry.Amount.String())

	s.verifySaved(ctx, sess, rec)
	return rec, nil
}

// UpdatePaymentDetails replaces one payment entry on a receivable.
func (s *ReconciliationService) UpdatePaymentDetails(ctx context.Context, sess session.Context, registrationID string, index int, entry ledgerdomain.PaymentEntry) (*ledgerdomain.ReceivableRecord, error) {
	ctx, span := telemetry.StartSpan(ctx, "ledger.update_payment",
		telemetry.WithAttribute(telemetry.SpanAttrTenantID, sess.TenantID),
		telemetry.WithAttribute(telemetry.SpanAttrRegistrationID, registrationID))
	defer span.End()

	if err := s.breaker.Allow(); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	release := s.guard.Acquire("update-payment")
	defer release()

	rec, err := s.GetReceivable(ctx, sess, registrationID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if s.attachments != nil {
		if err := s.attachments.Offload(ctx, sess, registrationID, &entry); err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
	}
	if err := rec.UpdatePayment(index, entry, s.now()); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	err = s.receivables.Save(ctx, sess, rec)
	s.breaker.Record(err)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.verifySaved(ctx, sess, rec)
	return rec, nil
}

// verifySaved reads the record back and compares the derived amounts.
// A mismatch is a consistency warning, not a failure: the write already
// committed and the next change-stream merge converges.
func (s *ReconciliationService) verifySaved(ctx context.Context, sess session.Context, saved *ledgerdomain.ReceivableRecord) {
	stored, err := s.receivables.Get(ctx, sess, saved.RegistrationID)
	if err != nil {
		s.logger.Warn("Post-save verification read failed",
			zap.String("registration_id", saved.RegistrationID),
			zap.Error(err))
		return
	}
	if !stored.PaidAmount.Equal(saved.PaidAmount) || len(stored.Payments) != len(saved.Payments) {
		s.logger.Warn("Post-save verification mismatch",
			zap.String("registration_id", saved.RegistrationID),
			zap.String("saved_paid", saved.PaidAmount.String()),
			zap.String("stored_paid", stored.PaidAmount.String()))
	}
}

// BulkClear deletes every receivable of the tenant. It refuses to run
// without explicit confirmation, and marks the tenant as intentionally
// cleared so the next merges do not immediately backfill everything.
func (s *ReconciliationService) BulkClear(ctx context.Context, sess session.Context, confirm bool) error {
	ctx, span := telemetry.StartSpan(ctx, "ledger.bulk_clear",
		telemetry.WithAttribute(telemetry.SpanAttrTenantID, sess.TenantID))
	defer span.End()

	if !confirm {
		return shared.ErrConfirmationGuard
	}
	if err := s.breaker.Allow(); err != nil {
		telemetry.RecordError(span, err)
		return err
	}

	release := s.guard.Acquire("bulk-clear")
	defer release()

	s.mu.Lock()
	s.clearedAt[sess.TenantID] = s.now()
	s.mu.Unlock()

	err := s.receivables.DeleteAll(ctx, sess)
	s.breaker.Record(err)
	if err != nil {
		s.mu.Lock()
		delete(s.clearedAt, sess.TenantID)
		s.mu.Unlock()
		telemetry.RecordError(span, err)
		return err
	}

	s.logger.Info("Receivables bulk-cleared",
		zap.String("tenant_id", sess.TenantID),
		zap.String("user_id", sess.UserID))
	return nil
}

// RecentlyCleared reports whether the tenant bulk-cleared its receivables
// within the resync window.
func (s *ReconciliationService) RecentlyCleared(tenantID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	at, ok := s.clearedAt[tenantID]
	if !ok {
		return false
	}
	if s.now().Sub(at) > clearedResyncWindow {
		delete(s.clearedAt, tenantID)
		return false
	}
	return true
}
