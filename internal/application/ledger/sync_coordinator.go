package ledger

import (
	"context"
	"sync"
	"time"

	ledgerdomain "github.com/freightflow/backend/internal/domain/ledger"
	"github.com/freightflow/backend/internal/session"
	"go.uber.org/zap"
)

// CoordinatorState is the lifecycle state of the realtime sync loop.
type CoordinatorState string

const (
	StateIdle         CoordinatorState = "idle"
	StateSubscribing  CoordinatorState = "subscribing"
	StateActive       CoordinatorState = "active"
	StatePaused       CoordinatorState = "paused"
	StateUnsubscribed CoordinatorState = "unsubscribed"
)

const (
	DefaultReadyRetries  = 10
	DefaultReadyInterval = 500 * time.Millisecond
)

// SyncCoordinator subscribes to the register and receivable change
// streams and re-runs the merge on every delivered batch. Batches
// arriving while a local save holds the guard are skipped, and the very
// first batch of a stream is re-verified when it is suspiciously empty.
//
// The coordinator tolerates the two streams interleaving arbitrarily:
// the merge is recomputed from both full lists, never from deltas.
type SyncCoordinator struct {
	svc           *ReconciliationService
	registers     ledgerdomain.BillingRegisterRepository
	receivables   ledgerdomain.ReceivableRepository
	readyRetries  int
	readyInterval time.Duration
	logger        *zap.Logger

	mu       sync.Mutex
	state    CoordinatorState
	current  []*ledgerdomain.ReceivableRecord
	onUpdate func([]*ledgerdomain.ReceivableRecord)

	// accessed only from the run loop (and Start before it spawns)
	lastRegs      []*ledgerdomain.BillingRegister
	lastRecs      []*ledgerdomain.ReceivableRecord
	firstRegBatch bool
	firstRecBatch bool

	cancel    context.CancelFunc
	unsubOnce sync.Once
	done      chan struct{}
}

// NewSyncCoordinator wires a coordinator. Zero retry settings fall back
// to the defaults.
func NewSyncCoordinator(
	svc *ReconciliationService,
	registers ledgerdomain.BillingRegisterRepository,
	receivables ledgerdomain.ReceivableRepository,
	readyRetries int,
	readyInterval time.Duration,
	logger *zap.Logger,
) *SyncCoordinator {
	if readyRetries <= 0 {
		readyRetries = DefaultReadyRetries
	}
	if readyInterval <= 0 {
		readyInterval = DefaultReadyInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SyncCoordinator{
		svc:           svc,
		registers:     registers,
		receivables:   receivables,
		readyRetries:  readyRetries,
		readyInterval: readyInterval,
		logger:        logger,
		state:         StateIdle,
		firstRegBatch: true,
		firstRecBatch: true,
		done:          make(chan struct{}),
	}
}

// OnUpdate registers the callback invoked with the merged list after
// every accepted change. Must be called before Start.
func (c *SyncCoordinator) OnUpdate(fn func([]*ledgerdomain.ReceivableRecord)) {
	c.mu.Lock()
	c.onUpdate = fn
	c.mu.Unlock()
}

// Current returns the last merged invoice view.
func (c *SyncCoordinator) Current() []*ledgerdomain.ReceivableRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// State reports the coordinator state; an active coordinator with a held
// save guard reports Paused.
func (c *SyncCoordinator) State() CoordinatorState {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateActive && c.svc.Guard().Suspended() {
		return StatePaused
	}
	return c.state
}

func (c *SyncCoordinator) setState(s CoordinatorState) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// Start waits for the repositories to come up, loads the initial view,
// then subscribes to both change streams. If readiness never arrives
// within the retry budget it logs and gives up: no realtime updates,
// one-shot reconciles still work.
func (c *SyncCoordinator) Start(ctx context.Context, sess session.Context) error {
	c.setState(StateSubscribing)

	if !c.waitReady(ctx) {
		c.logger.Warn("Repositories never became ready, realtime sync disabled",
			zap.Int("retries", c.readyRetries),
			zap.Duration("interval", c.readyInterval))
		c.setState(StateIdle)
		return nil
	}

	// Initial load happens before the subscriptions attach; the
	// first-batch guard below protects it from an empty transient.
	regs, err := c.registers.GetAll(ctx, sess)
	if err != nil {
		c.logger.Warn("Initial register load failed", zap.Error(err))
	}
	recs, err := c.receivables.GetAll(ctx, sess)
	if err != nil {
		c.logger.Warn("Initial receivable load failed", zap.Error(err))
	}
	c.lastRegs, c.lastRecs = regs, recs
	c.publish(c.svc.ReconcileLists(ctx, sess, regs, recs))

	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	regCh, err := c.registers.Watch(runCtx, sess)
	if err != nil {
		cancel()
		c.logger.Warn("Register subscription failed, realtime sync disabled", zap.Error(err))
		c.setState(StateIdle)
		return nil
	}
	recCh, err := c.receivables.Watch(runCtx, sess)
	if err != nil {
		cancel()
		c.logger.Warn("Receivable subscription failed, realtime sync disabled", zap.Error(err))
		c.setState(StateIdle)
		return nil
	}

	c.setState(StateActive)
	c.logger.Info("Realtime sync active", zap.String("tenant_id", sess.TenantID))

	go c.run(runCtx, sess, regCh, recCh)
	return nil
}

// Stop tears the subscriptions down. Safe to call more than once; the
// underlying unsubscribe happens exactly once.
func (c *SyncCoordinator) Stop() {
	c.unsubOnce.Do(func() {
		if c.cancel != nil {
			c.cancel()
		}
		c.setState(StateUnsubscribed)
		close(c.done)
	})
}

// Done is closed once the coordinator has unsubscribed.
func (c *SyncCoordinator) Done() <-chan struct{} { return c.done }

func (c *SyncCoordinator) waitReady(ctx context.Context) bool {
	for attempt := 0; attempt < c.readyRetries; attempt++ {
		if c.registers.Ready(ctx) == nil && c.receivables.Ready(ctx) == nil {
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(c.readyInterval):
		}
	}
	return false
}

func (c *SyncCoordinator) run(ctx context.Context, sess session.Context, regCh <-chan []*ledgerdomain.BillingRegister, recCh <-chan []*ledgerdomain.ReceivableRecord) {
	for {
		select {
		case <-ctx.Done():
			c.Stop()
			return
		case batch, ok := <-regCh:
			if !ok {
				c.Stop()
				return
			}
			c.handleRegisterBatch(ctx, sess, batch)
		case batch, ok := <-recCh:
			if !ok {
				c.Stop()
				return
			}
			c.handleReceivableBatch(ctx, sess, batch)
		}
	}
}

func (c *SyncCoordinator) handleRegisterBatch(ctx context.Context, sess session.Context, batch []*ledgerdomain.BillingRegister) {
	if c.svc.Guard().Suspended() {
		c.logger.Debug("Skipping register batch, save in flight")
		return
	}

	if c.firstRegBatch {
		c.firstRegBatch = false
		if len(batch) == 0 && len(c.lastRegs) > 0 {
			fresh, err := c.registers.GetAll(ctx, sess)
			if err != nil {
				c.logger.Warn("Empty first register batch failed re-verification, keeping current data", zap.Error(err))
				return
			}
			c.logger.Info("Empty first register batch re-verified",
				zap.Int("verified_count", len(fresh)))
			batch = fresh
		}
	}

	c.lastRegs = batch
	c.publish(c.svc.ReconcileLists(ctx, sess, c.lastRegs, c.lastRecs))
}

func (c *SyncCoordinator) handleReceivableBatch(ctx context.Context, sess session.Context, batch []*ledgerdomain.ReceivableRecord) {
	if c.svc.Guard().Suspended() {
		c.logger.Debug("Skipping receivable batch, save in flight")
		return
	}

	if c.firstRecBatch {
		c.firstRecBatch = false
		if len(batch) == 0 && len(c.lastRecs) > 0 {
			fresh, err := c.receivables.GetAll(ctx, sess)
			if err != nil {
				c.logger.Warn("Empty first receivable batch failed re-verification, keeping current data", zap.Error(err))
				return
			}
			c.logger.Info("Empty first receivable batch re-verified",
				zap.Int("verified_count", len(fresh)))
			batch = fresh
		}
	}

	c.lastRecs = batch
	c.publish(c.svc.ReconcileLists(ctx, sess, c.lastRegs, c.lastRecs))
}

func (c *SyncCoordinator) publish(merged []*ledgerdomain.ReceivableRecord) {
	c.mu.Lock()
	c.current = merged
	fn := c.onUpdate
	c.mu.Unlock()
	if fn != nil {
		fn(merged)
	}
}
