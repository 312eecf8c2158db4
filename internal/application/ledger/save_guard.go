package ledger

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultSaveGuardTimeout force-releases a guard hold that was never
	// released, so a failed write path cannot starve the sync
	// coordinator forever.
	DefaultSaveGuardTimeout = 30 * time.Second

	// DefaultSaveGuardGrace keeps the guard suspended briefly after a
	// release, letting the store's own write echo back through the
	// change stream before processing resumes.
	DefaultSaveGuardGrace = 750 * time.Millisecond
)

// SaveGuard suppresses realtime change processing while local writes are
// in flight, so a save cannot be overwritten by a stale snapshot arriving
// concurrently. Every hold is scoped: Acquire returns its own release
// function, releases are idempotent, and an unreleased hold is
// force-released after a hard timeout with an anomaly log.
type SaveGuard struct {
	timeout time.Duration
	grace   time.Duration
	logger  *zap.Logger

	mu         sync.Mutex
	active     map[uint64]string // hold id -> owner label
	nextID     uint64
	releasedAt time.Time
}

// NewSaveGuard creates a guard. Non-positive durations fall back to the
// defaults.
func NewSaveGuard(timeout, grace time.Duration, logger *zap.Logger) *SaveGuard {
	if timeout <= 0 {
		timeout = DefaultSaveGuardTimeout
	}
	if grace < 0 {
		grace = DefaultSaveGuardGrace
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SaveGuard{
		timeout: timeout,
		grace:   grace,
		logger:  logger,
		active:  make(map[uint64]string),
	}
}

// Acquire registers a hold for a write operation and returns its release
// function. Calling the release more than once is safe.
func (g *SaveGuard) Acquire(owner string) func() {
	g.mu.Lock()
	id := g.nextID
	g.nextID++
	g.active[id] = owner
	g.mu.Unlock()

	timer := time.AfterFunc(g.timeout, func() {
		if g.removeHold(id) {
			g.logger.Warn("Save guard force-released after timeout",
				zap.String("owner", owner),
				zap.Duration("timeout", g.timeout))
		}
	})

	var once sync.Once
	return func() {
		once.Do(func() {
			timer.Stop()
			g.removeHold(id)
		})
	}
}

func (g *SaveGuard) removeHold(id uint64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.active[id]; !ok {
		return false
	}
	delete(g.active, id)
	if len(g.active) == 0 {
		g.releasedAt = time.Now()
	}
	return true
}

// Suspended reports whether change processing should be skipped: a hold
// is active, or the grace window after the last release has not elapsed.
func (g *SaveGuard) Suspended() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.active) > 0 {
		return true
	}
	return !g.releasedAt.IsZero() && time.Since(g.releasedAt) < g.grace
}

// Holders returns the owner labels of all active holds, for diagnostics.
func (g *SaveGuard) Holders() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	owners := make([]string, 0, len(g.active))
	for _, owner := range g.active {
		owners = append(owners, owner)
	}
	return owners
}
