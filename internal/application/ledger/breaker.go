package ledger

import (
	"strings"
	"sync"
	"time"

	"github.com/freightflow/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// quotaMarkers are the error-message fragments treated as backend
// resource exhaustion. The store surfaces these as opaque strings, so
// sniffing is the only detection available.
var quotaMarkers = []string{
	"quota",
	"resource exhausted",
	"resource_exhausted",
	"too many requests",
	"rate limit",
}

// IsQuotaError reports whether err looks like backend quota or resource
// exhaustion.
func IsQuotaError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range quotaMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// WriteBreaker is a circuit breaker for document-store writes. Repeated
// quota errors trip it; while tripped every write is rejected locally
// with ErrWritesSuspended until the cooldown elapses.
type WriteBreaker struct {
	threshold int
	cooldown  time.Duration
	logger    *zap.Logger

	mu           sync.Mutex
	consecutive  int
	trippedUntil time.Time
	now          func() time.Time
}

// NewWriteBreaker creates a breaker tripping after threshold consecutive
// quota errors, for the given cooldown.
func NewWriteBreaker(threshold int, cooldown time.Duration, logger *zap.Logger) *WriteBreaker {
	if threshold <= 0 {
		threshold = 3
	}
	if cooldown <= 0 {
		cooldown = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WriteBreaker{
		threshold: threshold,
		cooldown:  cooldown,
		logger:    logger,
		now:       time.Now,
	}
}

// Allow returns ErrWritesSuspended while the breaker is tripped.
func (b *WriteBreaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.now().Before(b.trippedUntil) {
		return shared.ErrWritesSuspended
	}
	return nil
}

// Record feeds a write outcome into the breaker. Non-quota errors and
// successes reset the consecutive counter.
func (b *WriteBreaker) Record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !IsQuotaError(err) {
		b.consecutive = 0
		return
	}

	b.consecutive++
	if b.consecutive >= b.threshold {
		b.trippedUntil = b.now().Add(b.cooldown)
		b.consecutive = 0
		b.logger.Warn("Write circuit breaker tripped, rejecting writes locally",
			zap.Duration("cooldown", b.cooldown),
			zap.Error(err))
	}
}

// Tripped reports whether writes are currently rejected.
func (b *WriteBreaker) Tripped() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.now().Before(b.trippedUntil)
}
