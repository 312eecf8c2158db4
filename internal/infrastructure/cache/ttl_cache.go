package cache

import (
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

const defaultCleanupInterval = 30 * time.Second

// TTLCache is a small in-memory read-through cache with per-entry
// expiration. It fronts directory lookups the ledger makes repeatedly,
// such as per-client credit terms, and is invalidated by prefix whenever
// the corresponding entity type is written.
type TTLCache[V any] struct {
	entries sync.Map // map[string]*ttlEntry[V]
	ttl     time.Duration
	logger  *zap.Logger
	stopCh  chan struct{}
	stopped int32

	hits   int64
	misses int64
}

type ttlEntry[V any] struct {
	value     V
	expiresAt time.Time
}

func (e *ttlEntry[V]) isExpired() bool {
	return time.Now().After(e.expiresAt)
}

// NewTTLCache creates a cache whose entries expire after ttl.
func NewTTLCache[V any](ttl time.Duration, logger *zap.Logger) *TTLCache[V] {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &TTLCache[V]{
		ttl:    ttl,
		logger: logger,
		stopCh: make(chan struct{}),
	}
	go c.cleanupExpired()
	return c
}

// Get returns the cached value for key, if present and fresh.
func (c *TTLCache[V]) Get(key string) (V, bool) {
	var zero V
	if value, ok := c.entries.Load(key); ok {
		entry := value.(*ttlEntry[V])
		if !entry.isExpired() {
			atomic.AddInt64(&c.hits, 1)
			return entry.value, true
		}
		c.entries.Delete(key)
	}
	atomic.AddInt64(&c.misses, 1)
	return zero, false
}

// Set stores a value under key with the cache's TTL.
func (c *TTLCache[V]) Set(key string, value V) {
	c.entries.Store(key, &ttlEntry[V]{
		value:     value,
		expiresAt: time.Now().Add(c.ttl),
	})
}

// Delete removes a single entry.
func (c *TTLCache[V]) Delete(key string) {
	c.entries.Delete(key)
}

// InvalidatePrefix drops every entry whose key starts with prefix. Keys
// are namespaced by entity type, so a directory write invalidates only
// its own type's lookups.
func (c *TTLCache[V]) InvalidatePrefix(prefix string) {
	removed := 0
	c.entries.Range(func(key, _ any) bool {
		if strings.HasPrefix(key.(string), prefix) {
			c.entries.Delete(key)
			removed++
		}
		return true
	})
	if removed > 0 {
		c.logger.Debug("Invalidated cache entries",
			zap.String("prefix", prefix),
			zap.Int("count", removed))
	}
}

// Stats returns hit and miss counters.
func (c *TTLCache[V]) Stats() (hits, misses int64) {
	return atomic.LoadInt64(&c.hits), atomic.LoadInt64(&c.misses)
}

// Stop terminates the background cleanup goroutine.
func (c *TTLCache[V]) Stop() {
	if atomic.CompareAndSwapInt32(&c.stopped, 0, 1) {
		close(c.stopCh)
	}
}

func (c *TTLCache[V]) cleanupExpired() {
	ticker := time.NewTicker(defaultCleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.entries.Range(func(key, value any) bool {
				if value.(*ttlEntry[V]).isExpired() {
					c.entries.Delete(key)
				}
				return true
			})
		}
	}
}
