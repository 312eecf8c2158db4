package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTTLCache(t *testing.T) {
	t.Run("returns stored values before expiry", func(t *testing.T) {
		c := NewTTLCache[int](time.Minute, nil)
		defer c.Stop()

		c.Set("clients:tenant-a:RFC1", 15)
		got, ok := c.Get("clients:tenant-a:RFC1")
		assert.True(t, ok)
		assert.Equal(t, 15, got)
	})

	t.Run("misses on absent and expired keys", func(t *testing.T) {
		c := NewTTLCache[int](10*time.Millisecond, nil)
		defer c.Stop()

		_, ok := c.Get("absent")
		assert.False(t, ok)

		c.Set("soon-stale", 1)
		time.Sleep(25 * time.Millisecond)
		_, ok = c.Get("soon-stale")
		assert.False(t, ok)
	})

	t.Run("invalidates by prefix only", func(t *testing.T) {
		c := NewTTLCache[int](time.Minute, nil)
		defer c.Stop()

		c.Set("clients:tenant-a:RFC1", 15)
		c.Set("clients:tenant-a:RFC2", 30)
		c.Set("vehicles:tenant-a:T-1", 1)

		c.InvalidatePrefix("clients:")

		_, ok := c.Get("clients:tenant-a:RFC1")
		assert.False(t, ok)
		_, ok = c.Get("clients:tenant-a:RFC2")
		assert.False(t, ok)
		_, ok = c.Get("vehicles:tenant-a:T-1")
		assert.True(t, ok)
	})

	t.Run("counts hits and misses", func(t *testing.T) {
		c := NewTTLCache[string](time.Minute, nil)
		defer c.Stop()

		c.Set("k", "v")
		c.Get("k")
		c.Get("absent")

		hits, misses := c.Stats()
		assert.Equal(t, int64(1), hits)
		assert.Equal(t, int64(1), misses)
	})
}
