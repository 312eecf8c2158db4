package session

import "sync"

// MemoryTenantCache remembers the last successfully resolved tenant id
// for the lifetime of the process.
type MemoryTenantCache struct {
	mu       sync.RWMutex
	tenantID string
}

// NewMemoryTenantCache creates an empty cache.
func NewMemoryTenantCache() *MemoryTenantCache {
	return &MemoryTenantCache{}
}

// CachedTenant returns the remembered tenant id, or empty.
func (c *MemoryTenantCache) CachedTenant() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tenantID
}

// Remember stores the tenant id. Empty values are ignored so a failed
// resolution cannot wipe a good one.
func (c *MemoryTenantCache) Remember(tenantID string) {
	if tenantID == "" {
		return
	}
	c.mu.Lock()
	c.tenantID = tenantID
	c.mu.Unlock()
}
