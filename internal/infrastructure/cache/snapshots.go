package cache

import (
	"time"

	"go.uber.org/zap"
)

// AutofillSnapshots holds the offline fallback copies of cross-module
// records, keyed by module, tenant and registration. Entries age out so
// a long-running process does not serve arbitrarily stale forms.
type AutofillSnapshots struct {
	cache *TTLCache[map[string]string]
}

// NewAutofillSnapshots creates the snapshot store. ttl zero falls back
// to one hour.
func NewAutofillSnapshots(ttl time.Duration, logger *zap.Logger) *AutofillSnapshots {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &AutofillSnapshots{cache: NewTTLCache[map[string]string](ttl, logger)}
}

// Get returns the cached record, if still fresh.
func (s *AutofillSnapshots) Get(module, tenantID, registrationID string) (map[string]string, bool) {
	return s.cache.Get(snapshotKey(module, tenantID, registrationID))
}

// Put stores a record fetched from the live backend.
func (s *AutofillSnapshots) Put(module, tenantID, registrationID string, record map[string]string) {
	s.cache.Set(snapshotKey(module, tenantID, registrationID), record)
}

// Stop ends the background expiry sweep.
func (s *AutofillSnapshots) Stop() {
	s.cache.Stop()
}

func snapshotKey(module, tenantID, registrationID string) string {
	return module + "/" + tenantID + "/" + registrationID
}
