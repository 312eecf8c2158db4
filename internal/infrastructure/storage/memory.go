package storage

import (
	"context"
	"errors"
	"sync"
	"time"

	ledgerapp "github.com/freightflow/backend/internal/application/ledger"
)

var _ ledgerapp.BlobStore = (*MemoryBlobStore)(nil)

// MemoryBlobStore keeps attachment blobs in memory. It backs local
// development and tests where no S3-compatible server is around.
type MemoryBlobStore struct {
	mu      sync.RWMutex
	objects map[string][]byte
	// BaseURL prefixes download URLs; defaults to a placeholder host.
	BaseURL string
}

// NewMemoryBlobStore creates an empty in-memory store.
func NewMemoryBlobStore() *MemoryBlobStore {
	return &MemoryBlobStore{
		objects: make(map[string][]byte),
		BaseURL: "https://storage.invalid",
	}
}

// Upload stores the blob under the key.
func (m *MemoryBlobStore) Upload(_ context.Context, storageKey string, data []byte, _ string) error {
	if storageKey == "" {
		return errors.New("storage key is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[storageKey] = append([]byte(nil), data...)
	return nil
}

// DownloadURL returns a synthetic URL for the stored blob.
func (m *MemoryBlobStore) DownloadURL(_ context.Context, storageKey string, expiresIn time.Duration) (string, time.Time, error) {
	if storageKey == "" {
		return "", time.Time{}, errors.New("storage key is required")
	}
	if expiresIn <= 0 {
		expiresIn = 15 * time.Minute
	}

	m.mu.RLock()
	_, ok := m.objects[storageKey]
	m.mu.RUnlock()
	if !ok {
		return "", time.Time{}, errors.New("object not found")
	}
	return m.BaseURL + "/" + storageKey, time.Now().Add(expiresIn), nil
}

// Delete removes the blob; deleting a missing key is not an error.
func (m *MemoryBlobStore) Delete(_ context.Context, storageKey string) error {
	if storageKey == "" {
		return errors.New("storage key is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, storageKey)
	return nil
}

// Exists reports whether the blob is present.
func (m *MemoryBlobStore) Exists(_ context.Context, storageKey string) (bool, error) {
	if storageKey == "" {
		return false, errors.New("storage key is required")
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.objects[storageKey]
	return ok, nil
}

// Get returns the stored blob, for tests.
func (m *MemoryBlobStore) Get(storageKey string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.objects[storageKey]
	return data, ok
}

// Ready always succeeds.
func (m *MemoryBlobStore) Ready(context.Context) error {
	return nil
}
