package docstore

import (
	"context"
	"encoding/json"
	"sync"
)

// MemoryStore is an in-process Store for tests and offline development.
// It honors the same Update and Watch semantics as GormStore.
type MemoryStore struct {
	mu        sync.Mutex
	documents map[string]json.RawMessage
	watchers  map[string]map[int]chan json.RawMessage
	nextID    int
}

// NewMemoryStore creates an empty in-memory document store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		documents: make(map[string]json.RawMessage),
		watchers:  make(map[string]map[int]chan json.RawMessage),
	}
}

// Load returns the raw item array, nil when the document is missing.
func (s *MemoryStore) Load(_ context.Context, collection string) (json.RawMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.documents[collection], nil
}

// Update applies fn under the store lock, so writers serialize exactly
// as they do against the locked database row.
func (s *MemoryStore) Update(_ context.Context, collection string, _ string, fn UpdateFn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := fn(s.documents[collection])
	if err != nil {
		return err
	}
	s.documents[collection] = next

	for _, ch := range s.watchers[collection] {
		deliverLatest(ch, next)
	}
	return nil
}

// Watch registers a subscriber; the first delivery is the current
// snapshot.
func (s *MemoryStore) Watch(ctx context.Context, collection string) (<-chan json.RawMessage, error) {
	s.mu.Lock()
	ch := make(chan json.RawMessage, 1)
	ch <- s.documents[collection]
	if s.watchers[collection] == nil {
		s.watchers[collection] = make(map[int]chan json.RawMessage)
	}
	id := s.nextID
	s.nextID++
	s.watchers[collection][id] = ch
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.watchers[collection], id)
		s.mu.Unlock()
		close(ch)
	}()

	return ch, nil
}

// Ready always succeeds for the in-memory store.
func (s *MemoryStore) Ready(context.Context) error { return nil }

var _ Store = (*MemoryStore)(nil)
