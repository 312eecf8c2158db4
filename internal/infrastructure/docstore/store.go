// Package docstore implements the shared-document persistence shape: one
// JSONB document per collection, holding the item array for every tenant.
// Mutations run inside a per-document transaction so concurrent writers
// cannot drop each other's changes, and every committed write publishes a
// change notification that Watch subscribers turn into fresh snapshots.
package docstore

import (
	"context"
	"encoding/json"
)

// Store is the document-store contract the repositories build on.
type Store interface {
	// Load returns the raw item array for a collection. A missing
	// document yields nil, not an error.
	Load(ctx context.Context, collection string) (json.RawMessage, error)

	// Update applies fn to the current item array inside a transaction
	// and persists the result. fn receives nil when the document does
	// not exist yet. Returning an error from fn aborts without writing.
	Update(ctx context.Context, collection string, tenantID string, fn UpdateFn) error

	// Watch delivers the full item array on every committed change to
	// the collection, starting with the current snapshot, until ctx is
	// cancelled. Deliveries coalesce: a slow consumer sees the latest
	// state, not every intermediate one.
	Watch(ctx context.Context, collection string) (<-chan json.RawMessage, error)

	// Ready reports whether the store can serve reads.
	Ready(ctx context.Context) error
}

// UpdateFn transforms a collection's item array.
type UpdateFn func(current json.RawMessage) (json.RawMessage, error)

// ChangeEvent is the pub/sub payload announcing a committed write.
type ChangeEvent struct {
	Collection string `json:"collection"`
	TenantID   string `json:"tenantId,omitempty"`
	Timestamp  int64  `json:"timestamp"`
}

// Notifier fans committed-write notifications out to every process
// holding a Watch subscription.
type Notifier interface {
	Publish(ctx context.Context, event ChangeEvent) error
	// Subscribe blocks, invoking callback per received event, until ctx
	// is cancelled.
	Subscribe(ctx context.Context, callback func(event ChangeEvent)) error
	Close() error
}
