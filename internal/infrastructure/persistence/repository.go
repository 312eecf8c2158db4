// Package persistence implements the tenant-scoped repositories on top of
// the shared-document store. One generic Repository covers every entity
// type; the entity contributes only its natural-key extractor.
package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/freightflow/backend/internal/domain/shared"
	"github.com/freightflow/backend/internal/infrastructure/docstore"
	"github.com/freightflow/backend/internal/session"
	"go.uber.org/zap"
)

// KeyFn extracts an entity's natural key (vehicle number, RFC, email...).
type KeyFn[T shared.TenantScoped] func(T) string

// Repository persists one entity type inside one shared collection
// document. The document holds records from every tenant; reads filter on
// the session's tenant id, writes rewrite the whole array inside the
// store's per-document transaction.
type Repository[T shared.TenantScoped] struct {
	store      docstore.Store
	collection string
	key        KeyFn[T]
	logger     *zap.Logger
	now        func() time.Time
}

// NewRepository creates a repository for one collection.
func NewRepository[T shared.TenantScoped](store docstore.Store, collection string, key KeyFn[T], logger *zap.Logger) *Repository[T] {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Repository[T]{
		store:      store,
		collection: collection,
		key:        key,
		logger:     logger,
		now:        time.Now,
	}
}

func (r *Repository[T]) decode(raw json.RawMessage) ([]T, error) {
	if len(raw) == 0 {
		return []T{}, nil
	}
	var items []T
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("failed to decode %s document: %w", r.collection, err)
	}
	return items, nil
}

func filterTenant[T shared.TenantScoped](items []T, tenantID string) []T {
	scoped := make([]T, 0, len(items))
	for _, item := range items {
		if item.GetTenantID() == tenantID {
			scoped = append(scoped, item)
		}
	}
	return scoped
}

// GetAll returns the session tenant's records. A missing document or a
// document with no matching records yields an empty slice, not an error.
func (r *Repository[T]) GetAll(ctx context.Context, sess session.Context) ([]T, error) {
	raw, err := r.store.Load(ctx, r.collection)
	if err != nil {
		return nil, err
	}
	items, err := r.decode(raw)
	if err != nil {
		return nil, err
	}
	return filterTenant(items, sess.TenantID), nil
}

// Get returns the record with the given natural key within the session's
// tenant.
func (r *Repository[T]) Get(ctx context.Context, sess session.Context, key string) (T, error) {
	var zero T
	items, err := r.GetAll(ctx, sess)
	if err != nil {
		return zero, err
	}
	for _, item := range items {
		if r.key(item) == key {
			return item, nil
		}
	}
	return zero, shared.ErrNotFound
}

// Save inserts or replaces the record matching the entity's natural key.
// On replace the existing record's tenant id is preserved, never silently
// reassigned to the caller's tenant; new records get the session tenant.
// The modified timestamp is always restamped.
func (r *Repository[T]) Save(ctx context.Context, sess session.Context, entity T) error {
	key := r.key(entity)
	if key == "" {
		return shared.NewDomainError("MISSING_KEY", fmt.Sprintf("Cannot save %s record without a natural key", r.collection))
	}

	return r.store.Update(ctx, r.collection, sess.TenantID, func(current json.RawMessage) (json.RawMessage, error) {
		items, err := r.decode(current)
		if err != nil {
			return nil, err
		}

		entity.Touch(r.now())
		replaced := false
		for i, item := range items {
			if r.key(item) != key {
				continue
			}
			if existing := item.GetTenantID(); existing != "" {
				entity.SetTenantID(existing)
			} else {
				entity.SetTenantID(sess.TenantID)
			}
			items[i] = entity
			replaced = true
			break
		}
		if !replaced {
			entity.SetTenantID(sess.TenantID)
			items = append(items, entity)
		}

		return json.Marshal(items)
	})
}

// Delete removes the session tenant's record with the given natural key.
func (r *Repository[T]) Delete(ctx context.Context, sess session.Context, key string) error {
	removed := false
	err := r.store.Update(ctx, r.collection, sess.TenantID, func(current json.RawMessage) (json.RawMessage, error) {
		items, err := r.decode(current)
		if err != nil {
			return nil, err
		}

		kept := make([]T, 0, len(items))
		for _, item := range items {
			if r.key(item) == key && item.GetTenantID() == sess.TenantID {
				removed = true
				continue
			}
			kept = append(kept, item)
		}
		return json.Marshal(kept)
	})
	if err != nil {
		return err
	}
	if !removed {
		return shared.ErrNotFound
	}
	return nil
}

// DeleteAll removes every record of the session's tenant, leaving other
// tenants' records in the shared document untouched.
func (r *Repository[T]) DeleteAll(ctx context.Context, sess session.Context) error {
	return r.store.Update(ctx, r.collection, sess.TenantID, func(current json.RawMessage) (json.RawMessage, error) {
		items, err := r.decode(current)
		if err != nil {
			return nil, err
		}

		kept := make([]T, 0, len(items))
		for _, item := range items {
			if item.GetTenantID() != sess.TenantID {
				kept = append(kept, item)
			}
		}
		return json.Marshal(kept)
	})
}

// Watch delivers the tenant's full record set on every change to the
// collection, starting with the current snapshot.
func (r *Repository[T]) Watch(ctx context.Context, sess session.Context) (<-chan []T, error) {
	raw, err := r.store.Watch(ctx, r.collection)
	if err != nil {
		return nil, err
	}

	out := make(chan []T, 1)
	go func() {
		defer close(out)
		for snapshot := range raw {
			items, err := r.decode(snapshot)
			if err != nil {
				r.logger.Warn("Dropping undecodable snapshot",
					zap.String("collection", r.collection),
					zap.Error(err))
				continue
			}
			select {
			case out <- filterTenant(items, sess.TenantID):
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// Ready reports whether the backing store can serve reads.
func (r *Repository[T]) Ready(ctx context.Context) error {
	return r.store.Ready(ctx)
}
