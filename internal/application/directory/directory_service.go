// Package directory implements the configuration CRUD on top of the
// tenant-scoped repositories: validation, natural-key uniqueness, status
// counters and cache invalidation per entity type.
package directory

import (
	"context"
	"errors"
	"fmt"

	"github.com/freightflow/backend/internal/domain/shared"
	"github.com/freightflow/backend/internal/session"
	"go.uber.org/zap"
)

// Entity is a directory record: tenant-scoped, keyed and self-validating.
type Entity interface {
	shared.TenantScoped
	NaturalKey() string
	Validate() error
}

// Repository is the slice of the persistence layer one entity service
// needs.
type Repository[T Entity] interface {
	GetAll(ctx context.Context, sess session.Context) ([]T, error)
	Get(ctx context.Context, sess session.Context, key string) (T, error)
	Save(ctx context.Context, sess session.Context, entity T) error
	Delete(ctx context.Context, sess session.Context, key string) error
}

// Counters summarizes an entity listing. They are recomputed on every
// load, never stored.
type Counters struct {
	Total    int `json:"total"`
	Active   int `json:"active"`
	Inactive int `json:"inactive"`
}

// Listing is a full tenant load of one entity type.
type Listing[T Entity] struct {
	Items    []T      `json:"items"`
	Counters Counters `json:"counters"`
}

// Service runs the CRUD for one entity type. activeFn classifies records
// for the counters; onChange is the cache-invalidation hook fired after
// every successful write.
type Service[T Entity] struct {
	name     string
	repo     Repository[T]
	activeFn func(T) bool
	onChange func()
	logger   *zap.Logger
}

// NewService wires a directory service for one entity type. A nil
// activeFn counts every record as active; a nil onChange is a no-op.
func NewService[T Entity](name string, repo Repository[T], activeFn func(T) bool, onChange func(), logger *zap.Logger) *Service[T] {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service[T]{
		name:     name,
		repo:     repo,
		activeFn: activeFn,
		onChange: onChange,
		logger:   logger,
	}
}

// List loads the tenant's records and recomputes the status counters.
func (s *Service[T]) List(ctx context.Context, sess session.Context) (Listing[T], error) {
	items, err := s.repo.GetAll(ctx, sess)
	if err != nil {
		return Listing[T]{}, err
	}

	counters := Counters{Total: len(items)}
	for _, item := range items {
		if s.activeFn == nil || s.activeFn(item) {
			counters.Active++
		} else {
			counters.Inactive++
		}
	}
	return Listing[T]{Items: items, Counters: counters}, nil
}

// Get returns one record by natural key.
func (s *Service[T]) Get(ctx context.Context, sess session.Context, key string) (T, error) {
	return s.repo.Get(ctx, sess, key)
}

// Create validates and inserts a new record. A record with the same
// natural key already present in the tenant is rejected.
func (s *Service[T]) Create(ctx context.Context, sess session.Context, entity T) error {
	if err := entity.Validate(); err != nil {
		return err
	}

	key := entity.NaturalKey()
	if _, err := s.repo.Get(ctx, sess, key); err == nil {
		return shared.NewDomainError("ALREADY_EXISTS",
			fmt.Sprintf("A %s record with key %q already exists", s.name, key))
	} else if !errors.Is(err, shared.ErrNotFound) {
		return err
	}

	if err := s.repo.Save(ctx, sess, entity); err != nil {
		return err
	}
	s.logger.Info("Directory record created",
		zap.String("entity", s.name),
		zap.String("key", key),
		zap.String("tenant_id", sess.TenantID))
	s.fireChange()
	return nil
}

// Update validates and replaces an existing record. Updating a record
// that does not exist is rejected, so a typo in the key cannot silently
// create a duplicate.
func (s *Service[T]) Update(ctx context.Context, sess session.Context, entity T) error {
	if err := entity.Validate(); err != nil {
		return err
	}

	key := entity.NaturalKey()
	if _, err := s.repo.Get(ctx, sess, key); err != nil {
		return err
	}

	if err := s.repo.Save(ctx, sess, entity); err != nil {
		return err
	}
	s.logger.Info("Directory record updated",
		zap.String("entity", s.name),
		zap.String("key", key),
		zap.String("tenant_id", sess.TenantID))
	s.fireChange()
	return nil
}

// Delete removes one record by natural key.
func (s *Service[T]) Delete(ctx context.Context, sess session.Context, key string) error {
	if err := s.repo.Delete(ctx, sess, key); err != nil {
		return err
	}
	s.logger.Info("Directory record deleted",
		zap.String("entity", s.name),
		zap.String("key", key),
		zap.String("tenant_id", sess.TenantID))
	s.fireChange()
	return nil
}

func (s *Service[T]) fireChange() {
	if s.onChange != nil {
		s.onChange()
	}
}
