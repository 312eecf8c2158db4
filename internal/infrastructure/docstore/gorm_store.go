package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const changeLoadTimeout = 5 * time.Second

// documentRow is the persisted shape: one row per collection, the item
// array for every tenant inside the jsonb column. tenant_id records the
// last writer, for diagnostics only.
type documentRow struct {
	Collection string          `gorm:"column:collection;primaryKey;size:100"`
	Items      json.RawMessage `gorm:"column:items;type:jsonb"`
	TenantID   string          `gorm:"column:tenant_id;size:100"`
	UpdatedAt  time.Time       `gorm:"column:updated_at"`
}

func (documentRow) TableName() string { return "documents" }

// GormStore persists collection documents in a relational table and
// broadcasts committed writes through a Notifier.
type GormStore struct {
	db       *gorm.DB
	notifier Notifier
	logger   *zap.Logger

	mu       sync.Mutex
	watchers map[string]map[int]chan json.RawMessage
	nextID   int
	subOnce  sync.Once
	cancelFn context.CancelFunc
}

// NewGormStore creates a document store on the given database handle.
func NewGormStore(db *gorm.DB, notifier Notifier, logger *zap.Logger) *GormStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GormStore{
		db:       db,
		notifier: notifier,
		logger:   logger,
		watchers: make(map[string]map[int]chan json.RawMessage),
	}
}

// Load returns the raw item array for a collection, nil when the
// document does not exist yet.
func (s *GormStore) Load(ctx context.Context, collection string) (json.RawMessage, error) {
	var row documentRow
	err := s.db.WithContext(ctx).Where("collection = ?", collection).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load document %s: %w", collection, err)
	}
	return row.Items, nil
}

// Update applies fn to the collection document inside a transaction. On
// Postgres the row is locked for the duration, so concurrent writers
// serialize instead of overwriting each other.
func (s *GormStore) Update(ctx context.Context, collection string, tenantID string, fn UpdateFn) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row documentRow
		q := tx
		if tx.Dialector.Name() == "postgres" {
			q = q.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		err := q.Where("collection = ?", collection).First(&row).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to read document %s: %w", collection, err)
		}

		next, err := fn(row.Items)
		if err != nil {
			return err
		}

		row.Collection = collection
		row.Items = next
		row.TenantID = tenantID
		row.UpdatedAt = time.Now()
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "collection"}},
			DoUpdates: clause.AssignmentColumns([]string{"items", "tenant_id", "updated_at"}),
		}).Create(&row).Error
	})
	if err != nil {
		return err
	}

	event := ChangeEvent{Collection: collection, TenantID: tenantID}

	// Local watchers refresh immediately; the notifier carries the event
	// to other instances. A failed publish degrades realtime delivery on
	// those instances but the write itself stands. The notifier echo back
	// into this process is a duplicate snapshot, which coalesces away.
	s.onChange(event)
	if pubErr := s.notifier.Publish(ctx, event); pubErr != nil {
		s.logger.Warn("Document change notification failed",
			zap.String("collection", collection),
			zap.Error(pubErr))
	}
	return nil
}

// Watch registers a subscriber for a collection. The first delivery is
// the current snapshot; later deliveries follow committed writes.
func (s *GormStore) Watch(ctx context.Context, collection string) (<-chan json.RawMessage, error) {
	s.ensureDispatch()

	initial, err := s.Load(ctx, collection)
	if err != nil {
		return nil, err
	}

	ch := make(chan json.RawMessage, 1)
	ch <- initial

	s.mu.Lock()
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

// Ready reports whether the underlying database answers pings.
func (s *GormStore) Ready(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

// Close stops the change subscription. Database handle ownership stays
// with the caller.
func (s *GormStore) Close() error {
	s.mu.Lock()
	cancelFn := s.cancelFn
	s.mu.Unlock()
	if cancelFn != nil {
		cancelFn()
	}
	return nil
}

func (s *GormStore) ensureDispatch() {
	s.subOnce.Do(func() {
		ctx, cancel := context.WithCancel(context.Background())
		s.mu.Lock()
		s.cancelFn = cancel
		s.mu.Unlock()
		go func() {
			err := s.notifier.Subscribe(ctx, s.onChange)
			if err != nil && !errors.Is(err, context.Canceled) {
				s.logger.Warn("Document change subscription ended", zap.Error(err))
			}
		}()
	})
}

func (s *GormStore) onChange(event ChangeEvent) {
	s.mu.Lock()
	hasWatchers := len(s.watchers[event.Collection]) > 0
	s.mu.Unlock()
	if !hasWatchers {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), changeLoadTimeout)
	defer cancel()
	items, err := s.Load(ctx, event.Collection)
	if err != nil {
		s.logger.Warn("Failed to reload document after change event",
			zap.String("collection", event.Collection),
			zap.Error(err))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.watchers[event.Collection] {
		deliverLatest(ch, items)
	}
}

// deliverLatest coalesces deliveries: if the subscriber has not drained
// the previous snapshot, it is replaced by the newer one.
func deliverLatest(ch chan json.RawMessage, items json.RawMessage) {
	select {
	case ch <- items:
	default:
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- items:
		default:
		}
	}
}

var _ Store = (*GormStore)(nil)
