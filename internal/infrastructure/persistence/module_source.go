package persistence

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/freightflow/backend/internal/domain/shared"
	"github.com/freightflow/backend/internal/infrastructure/docstore"
	"github.com/freightflow/backend/internal/session"
	"go.uber.org/zap"
)

// Cross-module record collections read by the autofill bridge. The
// logistics, traffic and billing modules each keep one shared document.
const (
	CollectionLogisticsRecords = "logistics_records"
	CollectionTrafficRecords   = "traffic_records"
	CollectionBillingRecords   = "billing_records"
)

// ModuleRecordSource reads one module's shared collection and returns
// the record matching a registration id, flattened to strings for the
// field-correspondence mapping. Documents here are written by other
// modules, so the shape is taken as-is rather than bound to a struct.
type ModuleRecordSource struct {
	store      docstore.Store
	collection string
	logger     *zap.Logger
}

// NewModuleRecordSource creates a source over one module collection.
func NewModuleRecordSource(store docstore.Store, collection string, logger *zap.Logger) *ModuleRecordSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ModuleRecordSource{store: store, collection: collection, logger: logger}
}

// Fetch returns the tenant's record for the registration id.
// shared.ErrNotFound means the module has no record; any other error
// means the store could not answer.
func (s *ModuleRecordSource) Fetch(ctx context.Context, sess session.Context, registrationID string) (map[string]string, error) {
	raw, err := s.store.Load(ctx, s.collection)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, shared.ErrNotFound
	}

	var items []map[string]any
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, err
	}

	for _, item := range items {
		if asString(item["tenantId"]) != sess.TenantID {
			continue
		}
		if asString(item["registrationId"]) != registrationID {
			continue
		}
		return flatten(item), nil
	}
	return nil, shared.ErrNotFound
}

// flatten keeps scalar fields as strings and drops nested structures;
// the correspondence tables only map flat fields.
func flatten(item map[string]any) map[string]string {
	record := make(map[string]string, len(item))
	for field, value := range item {
		switch value.(type) {
		case map[string]any, []any, nil:
			continue
		}
		record[field] = asString(value)
	}
	return record
}

func asString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		// JSON numbers decode as float64; print integers without the
		// trailing .0 so folio-like fields compare cleanly.
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v))
		}
		return fmt.Sprintf("%v", v)
	default:
		return fmt.Sprintf("%v", v)
	}
}
