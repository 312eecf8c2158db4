package ledger

import (
	"context"
	"errors"
	"strings"
	"unicode"

	"github.com/freightflow/backend/internal/domain/shared"
	"github.com/freightflow/backend/internal/session"
	"go.uber.org/zap"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Autofill modules, one per source record type.
const (
	ModuleLogistics = "logistics"
	ModuleTraffic   = "traffic"
	ModuleBilling   = "billing"
)

// Origin of the data in an autofill answer.
const (
	OriginBackend = "backend"
	OriginCache   = "cache"
	OriginAbsent  = "absent"
)

// RecordSource fetches one module's record for a registration from the
// live backend. A missing record is shared.ErrNotFound; any other error
// means the backend was unreachable.
type RecordSource interface {
	Fetch(ctx context.Context, sess session.Context, registrationID string) (map[string]string, error)
}

// SnapshotCache is the offline fallback snapshot of cross-module
// records, keyed by module, tenant and registration.
type SnapshotCache interface {
	Get(module, tenantID, registrationID string) (map[string]string, bool)
	Put(module, tenantID, registrationID string, record map[string]string)
}

// AutofillResult carries the three records plus where each came from.
type AutofillResult struct {
	Records map[string]map[string]string `json:"records"`
	Origins map[string]string            `json:"origins"`
}

// AutofillService looks up a registration's logistics, traffic and
// billing records for form pre-filling. Each module is attempted
// independently, backend first. The cache snapshot is consulted only
// when the backend is unreachable or the session is unauthenticated,
// never when the backend answered "not found": a real absence is
// trusted, not second-guessed with stale data.
type AutofillService struct {
	sources map[string]RecordSource
	cache   SnapshotCache
	logger  *zap.Logger
}

// NewAutofillService wires the bridge. Missing modules are simply
// reported absent.
func NewAutofillService(sources map[string]RecordSource, cache SnapshotCache, logger *zap.Logger) *AutofillService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AutofillService{sources: sources, cache: cache, logger: logger}
}

// Lookup resolves all three module records for a registration.
func (s *AutofillService) Lookup(ctx context.Context, sess session.Context, registrationID string) AutofillResult {
	result := AutofillResult{
		Records: make(map[string]map[string]string, 3),
		Origins: make(map[string]string, 3),
	}
	for _, module := range []string{ModuleLogistics, ModuleTraffic, ModuleBilling} {
		record, origin := s.lookupModule(ctx, sess, module, registrationID)
		result.Records[module] = record
		result.Origins[module] = origin
	}
	return result
}

func (s *AutofillService) lookupModule(ctx context.Context, sess session.Context, module, registrationID string) (map[string]string, string) {
	source, ok := s.sources[module]
	if !ok {
		return nil, OriginAbsent
	}

	if !sess.Authenticated {
		return s.fromCache(module, sess.TenantID, registrationID)
	}

	record, err := source.Fetch(ctx, sess, registrationID)
	switch {
	case err == nil:
		if s.cache != nil {
			s.cache.Put(module, sess.TenantID, registrationID, record)
		}
		return record, OriginBackend
	case errors.Is(err, shared.ErrNotFound):
		// The backend answered; the record genuinely does not exist.
		return nil, OriginAbsent
	default:
		s.logger.Warn("Autofill backend lookup failed, trying cache snapshot",
			zap.String("module", module),
			zap.String("registration_id", registrationID),
			zap.Error(err))
		return s.fromCache(module, sess.TenantID, registrationID)
	}
}

func (s *AutofillService) fromCache(module, tenantID, registrationID string) (map[string]string, string) {
	if s.cache == nil {
		return nil, OriginAbsent
	}
	if record, ok := s.cache.Get(module, tenantID, registrationID); ok {
		return record, OriginCache
	}
	return nil, OriginAbsent
}

// Field correspondence tables, one per source module. Keys are the
// destination form field, values the source record field (Spanish names
// as written by the capture forms).
var fieldCorrespondence = map[string]map[string]string{
	ModuleLogistics: {
		"clientIdentifier": "cliente",
		"origin":           "origen",
		"destination":      "destino",
		"cargoDescription": "descripcionCarga",
		"loadDate":         "fechaCarga",
	},
	ModuleTraffic: {
		"vehicleNumber":  "economico",
		"operatorName":   "operador",
		"trailerPlates":  "placasRemolque",
		"routeReference": "referenciaRuta",
	},
	ModuleBilling: {
		"invoiceSeries":    "serie",
		"invoiceFolio":     "folio",
		"fiscalFolio":      "folioFiscal",
		"totalAmount":      "total",
		"clientIdentifier": "cliente",
	},
}

// MapFields projects a source record onto destination form fields using
// the module's correspondence table. Source keys match accent-folded, so
// records saved with and without diacritics resolve the same way.
func MapFields(module string, record map[string]string) map[string]string {
	table := fieldCorrespondence[module]
	if len(table) == 0 || len(record) == 0 {
		return map[string]string{}
	}

	folded := make(map[string]string, len(record))
	for key, value := range record {
		folded[Fold(key)] = value
	}

	out := make(map[string]string, len(table))
	for dest, src := range table {
		if value, ok := folded[Fold(src)]; ok && value != "" {
			out[dest] = value
		}
	}
	return out
}

var foldTransformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Fold lowercases a value and strips diacritics, for Spanish-insensitive
// field and value matching ("Económico" == "economico").
func Fold(s string) string {
	folded, _, err := transform.String(foldTransformer, s)
	if err != nil {
		return strings.ToLower(s)
	}
	return strings.ToLower(folded)
}

// EqualFolded compares two values accent- and case-insensitively.
func EqualFolded(a, b string) bool {
	return Fold(a) == Fold(b)
}
