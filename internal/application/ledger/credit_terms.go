package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/freightflow/backend/internal/domain/directory"
	ledgerdomain "github.com/freightflow/backend/internal/domain/ledger"
	"github.com/freightflow/backend/internal/domain/shared"
	"github.com/freightflow/backend/internal/infrastructure/cache"
	"github.com/freightflow/backend/internal/session"
	"go.uber.org/zap"
)

// CreditTermsCachePrefix namespaces cached credit-term lookups; directory
// writes to clients invalidate this prefix.
const CreditTermsCachePrefix = "credit_terms:"

// ClientLookup is the slice of the client directory the ledger needs.
type ClientLookup interface {
	Get(ctx context.Context, sess session.Context, rfc string) (*directory.Client, error)
}

// CachedCreditTerms resolves per-client credit terms through a TTL cache.
// Lookups never fail: unknown clients and backend errors report 0, which
// callers map to the default term.
type CachedCreditTerms struct {
	clients ClientLookup
	cache   *cache.TTLCache[int]
	logger  *zap.Logger
}

// NewCachedCreditTerms creates the cache-assisted term source.
func NewCachedCreditTerms(clients ClientLookup, logger *zap.Logger) *CachedCreditTerms {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedCreditTerms{
		clients: clients,
		cache:   cache.NewTTLCache[int](5*time.Minute, logger),
		logger:  logger,
	}
}

// CreditTermDays implements ledger.CreditTermSource.
func (c *CachedCreditTerms) CreditTermDays(ctx context.Context, sess session.Context, clientID string) int {
	if clientID == "" {
		return 0
	}
	key := CreditTermsCachePrefix + sess.TenantID + ":" + clientID
	if days, ok := c.cache.Get(key); ok {
		return days
	}

	client, err := c.clients.Get(ctx, sess, clientID)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			c.logger.Warn("Credit term lookup failed, using default",
				zap.String("client_id", clientID),
				zap.Error(err))
		}
		return 0
	}

	c.cache.Set(key, client.CreditTermDays)
	return client.CreditTermDays
}

// Invalidate drops every cached term. Called when client records change.
func (c *CachedCreditTerms) Invalidate() {
	c.cache.InvalidatePrefix(CreditTermsCachePrefix)
}

// Stop releases the cache's background resources.
func (c *CachedCreditTerms) Stop() {
	c.cache.Stop()
}

var _ ledgerdomain.CreditTermSource = (*CachedCreditTerms)(nil)
