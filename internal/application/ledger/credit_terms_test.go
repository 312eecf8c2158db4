package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/freightflow/backend/internal/domain/directory"
	"github.com/freightflow/backend/internal/domain/shared"
	"github.com/freightflow/backend/internal/session"
	"github.com/stretchr/testify/assert"
)

type fakeClients struct {
	clients map[string]*directory.Client
	err     error
	calls   int
}

func (f *fakeClients) Get(_ context.Context, _ session.Context, rfc string) (*directory.Client, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	client, ok := f.clients[rfc]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return client, nil
}

func TestCachedCreditTerms(t *testing.T) {
	ctx := context.Background()

	t.Run("resolves and caches the client term", func(t *testing.T) {
		clients := &fakeClients{clients: map[string]*directory.Client{
			"AAA010101AAA": {RFC: "AAA010101AAA", CreditTermDays: 45},
		}}
		terms := NewCachedCreditTerms(clients, nil)
		defer terms.Stop()

		assert.Equal(t, 45, terms.CreditTermDays(ctx, testSession, "AAA010101AAA"))
		assert.Equal(t, 45, terms.CreditTermDays(ctx, testSession, "AAA010101AAA"))
		assert.Equal(t, 1, clients.calls, "second lookup must come from the cache")
	})

	t.Run("unknown client reports zero without caching", func(t *testing.T) {
		clients := &fakeClients{}
		terms := NewCachedCreditTerms(clients, nil)
		defer terms.Stop()

		assert.Zero(t, terms.CreditTermDays(ctx, testSession, "GHOST"))
		assert.Zero(t, terms.CreditTermDays(ctx, testSession, "GHOST"))
		assert.Equal(t, 2, clients.calls)
	})

	t.Run("backend errors report zero", func(t *testing.T) {
		clients := &fakeClients{err: errors.New("directory down")}
		terms := NewCachedCreditTerms(clients, nil)
		defer terms.Stop()

		assert.Zero(t, terms.CreditTermDays(ctx, testSession, "AAA010101AAA"))
	})

	t.Run("empty client id short-circuits", func(t *testing.T) {
		clients := &fakeClients{}
		terms := NewCachedCreditTerms(clients, nil)
		defer terms.Stop()

		assert.Zero(t, terms.CreditTermDays(ctx, testSession, ""))
		assert.Zero(t, clients.calls)
	})

	t.Run("invalidation forces a fresh lookup", func(t *testing.T) {
		clients := &fakeClients{clients: map[string]*directory.Client{
			"AAA010101AAA": {RFC: "AAA010101AAA", CreditTermDays: 45},
		}}
		terms := NewCachedCreditTerms(clients, nil)
		defer terms.Stop()

		assert.Equal(t, 45, terms.CreditTermDays(ctx, testSession, "AAA010101AAA"))
		clients.clients["AAA010101AAA"].CreditTermDays = 60
		terms.Invalidate()
		assert.Equal(t, 60, terms.CreditTermDays(ctx, testSession, "AAA010101AAA"))
	})
}
