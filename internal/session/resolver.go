package session

import (
	"context"

	"go.uber.org/zap"
)

// FallbackTenantID is the last-resort tenant id. Resolution never fails;
// a session that reaches this literal is still usable, just demo-scoped.
const FallbackTenantID = "freightflow-demo"

// LicenseSource reports the tenant id of the active license, if any.
type LicenseSource interface {
	ActiveLicenseTenant(ctx context.Context) string
}

// TenantCache is the locally cached tenant id from a previous resolution.
type TenantCache interface {
	CachedTenant() string
	Remember(tenantID string)
}

// ProfileSource looks up the tenant id on the authenticated user's
// profile document. This is the only step that costs a backend round-trip.
type ProfileSource interface {
	ProfileTenant(ctx context.Context, userID string) (string, error)
}

// Resolver derives the active tenant id from ambient session state.
// Priority order, first non-empty wins: active license, cached value,
// profile document, configured demo tenant, hard-coded fallback.
type Resolver struct {
	licenses     LicenseSource
	cache        TenantCache
	profiles     ProfileSource
	demoTenantID string
	logger       *zap.Logger
}

// NewResolver creates a tenant resolver. Any source may be nil; the
// chain simply skips it.
func NewResolver(licenses LicenseSource, cache TenantCache, profiles ProfileSource, demoTenantID string, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		licenses:     licenses,
		cache:        cache,
		profiles:     profiles,
		demoTenantID: demoTenantID,
		logger:       logger,
	}
}

// Resolve returns a usable session for the given user id (which may be
// empty for anonymous sessions). It never fails.
func (r *Resolver) Resolve(ctx context.Context, userID string) Context {
	sess := Context{UserID: userID, Authenticated: userID != ""}

	if r.licenses != nil {
		if id := r.licenses.ActiveLicenseTenant(ctx); id != "" {
			sess.TenantID, sess.Source = id, SourceLicense
			r.remember(id)
			r.logResolved(sess)
			return sess
		}
	}

	if r.cache != nil {
		if id := r.cache.CachedTenant(); id != "" {
			sess.TenantID, sess.Source = id, SourceCache
			r.logResolved(sess)
			return sess
		}
	}

	if r.profiles != nil && userID != "" {
		id, err := r.profiles.ProfileTenant(ctx, userID)
		if err != nil {
			r.logger.Warn("profile tenant lookup failed, falling through",
				zap.String("user_id", userID),
				zap.Error(err))
		} else if id != "" {
			sess.TenantID, sess.Source = id, SourceProfile
			r.remember(id)
			r.logResolved(sess)
			return sess
		}
	}

	if r.demoTenantID != "" {
		sess.TenantID, sess.Source = r.demoTenantID, SourceDemo
		r.logResolved(sess)
		return sess
	}

	sess.TenantID, sess.Source = FallbackTenantID, SourceFallback
	r.logResolved(sess)
	return sess
}

func (r *Resolver) remember(tenantID string) {
	if r.cache != nil {
		r.cache.Remember(tenantID)
	}
}

func (r *Resolver) logResolved(sess Context) {
	r.logger.Debug("tenant resolved",
		zap.String("tenant_id", sess.TenantID),
		zap.String("source", string(sess.Source)))
}
