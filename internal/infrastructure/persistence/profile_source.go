package persistence

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/freightflow/backend/internal/domain/shared"
	"github.com/freightflow/backend/internal/infrastructure/docstore"
	"go.uber.org/zap"
)

// UserProfileSource resolves a user's tenant id from the shared users
// collection. Resolution runs before a tenant is known, so it scans the
// raw document across tenants instead of going through a tenant-scoped
// repository.
type UserProfileSource struct {
	store  docstore.Store
	logger *zap.Logger
}

// NewUserProfileSource creates the source.
func NewUserProfileSource(store docstore.Store, logger *zap.Logger) *UserProfileSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserProfileSource{store: store, logger: logger}
}

// ProfileTenant returns the tenant id on the user's profile document.
// The user id is the account email, matched case-insensitively the same
// way the user repository keys it.
func (s *UserProfileSource) ProfileTenant(ctx context.Context, userID string) (string, error) {
	raw, err := s.store.Load(ctx, CollectionUsers)
	if err != nil {
		return "", err
	}
	if len(raw) == 0 {
		return "", shared.ErrNotFound
	}

	var items []struct {
		TenantID string `json:"tenantId"`
		Email    string `json:"email"`
	}
	if err := json.Unmarshal(raw, &items); err != nil {
		return "", err
	}

	for _, item := range items {
		if strings.EqualFold(item.Email, userID) {
			return item.TenantID, nil
		}
	}
	return "", shared.ErrNotFound
}
