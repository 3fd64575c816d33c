package cache

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/geniibooks/entitlements/internal/domain/billing"
	"github.com/geniibooks/entitlements/internal/domain/entity"
)

// SnapshotFetcher fetches the authoritative entitlement snapshot for one
// identity from the billing gateway, independent of any bound session.
type SnapshotFetcher interface {
	EntitlementsFor(ctx context.Context, identityID string) (*billing.Snapshot, error)
}

// GrantSource answers per-identity grant lookups. It reads the Redis
// snapshot the resync worker maintains and falls back to the gateway on a
// miss, writing the fetched snapshot back so the next lookup is a hit.
type GrantSource struct {
	cache   *EntitlementCache
	fetcher SnapshotFetcher
	logger  *zap.Logger
}

// NewGrantSource creates a grant source backed by the snapshot cache
func NewGrantSource(cache *EntitlementCache, fetcher SnapshotFetcher, logger *zap.Logger) *GrantSource {
	return &GrantSource{
		cache:   cache,
		fetcher: fetcher,
		logger:  logger,
	}
}

// GrantsFor returns the grants held by the given identity
func (s *GrantSource) GrantsFor(ctx context.Context, identityID string) ([]entity.EntitlementGrant, error) {
	grants, _, err := s.cache.GetSnapshot(ctx, identityID)
	if err == nil {
		return grants, nil
	}
	if !errors.Is(err, ErrSnapshotMiss) {
		s.logger.Warn("snapshot read failed, falling back to gateway",
			zap.String("identity_id", identityID),
			zap.Error(err),
		)
	}

	snap, err := s.fetcher.EntitlementsFor(ctx, identityID)
	if err != nil {
		return nil, err
	}
	if err := s.cache.SetSnapshot(ctx, identityID, snap.Grants, snap.FetchedAt); err != nil {
		s.logger.Warn("snapshot write-back failed",
			zap.String("identity_id", identityID),
			zap.Error(err),
		)
	}
	return snap.Grants, nil
}
