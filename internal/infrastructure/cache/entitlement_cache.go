package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/geniibooks/entitlements/internal/domain/entity"
	"github.com/geniibooks/entitlements/internal/domain/valueobject"
)

// Cache key and TTL constants
const (
	KeySnapshot = "entitlements:snapshot:%s"

	TTLSnapshot = 24 * time.Hour
)

// ErrSnapshotMiss is returned when no snapshot is cached for an identity.
var ErrSnapshotMiss = errors.New("no cached snapshot")

// cachedGrant is the wire shape of one grant inside a cached snapshot
type cachedGrant struct {
	Type         string     `json:"type"`
	CoveredScope string     `json:"covered_scope"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
}

type cachedSnapshot struct {
	Grants    []cachedGrant `json:"grants"`
	FetchedAt time.Time     `json:"fetched_at"`
}

// EntitlementCache keeps the last known entitlement snapshot per identity
// in Redis. The background resync worker writes it; readers treat a miss
// as "no known grants" and fall back to the gateway.
type EntitlementCache struct {
	client *redis.Client
	logger *zap.Logger
}

// NewEntitlementCache creates a new entitlement snapshot cache
func NewEntitlementCache(client *redis.Client, logger *zap.Logger) *EntitlementCache {
	return &EntitlementCache{
		client: client,
		logger: logger,
	}
}

// SetSnapshot stores the grants for an identity
func (c *EntitlementCache) SetSnapshot(ctx context.Context, identityID string, grants []entity.EntitlementGrant, fetchedAt time.Time) error {
	snap := cachedSnapshot{
		Grants:    make([]cachedGrant, 0, len(grants)),
		FetchedAt: fetchedAt,
	}
	for _, g := range grants {
		snap.Grants = append(snap.Grants, cachedGrant{
			Type:         g.Type.String(),
			CoveredScope: g.CoveredScope,
			ExpiresAt:    g.ExpiresAt,
		})
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	key := fmt.Sprintf(KeySnapshot, identityID)
	if err := c.client.Set(ctx, key, data, TTLSnapshot).Err(); err != nil {
		return fmt.Errorf("failed to cache snapshot: %w", err)
	}
	return nil
}

// GetSnapshot returns the cached grants for an identity
func (c *EntitlementCache) GetSnapshot(ctx context.Context, identityID string) ([]entity.EntitlementGrant, time.Time, error) {
	key := fmt.Sprintf(KeySnapshot, identityID)

	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, time.Time{}, ErrSnapshotMiss
		}
		return nil, time.Time{}, fmt.Errorf("failed to read snapshot: %w", err)
	}

	var snap cachedSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, time.Time{}, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}

	grants := make([]entity.EntitlementGrant, 0, len(snap.Grants))
	for _, g := range snap.Grants {
		grants = append(grants, entity.EntitlementGrant{
			Type:         valueobject.GrantType(g.Type),
			CoveredScope: g.CoveredScope,
			ExpiresAt:    g.ExpiresAt,
		})
	}
	return grants, snap.FetchedAt, nil
}

// Invalidate drops the cached snapshot for an identity
func (c *EntitlementCache) Invalidate(ctx context.Context, identityID string) error {
	key := fmt.Sprintf(KeySnapshot, identityID)
	if err := c.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to invalidate snapshot: %w", err)
	}
	return nil
}

// SweepExpired walks all cached snapshots and drops grants whose term has
// lapsed. Snapshots left empty are removed entirely.
func (c *EntitlementCache) SweepExpired(ctx context.Context, now time.Time) (int, error) {
	pattern := fmt.Sprintf(KeySnapshot, "*")
	swept := 0

	iter := c.client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()

		data, err := c.client.Get(ctx, key).Bytes()
		if err != nil {
			continue
		}
		var snap cachedSnapshot
		if err := json.Unmarshal(data, &snap); err != nil {
			c.logger.Warn("dropping unreadable snapshot", zap.String("key", key))
			if err := c.client.Del(ctx, key).Err(); err != nil {
				c.logger.Warn("failed to drop snapshot", zap.String("key", key), zap.Error(err))
			}
			continue
		}

		kept := snap.Grants[:0]
		for _, g := range snap.Grants {
			if g.ExpiresAt == nil || g.ExpiresAt.After(now) {
				kept = append(kept, g)
			}
		}
		if len(kept) == len(snap.Grants) {
			continue
		}
		swept += len(snap.Grants) - len(kept)
		snap.Grants = kept

		if len(snap.Grants) == 0 {
			if err := c.client.Del(ctx, key).Err(); err != nil {
				c.logger.Warn("failed to drop empty snapshot", zap.String("key", key), zap.Error(err))
			}
			continue
		}

		updated, err := json.Marshal(snap)
		if err != nil {
			continue
		}
		if err := c.client.Set(ctx, key, updated, redis.KeepTTL).Err(); err != nil {
			c.logger.Warn("failed to rewrite snapshot", zap.String("key", key), zap.Error(err))
		}
	}
	if err := iter.Err(); err != nil {
		return swept, fmt.Errorf("failed to scan snapshots: %w", err)
	}
	return swept, nil
}
