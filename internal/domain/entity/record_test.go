package entity_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/geniibooks/entitlements/internal/domain/entity"
	"github.com/geniibooks/entitlements/internal/domain/valueobject"
)

func TestSubscriptionRecord(t *testing.T) {
	now := time.Now()

	t.Run("new record is empty and unbound", func(t *testing.T) {
		record := entity.NewSubscriptionRecord()

		assert.Empty(t, record.IdentityID)
		assert.Empty(t, record.Grants)
		assert.False(t, record.HasActiveGrants(now))
	})

	t.Run("replace overwrites wholesale", func(t *testing.T) {
		record := entity.NewSubscriptionRecord()
		record.ReplaceGrants([]entity.EntitlementGrant{
			entity.NewSinglePurchaseGrant("1"),
			entity.NewSinglePurchaseGrant("3"),
		}, now)

		record.ReplaceGrants([]entity.EntitlementGrant{
			entity.NewSubscriptionGrant(valueobject.ScopeAllPDFs, now.Add(time.Hour)),
		}, now)

		assert.Len(t, record.Grants, 1)
		assert.Equal(t, now, record.LastSyncedAt)
	})

	t.Run("no duplicate grants for the same coverage", func(t *testing.T) {
		record := entity.NewSubscriptionRecord()
		record.ReplaceGrants([]entity.EntitlementGrant{
			entity.NewSubscriptionGrant("12", now.Add(time.Hour)),
			entity.NewSubscriptionGrant("12", now.Add(48*time.Hour)),
		}, now)

		assert.Len(t, record.Grants, 1)
	})

	t.Run("merge keeps existing coverage", func(t *testing.T) {
		record := entity.NewSubscriptionRecord()
		record.ReplaceGrants([]entity.EntitlementGrant{
			entity.NewSinglePurchaseGrant("1"),
		}, now)

		record.MergeGrants([]entity.EntitlementGrant{
			entity.NewSubscriptionGrant(valueobject.ScopeAllVideos, now.Add(time.Hour)),
		}, now.Add(time.Minute))

		assert.Len(t, record.Grants, 2)
	})

	t.Run("clear drops grants and identity", func(t *testing.T) {
		record := entity.NewSubscriptionRecord()
		record.IdentityID = "user_001"
		record.ReplaceGrants([]entity.EntitlementGrant{
			entity.NewSinglePurchaseGrant("1"),
		}, now)

		record.Clear()

		assert.Empty(t, record.IdentityID)
		assert.Empty(t, record.Grants)
	})

	t.Run("clone is independent of the original", func(t *testing.T) {
		record := entity.NewSubscriptionRecord()
		record.ReplaceGrants([]entity.EntitlementGrant{
			entity.NewSinglePurchaseGrant("1"),
		}, now)

		clone := record.Clone()
		record.Clear()

		assert.Len(t, clone.Grants, 1)
	})

	t.Run("expired grants are not active", func(t *testing.T) {
		record := entity.NewSubscriptionRecord()
		record.ReplaceGrants([]entity.EntitlementGrant{
			entity.NewSubscriptionGrant(valueobject.ScopeAllContent, now.Add(-time.Hour)),
		}, now)

		assert.False(t, record.HasActiveGrants(now))
	})
}
