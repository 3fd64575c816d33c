package service_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geniibooks/entitlements/internal/domain/entity"
	domainErrors "github.com/geniibooks/entitlements/internal/domain/errors"
	"github.com/geniibooks/entitlements/internal/domain/service"
	"github.com/geniibooks/entitlements/internal/domain/valueobject"
)

var testPricing = service.Pricing{
	valueobject.KindPDF:   49,
	valueobject.KindVideo: 99,
}

func newResolver(t *testing.T) *service.EntitlementResolver {
	t.Helper()
	resolver, err := service.NewEntitlementResolver(testPricing)
	require.NoError(t, err)
	return resolver
}

func item(id entity.ContentID, kind valueobject.ContentKind, isFree bool, scopes ...valueobject.Scope) *entity.ContentItem {
	price := int64(0)
	return entity.NewContentItem(id, "item "+string(id), kind, scopes, price, isFree)
}

func recordWith(grants ...entity.EntitlementGrant) *entity.SubscriptionRecord {
	record := entity.NewSubscriptionRecord()
	record.ReplaceGrants(grants, time.Now())
	return record
}

func TestNewEntitlementResolver(t *testing.T) {
	t.Run("rejects missing pdf price", func(t *testing.T) {
		_, err := service.NewEntitlementResolver(service.Pricing{
			valueobject.KindVideo: 99,
		})

		var cfgErr *domainErrors.ConfigError
		assert.ErrorAs(t, err, &cfgErr)
	})

	t.Run("rejects negative price", func(t *testing.T) {
		_, err := service.NewEntitlementResolver(service.Pricing{
			valueobject.KindPDF:   -1,
			valueobject.KindVideo: 99,
		})

		assert.Error(t, err)
	})

	t.Run("rejects unknown content kind", func(t *testing.T) {
		_, err := service.NewEntitlementResolver(service.Pricing{
			valueobject.KindPDF:        49,
			valueobject.KindVideo:      99,
			valueobject.ContentKind("quiz"): 10,
		})

		assert.Error(t, err)
	})
}

func TestResolveAccess(t *testing.T) {
	resolver := newResolver(t)
	future := time.Now().Add(365 * 24 * time.Hour)
	past := time.Now().Add(-24 * time.Hour)

	t.Run("free content is always accessible", func(t *testing.T) {
		free := item("2", valueobject.KindPDF, true, "11", "12")

		for name, record := range map[string]*entity.SubscriptionRecord{
			"empty record":      entity.NewSubscriptionRecord(),
			"subscribed record": recordWith(entity.NewSubscriptionGrant(valueobject.ScopeAllPDFs, future)),
		} {
			decision := resolver.ResolveAccess(record, free)
			assert.True(t, decision.Granted, name)
			assert.Equal(t, service.ReasonFree, decision.Reason, name)
		}
	})

	t.Run("empty record locks paid content with single-item price", func(t *testing.T) {
		decision := resolver.ResolveAccess(entity.NewSubscriptionRecord(), item("1", valueobject.KindPDF, false, "12"))

		assert.False(t, decision.Granted)
		assert.Equal(t, service.ReasonLocked, decision.Reason)
		assert.Equal(t, int64(49), decision.PriceIfLocked)
	})

	t.Run("video locks at video price", func(t *testing.T) {
		decision := resolver.ResolveAccess(entity.NewSubscriptionRecord(), item("5", valueobject.KindVideo, false, "11"))

		assert.Equal(t, int64(99), decision.PriceIfLocked)
	})

	t.Run("single purchase grants are item-exact", func(t *testing.T) {
		record := recordWith(entity.NewSinglePurchaseGrant("1"))
		purchased := item("1", valueobject.KindPDF, false, "12")
		sibling := item("3", valueobject.KindPDF, false, "12")

		granted := resolver.ResolveAccess(record, purchased)
		assert.True(t, granted.Granted)
		assert.Equal(t, service.ReasonSinglePurchase, granted.Reason)

		locked := resolver.ResolveAccess(record, sibling)
		assert.False(t, locked.Granted)
	})

	t.Run("subscription scope containment", func(t *testing.T) {
		record := recordWith(entity.NewSubscriptionGrant(valueobject.ScopeAllVideos, future))

		video := resolver.ResolveAccess(record, item("5", valueobject.KindVideo, false, "11"))
		assert.True(t, video.Granted)
		assert.Equal(t, service.ReasonSubscriptionMatch, video.Reason)

		pdf := resolver.ResolveAccess(record, item("1", valueobject.KindPDF, false, "11"))
		assert.False(t, pdf.Granted)
	})

	t.Run("class scoped subscription matches tag", func(t *testing.T) {
		record := recordWith(entity.NewSubscriptionGrant("12", future))

		inClass := resolver.ResolveAccess(record, item("8", valueobject.KindPDF, false, "12"))
		assert.True(t, inClass.Granted)

		otherClass := resolver.ResolveAccess(record, item("13", valueobject.KindPDF, false, "10"))
		assert.False(t, otherClass.Granted)
	})

	t.Run("wildcard subscription unlocks everything paid", func(t *testing.T) {
		record := recordWith(entity.NewSubscriptionGrant(valueobject.ScopeAllContent, future))

		for _, it := range []*entity.ContentItem{
			item("1", valueobject.KindPDF, false, "12"),
			item("5", valueobject.KindVideo, false, "11"),
			item("20", valueobject.KindCourseLecture, false, "neet"),
		} {
			decision := resolver.ResolveAccess(record, it)
			assert.True(t, decision.Granted, string(it.ID))
		}
	})

	t.Run("expired grant behaves as absent", func(t *testing.T) {
		expired := recordWith(entity.NewSubscriptionGrant(valueobject.ScopeAllPDFs, past))
		empty := entity.NewSubscriptionRecord()
		pdf := item("1", valueobject.KindPDF, false, "12")

		assert.Equal(t, resolver.ResolveAccess(empty, pdf), resolver.ResolveAccess(expired, pdf))
	})

	t.Run("single purchase reason wins over subscription", func(t *testing.T) {
		record := recordWith(
			entity.NewSubscriptionGrant(valueobject.ScopeAllPDFs, future),
			entity.NewSinglePurchaseGrant("1"),
		)

		decision := resolver.ResolveAccess(record, item("1", valueobject.KindPDF, false, "12"))
		assert.True(t, decision.Granted)
		assert.Equal(t, service.ReasonSinglePurchase, decision.Reason)
	})

	t.Run("purchase unlock scenario", func(t *testing.T) {
		record := entity.NewSubscriptionRecord()
		free := item("2", valueobject.KindPDF, true, "11")
		paid := item("1", valueobject.KindPDF, false, "11")
		other := item("3", valueobject.KindPDF, false, "11")

		assert.Equal(t, service.ReasonFree, resolver.ResolveAccess(record, free).Reason)

		before := resolver.ResolveAccess(record, paid)
		assert.False(t, before.Granted)
		assert.Equal(t, int64(49), before.PriceIfLocked)

		record.MergeGrants([]entity.EntitlementGrant{entity.NewSinglePurchaseGrant("1")}, time.Now())

		after := resolver.ResolveAccess(record, paid)
		assert.True(t, after.Granted)
		assert.Equal(t, service.ReasonSinglePurchase, after.Reason)

		assert.False(t, resolver.ResolveAccess(record, other).Granted)
	})

	t.Run("pdf subscription scenario", func(t *testing.T) {
		record := recordWith(entity.NewSubscriptionGrant(valueobject.ScopeAllPDFs, future))

		paidPDF := resolver.ResolveAccess(record, item("1", valueobject.KindPDF, false, "12"))
		assert.True(t, paidPDF.Granted)
		assert.Equal(t, service.ReasonSubscriptionMatch, paidPDF.Reason)

		// free items still report the free reason, rule priority holds
		freePDF := resolver.ResolveAccess(record, item("2", valueobject.KindPDF, true, "12"))
		assert.True(t, freePDF.Granted)
		assert.Equal(t, service.ReasonFree, freePDF.Reason)

		video := resolver.ResolveAccess(record, item("5", valueobject.KindVideo, false, "12"))
		assert.False(t, video.Granted)
	})
}

func TestPriceForKind(t *testing.T) {
	resolver := newResolver(t)

	assert.Equal(t, int64(49), resolver.PriceForKind(valueobject.KindPDF))
	assert.Equal(t, int64(99), resolver.PriceForKind(valueobject.KindVideo))
	// lectures are sold through their parent course
	assert.Equal(t, int64(0), resolver.PriceForKind(valueobject.KindCourseLecture))
}
