package testutil

import (
	"time"

	"github.com/geniibooks/entitlements/internal/domain/entity"
	"github.com/geniibooks/entitlements/internal/domain/valueobject"
)

// ContentItem builds a catalog item with sane defaults for tests
func ContentItem(id string, kind valueobject.ContentKind, scopes ...string) *entity.ContentItem {
	vs := make([]valueobject.Scope, 0, len(scopes))
	for _, s := range scopes {
		vs = append(vs, valueobject.Scope(s))
	}
	price := int64(49)
	if kind == valueobject.KindVideo {
		price = 99
	}
	if kind == valueobject.KindCourseLecture {
		price = 0
	}
	return entity.NewContentItem(entity.ContentID(id), "Test "+id, kind, vs, price, false)
}

// FreeContentItem builds a free catalog item
func FreeContentItem(id string, kind valueobject.ContentKind, scopes ...string) *entity.ContentItem {
	item := ContentItem(id, kind, scopes...)
	item.IsFree = true
	return item
}

// ActiveSubscriptionGrant builds a subscription grant valid for 30 days
func ActiveSubscriptionGrant(scope string) entity.EntitlementGrant {
	return entity.NewSubscriptionGrant(valueobject.Scope(scope), time.Now().Add(30*24*time.Hour))
}

// ExpiredSubscriptionGrant builds a subscription grant that lapsed an hour ago
func ExpiredSubscriptionGrant(scope string) entity.EntitlementGrant {
	return entity.NewSubscriptionGrant(valueobject.Scope(scope), time.Now().Add(-time.Hour))
}
