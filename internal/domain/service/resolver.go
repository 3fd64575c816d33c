package service

import (
	"time"

	"github.com/geniibooks/entitlements/internal/domain/entity"
	domainErrors "github.com/geniibooks/entitlements/internal/domain/errors"
	"github.com/geniibooks/entitlements/internal/domain/valueobject"
)

// AccessReason explains why an access decision came out the way it did
type AccessReason string

const (
	ReasonFree              AccessReason = "free"
	ReasonSinglePurchase    AccessReason = "single_purchase_match"
	ReasonSubscriptionMatch AccessReason = "subscription_match"
	ReasonLocked            AccessReason = "locked"
)

// AccessDecision is the resolver's answer for one (record, item) pair.
// PriceIfLocked is only meaningful when Granted is false.
type AccessDecision struct {
	Granted       bool
	Reason        AccessReason
	PriceIfLocked int64
}

// Pricing is the configured single-item price per content kind. Course
// lectures are priced through their parent course and carry no single
// price here.
type Pricing map[valueobject.ContentKind]int64

// EntitlementResolver decides access and price for content items. It is
// pure: no I/O, fully deterministic given the record, the item and the
// clock.
type EntitlementResolver struct {
	pricing Pricing
	now     func() time.Time
}

// NewEntitlementResolver creates a resolver. The pricing table is
// validated here so resolution itself can never fail: a missing or
// negative price for a single-purchasable kind is a ConfigError.
func NewEntitlementResolver(pricing Pricing) (*EntitlementResolver, error) {
	for _, kind := range []valueobject.ContentKind{valueobject.KindPDF, valueobject.KindVideo} {
		price, ok := pricing[kind]
		if !ok {
			return nil, &domainErrors.ConfigError{
				Field:  "pricing." + kind.String(),
				Reason: "single-item price is required",
			}
		}
		if price < 0 {
			return nil, &domainErrors.ConfigError{
				Field:  "pricing." + kind.String(),
				Reason: "single-item price must be non-negative",
			}
		}
	}
	for kind := range pricing {
		if !kind.IsValid() {
			return nil, &domainErrors.ConfigError{
				Field:  "pricing." + kind.String(),
				Reason: "unknown content kind",
			}
		}
	}
	return &EntitlementResolver{
		pricing: pricing,
		now:     time.Now,
	}, nil
}

// ResolveAccess decides whether the record unlocks the item. The checks
// run in priority order and the first match wins: free content, then
// exact single-item purchases, then subscription coverage. The ordering
// only affects Reason, never Granted.
func (r *EntitlementResolver) ResolveAccess(record *entity.SubscriptionRecord, item *entity.ContentItem) AccessDecision {
	if item.IsFree {
		return AccessDecision{Granted: true, Reason: ReasonFree}
	}

	now := r.now()

	for _, grant := range record.Grants {
		if grant.Type == valueobject.GrantSinglePurchase && grant.Covers(item, now) {
			return AccessDecision{Granted: true, Reason: ReasonSinglePurchase}
		}
	}

	for _, grant := range record.Grants {
		if grant.Type == valueobject.GrantSubscription && grant.Covers(item, now) {
			return AccessDecision{Granted: true, Reason: ReasonSubscriptionMatch}
		}
	}

	return AccessDecision{
		Granted:       false,
		Reason:        ReasonLocked,
		PriceIfLocked: r.PriceForKind(item.Kind),
	}
}

// PriceForKind returns the configured single-item price for the kind.
// Kinds without a single price (course lectures) price at zero; they are
// sold through their parent course.
func (r *EntitlementResolver) PriceForKind(kind valueobject.ContentKind) int64 {
	return r.pricing[kind]
}
