package entity

import (
	"errors"
	"time"

	"github.com/geniibooks/entitlements/internal/domain/valueobject"
)

var (
	ErrEmptyScope         = errors.New("content item must carry at least one scope tag")
	ErrEmptyCoveredScope  = errors.New("grant must cover a scope or an item id")
	ErrSubscriptionNoTerm = errors.New("subscription grant must carry an expiry")
)

// EntitlementGrant is one unit of purchased or subscribed access.
// Subscription grants cover a scope and always expire; single-item
// purchases cover exactly one content id and are lifetime.
type EntitlementGrant struct {
	Type         valueobject.GrantType
	CoveredScope string
	ExpiresAt    *time.Time
}

// NewSubscriptionGrant creates a subscription grant covering a scope
func NewSubscriptionGrant(scope valueobject.Scope, expiresAt time.Time) EntitlementGrant {
	return EntitlementGrant{
		Type:         valueobject.GrantSubscription,
		CoveredScope: scope.String(),
		ExpiresAt:    &expiresAt,
	}
}

// NewSinglePurchaseGrant creates a lifetime grant for one content item
func NewSinglePurchaseGrant(itemID ContentID) EntitlementGrant {
	return EntitlementGrant{
		Type:         valueobject.GrantSinglePurchase,
		CoveredScope: string(itemID),
	}
}

// Key identifies the coverage of the grant. The record holds at most one
// grant per key.
func (g EntitlementGrant) Key() string {
	return g.Type.String() + ":" + g.CoveredScope
}

// IsActive reports whether the grant is in force at the given instant.
// An expired grant behaves as absent.
func (g EntitlementGrant) IsActive(now time.Time) bool {
	if g.ExpiresAt == nil {
		return true
	}
	return g.ExpiresAt.After(now)
}

// Covers reports whether the grant unlocks the given item at the given
// instant. Single-item grants match on the exact id; subscription grants
// match the wildcard scope, the scope covering the item's kind, or any of
// the item's own tags.
func (g EntitlementGrant) Covers(item *ContentItem, now time.Time) bool {
	if !g.IsActive(now) {
		return false
	}

	switch g.Type {
	case valueobject.GrantSinglePurchase:
		return g.CoveredScope == string(item.ID)
	case valueobject.GrantSubscription:
		scope := valueobject.Scope(g.CoveredScope)
		if scope == valueobject.ScopeAllContent {
			return true
		}
		if kindScope, ok := valueobject.KindScope(item.Kind); ok && scope == kindScope {
			return true
		}
		return item.HasScope(scope)
	default:
		return false
	}
}

// Validate checks the structural invariants of the grant
func (g EntitlementGrant) Validate() error {
	if !g.Type.IsValid() {
		return valueobject.ErrInvalidGrantType
	}
	if g.CoveredScope == "" {
		return ErrEmptyCoveredScope
	}
	if g.Type == valueobject.GrantSubscription && g.ExpiresAt == nil {
		return ErrSubscriptionNoTerm
	}
	return nil
}
