package revenuecat

import (
	"strings"
	"time"

	"github.com/geniibooks/entitlements/internal/domain/billing"
	"github.com/geniibooks/entitlements/internal/domain/entity"
	"github.com/geniibooks/entitlements/internal/domain/valueobject"
)

// ========== WIRE TYPES ==========

const codePurchaseCancelled = 7226

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type offeringsResponse struct {
	CurrentOfferingID string         `json:"current_offering_id"`
	Offerings         []wireOffering `json:"offerings"`
}

type wireOffering struct {
	Identifier string        `json:"identifier"`
	Packages   []wirePackage `json:"packages"`
}

type wirePackage struct {
	Identifier                string `json:"identifier"`
	PlatformProductIdentifier string `json:"platform_product_identifier"`
	Title                     string `json:"title"`
	Price                     int64  `json:"price"`
	Duration                  string `json:"duration"`
}

type receiptRequest struct {
	AppUserID  string `json:"app_user_id"`
	ProductID  string `json:"product_id"`
	FetchToken string `json:"fetch_token"`
}

type attributesRequest struct {
	Attributes map[string]attributeValue `json:"attributes"`
}

type attributeValue struct {
	Value string `json:"value"`
}

type subscriberResponse struct {
	Subscriber wireSubscriber `json:"subscriber"`
}

type wireSubscriber struct {
	Entitlements         map[string]wireEntitlement `json:"entitlements"`
	NonSubscriptions     map[string][]wirePurchase  `json:"non_subscriptions"`
	OriginalAppUserID    string                     `json:"original_app_user_id"`
	LastSeen             time.Time                  `json:"last_seen"`
	FirstSeen            time.Time                  `json:"first_seen"`
	ManagementURL        string                     `json:"management_url"`
	OriginalPurchaseDate *time.Time                 `json:"original_purchase_date"`
}

type wireEntitlement struct {
	ExpiresDate       *time.Time `json:"expires_date"`
	PurchaseDate      time.Time  `json:"purchase_date"`
	ProductIdentifier string     `json:"product_identifier"`
}

type wirePurchase struct {
	ID           string    `json:"id"`
	PurchaseDate time.Time `json:"purchase_date"`
	Store        string    `json:"store"`
}

// ========== GRANT MAPPING ==========

// singleItemPrefix marks non-subscription product identifiers that unlock
// exactly one catalog item: "item_<contentID>".
const singleItemPrefix = "item_"

// scopeFromEntitlementKey maps a gateway entitlement key onto a coverage
// scope. Keys are configured on the gateway dashboard as either a
// catalog-wide scope (all_content, all_pdfs, all_videos) or a class tag
// prefixed with "class_" (class_10, class_neet).
func scopeFromEntitlementKey(key string) (valueobject.Scope, bool) {
	switch key {
	case string(valueobject.ScopeAllContent), string(valueobject.ScopeAllPDFs), string(valueobject.ScopeAllVideos):
		return valueobject.Scope(key), true
	}
	if tag, ok := strings.CutPrefix(key, "class_"); ok && tag != "" {
		return valueobject.Scope(tag), true
	}
	return "", false
}

// lifetimeHorizon stands in for the missing expiry on promotional
// lifetime entitlements, which the gateway reports with no expires_date.
func lifetimeHorizon(purchased time.Time) time.Time {
	if purchased.IsZero() {
		purchased = time.Now()
	}
	return purchased.AddDate(100, 0, 0)
}

// snapshotFromSubscriber converts the gateway's subscriber view into the
// domain snapshot. Unknown entitlement keys are skipped rather than
// rejected so a dashboard-side addition never breaks existing clients.
func snapshotFromSubscriber(resp *subscriberResponse) *billing.Snapshot {
	snap := &billing.Snapshot{FetchedAt: time.Now()}

	for key, ent := range resp.Subscriber.Entitlements {
		scope, ok := scopeFromEntitlementKey(key)
		if !ok {
			continue
		}
		expiresAt := lifetimeHorizon(ent.PurchaseDate)
		if ent.ExpiresDate != nil {
			expiresAt = *ent.ExpiresDate
		}
		snap.Grants = append(snap.Grants, entity.NewSubscriptionGrant(scope, expiresAt))
	}

	for productID := range resp.Subscriber.NonSubscriptions {
		itemID, ok := strings.CutPrefix(productID, singleItemPrefix)
		if !ok || itemID == "" {
			continue
		}
		snap.Grants = append(snap.Grants, entity.NewSinglePurchaseGrant(entity.ContentID(itemID)))
	}

	return snap
}
