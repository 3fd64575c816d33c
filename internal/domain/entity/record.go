package entity

import (
	"time"
)

// SubscriptionRecord is the authoritative local view of one identity's
// entitlements. The billing gateway remains the source of truth; the
// record is a cache that is replaced wholesale on every successful sync.
type SubscriptionRecord struct {
	IdentityID   string
	Grants       map[string]EntitlementGrant
	LastSyncedAt time.Time
}

// NewSubscriptionRecord creates an empty, unbound record
func NewSubscriptionRecord() *SubscriptionRecord {
	return &SubscriptionRecord{
		Grants: make(map[string]EntitlementGrant),
	}
}

// ReplaceGrants overwrites the cached grants with the gateway's current
// snapshot. Duplicate coverage collapses onto a single grant per key.
func (r *SubscriptionRecord) ReplaceGrants(grants []EntitlementGrant, syncedAt time.Time) {
	r.Grants = make(map[string]EntitlementGrant, len(grants))
	for _, g := range grants {
		r.Grants[g.Key()] = g
	}
	r.LastSyncedAt = syncedAt
}

// MergeGrants appends grants from a post-purchase or restore snapshot,
// keeping existing coverage. A newer grant for the same coverage wins.
func (r *SubscriptionRecord) MergeGrants(grants []EntitlementGrant, syncedAt time.Time) {
	for _, g := range grants {
		r.Grants[g.Key()] = g
	}
	r.LastSyncedAt = syncedAt
}

// Clear drops all grants and unbinds the identity
func (r *SubscriptionRecord) Clear() {
	r.IdentityID = ""
	r.Grants = make(map[string]EntitlementGrant)
	r.LastSyncedAt = time.Time{}
}

// HasActiveGrants reports whether any grant is currently in force
func (r *SubscriptionRecord) HasActiveGrants(now time.Time) bool {
	for _, g := range r.Grants {
		if g.IsActive(now) {
			return true
		}
	}
	return false
}

// Clone returns an independent copy safe to hand to readers
func (r *SubscriptionRecord) Clone() *SubscriptionRecord {
	grants := make(map[string]EntitlementGrant, len(r.Grants))
	for k, g := range r.Grants {
		grants[k] = g
	}
	return &SubscriptionRecord{
		IdentityID:   r.IdentityID,
		Grants:       grants,
		LastSyncedAt: r.LastSyncedAt,
	}
}
