package billing

import (
	"context"
	"time"

	"github.com/geniibooks/entitlements/internal/domain/entity"
)

// PackageRef identifies one purchasable subscription offering. FetchToken
// carries the store receipt token on purchase calls and is empty on
// listings.
type PackageRef struct {
	Identifier string
	ProductID  string
	Title      string
	Price      int64
	Duration   string
	FetchToken string
}

// Snapshot is the gateway's authoritative view of an identity's
// entitlements at one instant.
type Snapshot struct {
	Grants    []entity.EntitlementGrant
	FetchedAt time.Time
}

// EntitlementsChanged is pushed by the gateway whenever its backend
// records a change for the bound identity (renewal, expiry, cross-device
// purchase).
type EntitlementsChanged struct {
	IdentityID string
	OccurredAt time.Time
}

// Gateway is the consumed surface of the external subscription backend.
// Implementations perform network I/O; every call honors the context.
// User cancellation of a purchase surfaces as ErrPurchaseCancelled from
// the domain errors package.
type Gateway interface {
	// BindIdentity associates the given identity with the gateway (login)
	BindIdentity(ctx context.Context, identityID string) error

	// UnbindIdentity dissolves the association (logout)
	UnbindIdentity(ctx context.Context) error

	// ListPackages returns the purchasable subscription offerings
	ListPackages(ctx context.Context) ([]PackageRef, error)

	// Purchase executes a purchase and returns the gateway's
	// post-purchase entitlement snapshot
	Purchase(ctx context.Context, pkg PackageRef) (*Snapshot, error)

	// Restore replays prior purchases onto the bound identity
	Restore(ctx context.Context) (*Snapshot, error)

	// CurrentEntitlements returns the current entitlement set for the
	// bound identity
	CurrentEntitlements(ctx context.Context) (*Snapshot, error)

	// SetProfileAttributes pushes profile attributes for targeting and
	// analytics. Best effort; failures are non-fatal.
	SetProfileAttributes(ctx context.Context, attrs map[string]string) error

	// Events returns the channel carrying gateway-pushed entitlement
	// change notifications. The channel is owned by the gateway and
	// closed when the gateway shuts down.
	Events() <-chan EntitlementsChanged
}
