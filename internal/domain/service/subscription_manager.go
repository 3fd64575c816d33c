package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/geniibooks/entitlements/internal/domain/billing"
	"github.com/geniibooks/entitlements/internal/domain/entity"
	domainErrors "github.com/geniibooks/entitlements/internal/domain/errors"
)

// SyncState describes where the manager is in its lifecycle
type SyncState string

const (
	StateUninitialized SyncState = "uninitialized"
	StateSyncing       SyncState = "syncing"
	StateReady         SyncState = "ready"
)

// PurchaseResult is returned to the caller as a value, never thrown.
// Cancelled is the user backing out of the store dialog; it leaves the
// record untouched.
type PurchaseResult struct {
	Success   bool
	Cancelled bool
	Err       error
}

// RestoreResult reports the outcome of replaying prior purchases. An
// identity that never purchased anything restores successfully with
// HasActiveSubscription false.
type RestoreResult struct {
	Success               bool
	HasActiveSubscription bool
	Err                   error
}

// SubscriptionManager owns the authoritative SubscriptionRecord for the
// current identity and is the only component allowed to mutate it. All
// mutating operations serialize on an internal mutex: a purchase racing a
// gateway-pushed refresh must not interleave on the grants, and since
// both end in the gateway's authoritative snapshot, last write wins.
type SubscriptionManager struct {
	mu      sync.Mutex
	state   SyncState
	record  *entity.SubscriptionRecord
	syncErr error

	gateway billing.Gateway
	logger  *zap.Logger
	now     func() time.Time
}

// NewSubscriptionManager creates a manager in the uninitialized state
func NewSubscriptionManager(gateway billing.Gateway, logger *zap.Logger) *SubscriptionManager {
	return &SubscriptionManager{
		state:   StateUninitialized,
		record:  entity.NewSubscriptionRecord(),
		gateway: gateway,
		logger:  logger,
		now:     time.Now,
	}
}

// Initialize binds the identity (when given) and performs the first sync.
// A gateway failure is recovered locally: the manager still reaches the
// ready state with an empty record, the safe degradation, and a
// SyncError is returned for the caller to surface.
func (m *SubscriptionManager) Initialize(ctx context.Context, identityID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.state = StateSyncing

	if identityID != "" {
		if err := m.gateway.BindIdentity(ctx, identityID); err != nil {
			m.record = entity.NewSubscriptionRecord()
			m.state = StateReady
			m.syncErr = &domainErrors.SyncError{Op: "initialize", Err: err}
			m.logger.Warn("identity bind failed, starting with empty record",
				zap.String("identity_id", identityID),
				zap.Error(err),
			)
			return m.syncErr
		}
	}
	m.record.IdentityID = identityID

	snapshot, err := m.gateway.CurrentEntitlements(ctx)
	if err != nil {
		m.record.ReplaceGrants(nil, time.Time{})
		m.state = StateReady
		m.syncErr = &domainErrors.SyncError{Op: "initialize", Err: err}
		m.logger.Warn("initial entitlement sync failed, record is empty",
			zap.String("identity_id", identityID),
			zap.Error(err),
		)
		return m.syncErr
	}

	m.record.ReplaceGrants(snapshot.Grants, m.now())
	m.state = StateReady
	m.syncErr = nil
	m.logger.Info("subscription state initialized",
		zap.String("identity_id", identityID),
		zap.Int("grants", len(snapshot.Grants)),
	)
	return nil
}

// Purchase delegates to the gateway and merges the grants from its
// authoritative post-purchase snapshot. The grant is never synthesized
// locally: the gateway may apply proration, bundling or regional pricing
// this core does not model. Cancellation and failure leave the record
// byte-for-byte unchanged.
func (m *SubscriptionManager) Purchase(ctx context.Context, pkg billing.PackageRef) PurchaseResult {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot, err := m.gateway.Purchase(ctx, pkg)
	if err != nil {
		if errors.Is(err, domainErrors.ErrPurchaseCancelled) {
			m.logger.Info("purchase cancelled by user",
				zap.String("package", pkg.Identifier),
			)
			return PurchaseResult{Cancelled: true}
		}
		m.logger.Error("purchase failed",
			zap.String("package", pkg.Identifier),
			zap.Error(err),
		)
		return PurchaseResult{Err: err}
	}

	m.record.MergeGrants(snapshot.Grants, m.now())
	m.logger.Info("purchase completed",
		zap.String("package", pkg.Identifier),
		zap.Int("grants", len(snapshot.Grants)),
	)
	return PurchaseResult{Success: true}
}

// Restore replays prior purchases. A successful restore replaces the
// grants wholesale with the gateway's snapshot; an empty snapshot is a
// valid outcome for an identity that never purchased, not an error.
// The HasActiveSubscription flag is derived from the returned snapshot
// only, never from previously held grants: the gateway's answer is the
// truth about what the caller's store account actually owns.
func (m *SubscriptionManager) Restore(ctx context.Context) RestoreResult {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot, err := m.gateway.Restore(ctx)
	if err != nil {
		m.logger.Error("restore failed", zap.Error(err))
		return RestoreResult{Err: err}
	}

	if len(snapshot.Grants) > 0 {
		m.record.ReplaceGrants(snapshot.Grants, m.now())
	}

	now := m.now()
	active := false
	for _, g := range snapshot.Grants {
		if g.IsActive(now) {
			active = true
			break
		}
	}
	return RestoreResult{
		Success:               true,
		HasActiveSubscription: active,
	}
}

// Refresh re-fetches the gateway's current snapshot and replaces the
// grants wholesale. On failure the previous known-good grants are kept:
// a billing outage must never look like the user lost access they paid
// for. The failure is recorded and returned as a SyncError.
func (m *SubscriptionManager) Refresh(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refreshLocked(ctx)
}

func (m *SubscriptionManager) refreshLocked(ctx context.Context) error {
	m.state = StateSyncing

	snapshot, err := m.gateway.CurrentEntitlements(ctx)
	if err != nil {
		m.state = StateReady
		m.syncErr = &domainErrors.SyncError{Op: "refresh", Err: err}
		m.logger.Warn("entitlement refresh failed, keeping cached grants",
			zap.String("identity_id", m.record.IdentityID),
			zap.Time("last_synced_at", m.record.LastSyncedAt),
			zap.Error(err),
		)
		return m.syncErr
	}

	m.record.ReplaceGrants(snapshot.Grants, m.now())
	m.state = StateReady
	m.syncErr = nil
	return nil
}

// Login binds a new identity, pushes optional profile attributes for
// targeting, then syncs. Logging in twice with the same identity re-syncs
// rather than erroring.
func (m *SubscriptionManager) Login(ctx context.Context, identityID string, attrs map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.gateway.BindIdentity(ctx, identityID); err != nil {
		m.logger.Error("login bind failed",
			zap.String("identity_id", identityID),
			zap.Error(err),
		)
		return &domainErrors.SyncError{Op: "login", Err: err}
	}
	m.record.IdentityID = identityID

	if len(attrs) > 0 {
		// Attribute push is for analytics targeting only
		if err := m.gateway.SetProfileAttributes(ctx, attrs); err != nil {
			m.logger.Warn("profile attribute push failed",
				zap.String("identity_id", identityID),
				zap.Error(err),
			)
		}
	}

	return m.refreshLocked(ctx)
}

// Logout unbinds the identity at the gateway and clears the local record.
// It never fails when already logged out.
func (m *SubscriptionManager) Logout(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.record.IdentityID != "" || m.state != StateUninitialized {
		if err := m.gateway.UnbindIdentity(ctx); err != nil {
			m.logger.Warn("gateway unbind failed during logout", zap.Error(err))
		}
	}

	m.record.Clear()
	m.state = StateUninitialized
	m.syncErr = nil
	return nil
}

// Record returns an independent copy of the current record for readers.
// The resolver consumes this; nothing outside the manager mutates the
// original.
func (m *SubscriptionManager) Record() *entity.SubscriptionRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.record.Clone()
}

// State returns the current lifecycle state
func (m *SubscriptionManager) State() SyncState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// LastSyncError returns the non-fatal error flag from the most recent
// sync, nil when the last sync succeeded. UIs use it to show a retry
// affordance.
func (m *SubscriptionManager) LastSyncError() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.syncErr
}
