package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/geniibooks/entitlements/internal/domain/billing"
	"github.com/geniibooks/entitlements/internal/domain/entity"
	domainErrors "github.com/geniibooks/entitlements/internal/domain/errors"
	"github.com/geniibooks/entitlements/internal/domain/service"
	"github.com/geniibooks/entitlements/internal/domain/valueobject"
	"github.com/geniibooks/entitlements/tests/mocks"
)

func snapshot(grants ...entity.EntitlementGrant) *billing.Snapshot {
	return &billing.Snapshot{Grants: grants, FetchedAt: time.Now()}
}

func TestSubscriptionManagerInitialize(t *testing.T) {
	ctx := context.Background()
	future := time.Now().Add(365 * 24 * time.Hour)

	t.Run("initialize binds identity and syncs grants", func(t *testing.T) {
		gateway := mocks.NewMockBillingGateway()
		manager := service.NewSubscriptionManager(gateway, zap.NewNop())

		gateway.On("BindIdentity", ctx, "user_001").Return(nil)
		gateway.On("CurrentEntitlements", ctx).Return(snapshot(
			entity.NewSubscriptionGrant("12", future),
		), nil)

		require.NoError(t, manager.Initialize(ctx, "user_001"))

		assert.Equal(t, service.StateReady, manager.State())
		record := manager.Record()
		assert.Equal(t, "user_001", record.IdentityID)
		assert.Len(t, record.Grants, 1)
		assert.NoError(t, manager.LastSyncError())
	})

	t.Run("initialize without identity syncs anonymously", func(t *testing.T) {
		gateway := mocks.NewMockBillingGateway()
		manager := service.NewSubscriptionManager(gateway, zap.NewNop())

		gateway.On("CurrentEntitlements", ctx).Return(snapshot(), nil)

		require.NoError(t, manager.Initialize(ctx, ""))
		gateway.AssertNotCalled(t, "BindIdentity")
		assert.Equal(t, service.StateReady, manager.State())
	})

	t.Run("gateway outage degrades to empty record not a crash", func(t *testing.T) {
		gateway := mocks.NewMockBillingGateway()
		manager := service.NewSubscriptionManager(gateway, zap.NewNop())

		gateway.On("BindIdentity", ctx, "user_001").Return(nil)
		gateway.On("CurrentEntitlements", ctx).Return(nil, errors.New("gateway down"))

		err := manager.Initialize(ctx, "user_001")
		assert.ErrorIs(t, err, domainErrors.ErrSyncFailed)

		// record is usable, just conservatively empty
		assert.Equal(t, service.StateReady, manager.State())
		assert.Empty(t, manager.Record().Grants)
		assert.Error(t, manager.LastSyncError())
	})
}

func TestSubscriptionManagerPurchase(t *testing.T) {
	ctx := context.Background()
	future := time.Now().Add(365 * 24 * time.Hour)
	pkg := billing.PackageRef{Identifier: "all_pdfs", ProductID: "all_pdfs_annual", Price: 999}

	setup := func(t *testing.T) (*mocks.MockBillingGateway, *service.SubscriptionManager) {
		gateway := mocks.NewMockBillingGateway()
		manager := service.NewSubscriptionManager(gateway, zap.NewNop())
		gateway.On("BindIdentity", ctx, "user_001").Return(nil)
		gateway.On("CurrentEntitlements", ctx).Return(snapshot(), nil)
		require.NoError(t, manager.Initialize(ctx, "user_001"))
		return gateway, manager
	}

	t.Run("successful purchase appends gateway grants", func(t *testing.T) {
		gateway, manager := setup(t)
		gateway.On("Purchase", ctx, pkg).Return(snapshot(
			entity.NewSubscriptionGrant(valueobject.ScopeAllPDFs, future),
		), nil)

		result := manager.Purchase(ctx, pkg)

		assert.True(t, result.Success)
		assert.False(t, result.Cancelled)
		assert.Len(t, manager.Record().Grants, 1)
	})

	t.Run("cancellation leaves the record unchanged", func(t *testing.T) {
		gateway, manager := setup(t)
		before := manager.Record()

		gateway.On("Purchase", ctx, pkg).Return(nil, domainErrors.ErrPurchaseCancelled)

		result := manager.Purchase(ctx, pkg)

		assert.False(t, result.Success)
		assert.True(t, result.Cancelled)
		assert.NoError(t, result.Err)
		assert.Equal(t, before, manager.Record())
	})

	t.Run("purchase failure leaves the record unchanged", func(t *testing.T) {
		gateway, manager := setup(t)
		before := manager.Record()

		gateway.On("Purchase", ctx, pkg).Return(nil, errors.New("store unreachable"))

		result := manager.Purchase(ctx, pkg)

		assert.False(t, result.Success)
		assert.False(t, result.Cancelled)
		assert.Error(t, result.Err)
		assert.Equal(t, before, manager.Record())
	})
}

func TestSubscriptionManagerRestore(t *testing.T) {
	ctx := context.Background()
	future := time.Now().Add(30 * 24 * time.Hour)

	setup := func(t *testing.T) (*mocks.MockBillingGateway, *service.SubscriptionManager) {
		gateway := mocks.NewMockBillingGateway()
		manager := service.NewSubscriptionManager(gateway, zap.NewNop())
		gateway.On("BindIdentity", ctx, "user_001").Return(nil)
		gateway.On("CurrentEntitlements", ctx).Return(snapshot(), nil)
		require.NoError(t, manager.Initialize(ctx, "user_001"))
		return gateway, manager
	}

	t.Run("restore with entitlements replaces grants", func(t *testing.T) {
		gateway, manager := setup(t)
		gateway.On("Restore", ctx).Return(snapshot(
			entity.NewSubscriptionGrant(valueobject.ScopeAllContent, future),
		), nil)

		result := manager.Restore(ctx)

		assert.True(t, result.Success)
		assert.True(t, result.HasActiveSubscription)
	})

	t.Run("restore with nothing to restore is not an error", func(t *testing.T) {
		gateway, manager := setup(t)
		gateway.On("Restore", ctx).Return(snapshot(), nil)

		result := manager.Restore(ctx)

		assert.True(t, result.Success)
		assert.False(t, result.HasActiveSubscription)
	})

	t.Run("empty restore with prior grants reports no active subscription", func(t *testing.T) {
		gateway := mocks.NewMockBillingGateway()
		manager := service.NewSubscriptionManager(gateway, zap.NewNop())
		gateway.On("BindIdentity", ctx, "user_001").Return(nil)
		gateway.On("CurrentEntitlements", ctx).Return(snapshot(
			entity.NewSubscriptionGrant(valueobject.ScopeAllContent, future),
		), nil)
		require.NoError(t, manager.Initialize(ctx, "user_001"))

		// the store account was refunded upstream; restore comes back empty
		gateway.On("Restore", ctx).Return(snapshot(), nil)

		result := manager.Restore(ctx)

		assert.True(t, result.Success)
		assert.False(t, result.HasActiveSubscription)
	})

	t.Run("restore with only expired grants reports no active subscription", func(t *testing.T) {
		gateway, manager := setup(t)
		gateway.On("Restore", ctx).Return(snapshot(
			entity.NewSubscriptionGrant(valueobject.ScopeAllPDFs, time.Now().Add(-time.Hour)),
		), nil)

		result := manager.Restore(ctx)

		assert.True(t, result.Success)
		assert.False(t, result.HasActiveSubscription)
	})

	t.Run("restore failure reports the error", func(t *testing.T) {
		gateway, manager := setup(t)
		gateway.On("Restore", ctx).Return(nil, errors.New("network timeout"))

		result := manager.Restore(ctx)

		assert.False(t, result.Success)
		assert.Error(t, result.Err)
	})
}

func TestSubscriptionManagerRefresh(t *testing.T) {
	ctx := context.Background()
	future := time.Now().Add(365 * 24 * time.Hour)

	t.Run("refresh replaces grants wholesale", func(t *testing.T) {
		gateway := mocks.NewMockBillingGateway()
		manager := service.NewSubscriptionManager(gateway, zap.NewNop())
		gateway.On("BindIdentity", ctx, "user_001").Return(nil)
		gateway.On("CurrentEntitlements", ctx).Return(snapshot(
			entity.NewSubscriptionGrant("12", future),
			entity.NewSinglePurchaseGrant("1"),
		), nil).Once()
		require.NoError(t, manager.Initialize(ctx, "user_001"))

		// gateway dropped one grant upstream; local cache must follow
		gateway.On("CurrentEntitlements", ctx).Return(snapshot(
			entity.NewSubscriptionGrant("12", future),
		), nil).Once()

		require.NoError(t, manager.Refresh(ctx))
		assert.Len(t, manager.Record().Grants, 1)
	})

	t.Run("refresh failure keeps known-good grants", func(t *testing.T) {
		gateway := mocks.NewMockBillingGateway()
		manager := service.NewSubscriptionManager(gateway, zap.NewNop())
		gateway.On("BindIdentity", ctx, "user_001").Return(nil)
		gateway.On("CurrentEntitlements", ctx).Return(snapshot(
			entity.NewSubscriptionGrant(valueobject.ScopeAllPDFs, future),
		), nil).Once()
		require.NoError(t, manager.Initialize(ctx, "user_001"))

		gateway.On("CurrentEntitlements", ctx).Return(nil, errors.New("gateway down")).Once()

		err := manager.Refresh(ctx)
		assert.ErrorIs(t, err, domainErrors.ErrSyncFailed)

		// a billing outage never revokes access the user paid for
		assert.Len(t, manager.Record().Grants, 1)
		assert.Error(t, manager.LastSyncError())
	})
}

func TestSubscriptionManagerSession(t *testing.T) {
	ctx := context.Background()
	future := time.Now().Add(365 * 24 * time.Hour)

	t.Run("login pushes attributes and syncs", func(t *testing.T) {
		gateway := mocks.NewMockBillingGateway()
		manager := service.NewSubscriptionManager(gateway, zap.NewNop())
		attrs := map[string]string{"email": "rahul@example.com", "student_class": "12"}

		gateway.On("BindIdentity", ctx, "user_001").Return(nil)
		gateway.On("SetProfileAttributes", ctx, attrs).Return(nil)
		gateway.On("CurrentEntitlements", ctx).Return(snapshot(
			entity.NewSubscriptionGrant("12", future),
		), nil)

		require.NoError(t, manager.Login(ctx, "user_001", attrs))
		assert.Equal(t, "user_001", manager.Record().IdentityID)
	})

	t.Run("login is idempotent", func(t *testing.T) {
		gateway := mocks.NewMockBillingGateway()
		manager := service.NewSubscriptionManager(gateway, zap.NewNop())

		gateway.On("BindIdentity", ctx, "user_001").Return(nil)
		gateway.On("CurrentEntitlements", ctx).Return(snapshot(
			entity.NewSubscriptionGrant("12", future),
		), nil)

		require.NoError(t, manager.Login(ctx, "user_001", nil))
		once := manager.Record()

		require.NoError(t, manager.Login(ctx, "user_001", nil))
		twice := manager.Record()

		assert.Equal(t, once.IdentityID, twice.IdentityID)
		assert.Equal(t, once.Grants, twice.Grants)
	})

	t.Run("attribute push failure does not fail login", func(t *testing.T) {
		gateway := mocks.NewMockBillingGateway()
		manager := service.NewSubscriptionManager(gateway, zap.NewNop())
		attrs := map[string]string{"school": "DPS"}

		gateway.On("BindIdentity", ctx, "user_001").Return(nil)
		gateway.On("SetProfileAttributes", ctx, attrs).Return(errors.New("attributes endpoint down"))
		gateway.On("CurrentEntitlements", ctx).Return(snapshot(), nil)

		assert.NoError(t, manager.Login(ctx, "user_001", attrs))
	})

	t.Run("logout clears state", func(t *testing.T) {
		gateway := mocks.NewMockBillingGateway()
		manager := service.NewSubscriptionManager(gateway, zap.NewNop())

		gateway.On("BindIdentity", ctx, "user_001").Return(nil)
		gateway.On("CurrentEntitlements", ctx).Return(snapshot(
			entity.NewSubscriptionGrant(valueobject.ScopeAllContent, future),
		), nil)
		require.NoError(t, manager.Login(ctx, "user_001", nil))

		gateway.On("UnbindIdentity", ctx).Return(nil)
		require.NoError(t, manager.Logout(ctx))

		record := manager.Record()
		assert.Empty(t, record.IdentityID)
		assert.Empty(t, record.Grants)
		assert.Equal(t, service.StateUninitialized, manager.State())
	})

	t.Run("logout when already logged out does not fail", func(t *testing.T) {
		gateway := mocks.NewMockBillingGateway()
		manager := service.NewSubscriptionManager(gateway, zap.NewNop())

		assert.NoError(t, manager.Logout(ctx))
		gateway.AssertNotCalled(t, "UnbindIdentity")
	})
}
