package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/geniibooks/entitlements/internal/domain/billing"
	"github.com/geniibooks/entitlements/internal/domain/entity"
	"github.com/geniibooks/entitlements/internal/domain/service"
	"github.com/geniibooks/entitlements/internal/domain/valueobject"
	"github.com/geniibooks/entitlements/tests/mocks"
)

func TestSessionBinder(t *testing.T) {
	ctx := context.Background()
	future := time.Now().Add(365 * 24 * time.Hour)

	t.Run("gateway event triggers refresh", func(t *testing.T) {
		gateway := mocks.NewMockBillingGateway()
		manager := service.NewSubscriptionManager(gateway, zap.NewNop())
		binder := service.NewSessionBinder(manager, gateway, zap.NewNop())

		gateway.On("BindIdentity", ctx, "user_001").Return(nil)
		gateway.On("CurrentEntitlements", ctx).Return(snapshot(), nil).Once()
		require.NoError(t, manager.Initialize(ctx, "user_001"))

		// a renewal lands upstream, the gateway pushes a change event
		gateway.On("CurrentEntitlements", ctx).Return(snapshot(
			entity.NewSubscriptionGrant(valueobject.ScopeAllVideos, future),
		), nil)

		binder.Start(ctx)
		defer binder.Stop()

		gateway.PushEvent(billing.EntitlementsChanged{
			IdentityID: "user_001",
			OccurredAt: time.Now(),
		})

		assert.Eventually(t, func() bool {
			return len(manager.Record().Grants) == 1
		}, time.Second, 10*time.Millisecond)
	})

	t.Run("closed event channel ends forwarding", func(t *testing.T) {
		gateway := mocks.NewMockBillingGateway()
		manager := service.NewSubscriptionManager(gateway, zap.NewNop())
		binder := service.NewSessionBinder(manager, gateway, zap.NewNop())

		binder.Start(ctx)
		gateway.CloseEvents()

		done := make(chan struct{})
		go func() {
			binder.Stop()
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("binder did not stop after event channel closed")
		}
	})

	t.Run("stop is idempotent", func(t *testing.T) {
		gateway := mocks.NewMockBillingGateway()
		manager := service.NewSubscriptionManager(gateway, zap.NewNop())
		binder := service.NewSessionBinder(manager, gateway, zap.NewNop())

		binder.Start(ctx)
		assert.NotPanics(t, func() {
			binder.Stop()
			binder.Stop()
		})
	})

	t.Run("stop before start does not block", func(t *testing.T) {
		gateway := mocks.NewMockBillingGateway()
		manager := service.NewSubscriptionManager(gateway, zap.NewNop())
		binder := service.NewSessionBinder(manager, gateway, zap.NewNop())

		assert.NotPanics(t, func() {
			binder.Stop()
			binder.Stop()
		})
	})

	t.Run("login and logout pass through to the manager", func(t *testing.T) {
		gateway := mocks.NewMockBillingGateway()
		manager := service.NewSubscriptionManager(gateway, zap.NewNop())
		binder := service.NewSessionBinder(manager, gateway, zap.NewNop())

		gateway.On("BindIdentity", ctx, "user_002").Return(nil)
		gateway.On("CurrentEntitlements", ctx).Return(snapshot(), nil)
		gateway.On("UnbindIdentity", ctx).Return(nil)

		require.NoError(t, binder.Login(ctx, "user_002", nil))
		assert.Equal(t, "user_002", manager.Record().IdentityID)

		require.NoError(t, binder.Logout(ctx))
		assert.Empty(t, manager.Record().IdentityID)
	})
}
