package service

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/geniibooks/entitlements/internal/domain/billing"
)

// SessionBinder connects application-level login/logout events to the
// subscription manager and forwards gateway-pushed entitlement changes to
// a refresh. It subscribes to the gateway's event channel exactly once
// and holds no state beyond the manager reference.
type SessionBinder struct {
	manager *SubscriptionManager
	gateway billing.Gateway
	logger  *zap.Logger

	startOnce sync.Once
	stopOnce  sync.Once
	started   atomic.Bool
	stop      chan struct{}
	done      chan struct{}
}

// NewSessionBinder creates a binder for the given manager and gateway
func NewSessionBinder(manager *SubscriptionManager, gateway billing.Gateway, logger *zap.Logger) *SessionBinder {
	return &SessionBinder{
		manager: manager,
		gateway: gateway,
		logger:  logger,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Start begins forwarding gateway events to the manager. Safe to call
// more than once; only the first call subscribes.
func (b *SessionBinder) Start(ctx context.Context) {
	b.startOnce.Do(func() {
		b.started.Store(true)
		go b.forward(ctx)
	})
}

func (b *SessionBinder) forward(ctx context.Context) {
	defer close(b.done)

	events := b.gateway.Events()
	for {
		select {
		case <-ctx.Done():
			return
		case <-b.stop:
			return
		case evt, ok := <-events:
			if !ok {
				return
			}
			b.logger.Debug("entitlements changed upstream, refreshing",
				zap.String("identity_id", evt.IdentityID),
				zap.Time("occurred_at", evt.OccurredAt),
			)
			if err := b.manager.Refresh(ctx); err != nil {
				b.logger.Warn("event-driven refresh failed", zap.Error(err))
			}
		}
	}
}

// Stop ends event forwarding and waits for the forwarding goroutine.
// A binder that was never started stops immediately, and repeated Stop
// calls are no-ops.
func (b *SessionBinder) Stop() {
	b.stopOnce.Do(func() {
		close(b.stop)
		if b.started.Load() {
			<-b.done
		}
	})
}

// Login binds the identity and syncs entitlements for it
func (b *SessionBinder) Login(ctx context.Context, identityID string, attrs map[string]string) error {
	return b.manager.Login(ctx, identityID, attrs)
}

// Logout unbinds the identity and clears local subscription state
func (b *SessionBinder) Logout(ctx context.Context) error {
	return b.manager.Logout(ctx)
}
