package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/geniibooks/entitlements/internal/domain/billing"
)

// MockBillingGateway is a mock implementation of billing.Gateway
type MockBillingGateway struct {
	mock.Mock

	events chan billing.EntitlementsChanged
}

// NewMockBillingGateway creates a new mock billing gateway
func NewMockBillingGateway() *MockBillingGateway {
	return &MockBillingGateway{
		events: make(chan billing.EntitlementsChanged, 8),
	}
}

func (m *MockBillingGateway) BindIdentity(ctx context.Context, identityID string) error {
	args := m.Called(ctx, identityID)
	return args.Error(0)
}

func (m *MockBillingGateway) UnbindIdentity(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockBillingGateway) ListPackages(ctx context.Context) ([]billing.PackageRef, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]billing.PackageRef), args.Error(1)
}

func (m *MockBillingGateway) Purchase(ctx context.Context, pkg billing.PackageRef) (*billing.Snapshot, error) {
	args := m.Called(ctx, pkg)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Snapshot), args.Error(1)
}

func (m *MockBillingGateway) Restore(ctx context.Context) (*billing.Snapshot, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Snapshot), args.Error(1)
}

func (m *MockBillingGateway) CurrentEntitlements(ctx context.Context) (*billing.Snapshot, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Snapshot), args.Error(1)
}

func (m *MockBillingGateway) SetProfileAttributes(ctx context.Context, attrs map[string]string) error {
	args := m.Called(ctx, attrs)
	return args.Error(0)
}

func (m *MockBillingGateway) Events() <-chan billing.EntitlementsChanged {
	return m.events
}

// PushEvent injects a gateway-side entitlement change notification
func (m *MockBillingGateway) PushEvent(evt billing.EntitlementsChanged) {
	m.events <- evt
}

// CloseEvents closes the event channel, simulating gateway shutdown
func (m *MockBillingGateway) CloseEvents() {
	close(m.events)
}
