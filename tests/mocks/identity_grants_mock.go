package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/geniibooks/entitlements/internal/domain/entity"
)

// MockIdentityGrants is a mock implementation of query.IdentityGrants
type MockIdentityGrants struct {
	mock.Mock
}

// NewMockIdentityGrants creates a new mock identity grant source
func NewMockIdentityGrants() *MockIdentityGrants {
	return &MockIdentityGrants{}
}

func (m *MockIdentityGrants) GrantsFor(ctx context.Context, identityID string) ([]entity.EntitlementGrant, error) {
	args := m.Called(ctx, identityID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.EntitlementGrant), args.Error(1)
}
