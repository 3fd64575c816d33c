package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/geniibooks/entitlements/internal/domain/entity"
	"github.com/geniibooks/entitlements/internal/domain/repository"
)

// MockCatalogRepository is a mock implementation of CatalogRepository
type MockCatalogRepository struct {
	mock.Mock
}

// NewMockCatalogRepository creates a new mock catalog repository
func NewMockCatalogRepository() *MockCatalogRepository {
	return &MockCatalogRepository{}
}

func (m *MockCatalogRepository) FindByID(ctx context.Context, id entity.ContentID) (*entity.ContentItem, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.ContentItem), args.Error(1)
}

func (m *MockCatalogRepository) Filter(ctx context.Context, filter repository.ContentFilter) ([]*entity.ContentItem, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.ContentItem), args.Error(1)
}
