package repository

import (
	"context"

	"github.com/geniibooks/entitlements/internal/domain/entity"
	"github.com/geniibooks/entitlements/internal/domain/valueobject"
)

// ContentFilter narrows a catalog listing. Zero values mean "no constraint".
type ContentFilter struct {
	Kind     valueobject.ContentKind
	Scope    valueobject.Scope
	FreeOnly bool
}

// Matches reports whether the item satisfies every set constraint
func (f ContentFilter) Matches(item *entity.ContentItem) bool {
	if f.Kind != "" && item.Kind != f.Kind {
		return false
	}
	if f.Scope != "" && !item.HasScope(f.Scope) {
		return false
	}
	if f.FreeOnly && !item.IsFree {
		return false
	}
	return true
}

// CatalogRepository defines the interface for content catalog access.
// The catalog is read-only from the core's perspective.
type CatalogRepository interface {
	// FindByID retrieves a content item by its id. Returns a
	// NotFoundError wrapping ErrContentNotFound for unknown ids.
	FindByID(ctx context.Context, id entity.ContentID) (*entity.ContentItem, error)

	// Filter lists the items matching the filter. The listing is finite
	// and restartable: repeated calls with the same filter yield the
	// same items.
	Filter(ctx context.Context, filter ContentFilter) ([]*entity.ContentItem, error)
}
