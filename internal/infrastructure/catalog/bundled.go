package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/geniibooks/entitlements/internal/domain/entity"
	domainErrors "github.com/geniibooks/entitlements/internal/domain/errors"
	"github.com/geniibooks/entitlements/internal/domain/repository"
	"github.com/geniibooks/entitlements/internal/domain/valueobject"
)

// bundledItem is the JSON shape of one catalog entry in the shipped
// asset file.
type bundledItem struct {
	ID     string   `json:"id"`
	Title  string   `json:"title"`
	Kind   string   `json:"kind"`
	Scopes []string `json:"scopes"`
	Price  int64    `json:"price"`
	IsFree bool     `json:"is_free"`
}

// BundledCatalog is an in-memory catalog loaded once from a JSON asset.
// It serves deployments that ship the catalog with the binary instead
// of running a database.
type BundledCatalog struct {
	byID  map[entity.ContentID]*entity.ContentItem
	items []*entity.ContentItem
}

// LoadBundled reads and validates the catalog asset at the given path
func LoadBundled(path string) (*BundledCatalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog bundle: %w", err)
	}

	var raw []bundledItem
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse catalog bundle: %w", err)
	}

	c := &BundledCatalog{byID: make(map[entity.ContentID]*entity.ContentItem, len(raw))}
	for _, ri := range raw {
		kind, err := valueobject.NewContentKind(ri.Kind)
		if err != nil {
			return nil, fmt.Errorf("catalog item %q: %w", ri.ID, err)
		}

		scopes := make([]valueobject.Scope, 0, len(ri.Scopes))
		for _, s := range ri.Scopes {
			scopes = append(scopes, valueobject.Scope(s))
		}

		item := entity.NewContentItem(entity.ContentID(ri.ID), ri.Title, kind, scopes, ri.Price, ri.IsFree)
		if err := item.Validate(); err != nil {
			return nil, fmt.Errorf("catalog item %q: %w", ri.ID, err)
		}
		if _, dup := c.byID[item.ID]; dup {
			return nil, fmt.Errorf("catalog item %q: duplicate id", ri.ID)
		}

		c.byID[item.ID] = item
		c.items = append(c.items, item)
	}
	return c, nil
}

// FindByID retrieves a content item by its id
func (c *BundledCatalog) FindByID(ctx context.Context, id entity.ContentID) (*entity.ContentItem, error) {
	item, ok := c.byID[id]
	if !ok {
		return nil, &domainErrors.NotFoundError{
			Entity: "content item",
			ID:     string(id),
			Err:    domainErrors.ErrContentNotFound,
		}
	}
	return item, nil
}

// Filter lists the items matching the filter in bundle order
func (c *BundledCatalog) Filter(ctx context.Context, filter repository.ContentFilter) ([]*entity.ContentItem, error) {
	var matched []*entity.ContentItem
	for _, item := range c.items {
		if filter.Matches(item) {
			matched = append(matched, item)
		}
	}
	return matched, nil
}

// Len reports the number of items in the bundle
func (c *BundledCatalog) Len() int {
	return len(c.items)
}
