package entity

import (
	"github.com/geniibooks/entitlements/internal/domain/valueobject"
)

// ContentID is the stable identifier of a catalog item. IDs are never reused.
type ContentID string

// ContentItem represents one purchasable or free unit of material.
type ContentItem struct {
	ID     ContentID
	Title  string
	Kind   valueobject.ContentKind
	Scopes []valueobject.Scope
	Price  int64
	IsFree bool
}

// NewContentItem creates a new content item entity
func NewContentItem(id ContentID, title string, kind valueobject.ContentKind, scopes []valueobject.Scope, price int64, isFree bool) *ContentItem {
	return &ContentItem{
		ID:     id,
		Title:  title,
		Kind:   kind,
		Scopes: scopes,
		Price:  price,
		IsFree: isFree,
	}
}

// HasScope returns true if the item carries the given scope tag
func (c *ContentItem) HasScope(scope valueobject.Scope) bool {
	for _, s := range c.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// Validate checks the structural invariants of the item
func (c *ContentItem) Validate() error {
	if !c.Kind.IsValid() {
		return valueobject.ErrInvalidContentKind
	}
	if len(c.Scopes) == 0 {
		return ErrEmptyScope
	}
	return nil
}
