package valueobject

import (
	"errors"
)

var (
	ErrInvalidGrantType = errors.New("invalid grant type")
)

type GrantType string

const (
	GrantSubscription   GrantType = "subscription"
	GrantSinglePurchase GrantType = "single_purchase"
)

// NewGrantType creates a new GrantType value object
func NewGrantType(grantType string) (GrantType, error) {
	g := GrantType(grantType)
	switch g {
	case GrantSubscription, GrantSinglePurchase:
		return g, nil
	default:
		return "", ErrInvalidGrantType
	}
}

// String returns the string representation of the grant type
func (g GrantType) String() string {
	return string(g)
}

// IsValid returns true if the grant type is valid
func (g GrantType) IsValid() bool {
	switch g {
	case GrantSubscription, GrantSinglePurchase:
		return true
	default:
		return false
	}
}
