package dto

// ========== SESSION DTOs ==========

// LoginRequest represents a login request
type LoginRequest struct {
	IdentityID string            `json:"identity_id" binding:"required"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// LoginResponse represents a login response
type LoginResponse struct {
	IdentityID  string `json:"identity_id"`
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	SyncPending bool   `json:"sync_pending"`
}

// ========== ACCESS DTOs ==========

// AccessDecisionResponse represents the resolver's answer for one item
type AccessDecisionResponse struct {
	ContentID     string `json:"content_id"`
	Granted       bool   `json:"granted"`
	Reason        string `json:"reason"`
	PriceIfLocked int64  `json:"price_if_locked,omitempty"`
}

// ========== CATALOG DTOs ==========

// ContentItemResponse represents one catalog item
type ContentItemResponse struct {
	ID     string   `json:"id"`
	Title  string   `json:"title"`
	Kind   string   `json:"kind"`
	Scopes []string `json:"scopes"`
	Price  int64    `json:"price"`
	IsFree bool     `json:"is_free"`
}

// CatalogListResponse represents a filtered catalog listing
type CatalogListResponse struct {
	Items []ContentItemResponse `json:"items"`
	Total int                   `json:"total"`
}

// ========== SUBSCRIPTION DTOs ==========

// PackageResponse represents one purchasable offering
type PackageResponse struct {
	Identifier string `json:"identifier"`
	ProductID  string `json:"product_id"`
	Title      string `json:"title"`
	Price      int64  `json:"price"`
	Duration   string `json:"duration"`
}

// SubscriptionStatusResponse represents the current subscription state
type SubscriptionStatusResponse struct {
	IdentityID   string          `json:"identity_id,omitempty"`
	State        string          `json:"state"`
	Grants       []GrantResponse `json:"grants"`
	LastSyncedAt string          `json:"last_synced_at,omitempty"`
	SyncError    string          `json:"sync_error,omitempty"`
}

// GrantResponse represents one entitlement grant
type GrantResponse struct {
	Type         string `json:"type"`
	CoveredScope string `json:"covered_scope"`
	ExpiresAt    string `json:"expires_at,omitempty"`
}

// PurchaseRequest represents a purchase request
type PurchaseRequest struct {
	PackageIdentifier string `json:"package_identifier" binding:"required"`
	FetchToken        string `json:"fetch_token" binding:"required"`
}

// PurchaseResponse represents a purchase outcome
type PurchaseResponse struct {
	Success   bool   `json:"success"`
	Cancelled bool   `json:"cancelled,omitempty"`
	Error     string `json:"error,omitempty"`
}

// RestoreResponse represents a restore outcome
type RestoreResponse struct {
	Success               bool   `json:"success"`
	HasActiveSubscription bool   `json:"has_active_subscription"`
	Error                 string `json:"error,omitempty"`
}
