package query

import (
	"context"
	"fmt"
	"time"

	"github.com/geniibooks/entitlements/internal/application/dto"
	"github.com/geniibooks/entitlements/internal/domain/billing"
	"github.com/geniibooks/entitlements/internal/domain/entity"
	"github.com/geniibooks/entitlements/internal/domain/repository"
	"github.com/geniibooks/entitlements/internal/domain/service"
	"github.com/geniibooks/entitlements/internal/domain/valueobject"
)

// ListCatalogQuery lists catalog items matching a filter
type ListCatalogQuery struct {
	catalog repository.CatalogRepository
}

// NewListCatalogQuery creates a new catalog listing query
func NewListCatalogQuery(catalog repository.CatalogRepository) *ListCatalogQuery {
	return &ListCatalogQuery{catalog: catalog}
}

// Execute lists the items matching the filter
func (q *ListCatalogQuery) Execute(ctx context.Context, kind, scope string, freeOnly bool) (*dto.CatalogListResponse, error) {
	filter := repository.ContentFilter{
		Kind:     valueobject.ContentKind(kind),
		Scope:    valueobject.Scope(scope),
		FreeOnly: freeOnly,
	}
	if kind != "" && !filter.Kind.IsValid() {
		return nil, fmt.Errorf("unknown content kind %q", kind)
	}

	items, err := q.catalog.Filter(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list catalog: %w", err)
	}

	resp := &dto.CatalogListResponse{
		Items: make([]dto.ContentItemResponse, 0, len(items)),
		Total: len(items),
	}
	for _, item := range items {
		resp.Items = append(resp.Items, toContentItemResponse(item))
	}
	return resp, nil
}

func toContentItemResponse(item *entity.ContentItem) dto.ContentItemResponse {
	scopes := make([]string, 0, len(item.Scopes))
	for _, s := range item.Scopes {
		scopes = append(scopes, s.String())
	}
	return dto.ContentItemResponse{
		ID:     string(item.ID),
		Title:  item.Title,
		Kind:   item.Kind.String(),
		Scopes: scopes,
		Price:  item.Price,
		IsFree: item.IsFree,
	}
}

// SubscriptionStatusQuery reports the current subscription state and the
// purchasable offerings.
type SubscriptionStatusQuery struct {
	manager *service.SubscriptionManager
	gateway billing.Gateway
}

// NewSubscriptionStatusQuery creates a new status query
func NewSubscriptionStatusQuery(manager *service.SubscriptionManager, gateway billing.Gateway) *SubscriptionStatusQuery {
	return &SubscriptionStatusQuery{
		manager: manager,
		gateway: gateway,
	}
}

// Execute returns the current record as a response shape
func (q *SubscriptionStatusQuery) Execute(ctx context.Context) (*dto.SubscriptionStatusResponse, error) {
	record := q.manager.Record()

	resp := &dto.SubscriptionStatusResponse{
		IdentityID: record.IdentityID,
		State:      string(q.manager.State()),
		Grants:     make([]dto.GrantResponse, 0, len(record.Grants)),
	}
	if !record.LastSyncedAt.IsZero() {
		resp.LastSyncedAt = record.LastSyncedAt.Format(time.RFC3339)
	}
	if err := q.manager.LastSyncError(); err != nil {
		resp.SyncError = err.Error()
	}
	for _, grant := range record.Grants {
		g := dto.GrantResponse{
			Type:         grant.Type.String(),
			CoveredScope: grant.CoveredScope,
		}
		if grant.ExpiresAt != nil {
			g.ExpiresAt = grant.ExpiresAt.Format(time.RFC3339)
		}
		resp.Grants = append(resp.Grants, g)
	}
	return resp, nil
}

// ListPackages returns the purchasable offerings from the gateway
func (q *SubscriptionStatusQuery) ListPackages(ctx context.Context) ([]dto.PackageResponse, error) {
	packages, err := q.gateway.ListPackages(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list packages: %w", err)
	}

	resp := make([]dto.PackageResponse, 0, len(packages))
	for _, pkg := range packages {
		resp = append(resp, dto.PackageResponse{
			Identifier: pkg.Identifier,
			ProductID:  pkg.ProductID,
			Title:      pkg.Title,
			Price:      pkg.Price,
			Duration:   pkg.Duration,
		})
	}
	return resp, nil
}
