package query

import (
	"context"
	"fmt"

	"github.com/geniibooks/entitlements/internal/application/dto"
	"github.com/geniibooks/entitlements/internal/domain/entity"
	"github.com/geniibooks/entitlements/internal/domain/repository"
	"github.com/geniibooks/entitlements/internal/domain/service"
)

// IdentityGrants loads the entitlement grants held by one identity,
// regardless of which identity the in-process manager is bound to.
type IdentityGrants interface {
	GrantsFor(ctx context.Context, identityID string) ([]entity.EntitlementGrant, error)
}

// CheckAccessQuery answers whether the calling identity may open a
// content item, and at what price if not.
type CheckAccessQuery struct {
	catalog  repository.CatalogRepository
	manager  *service.SubscriptionManager
	grants   IdentityGrants
	resolver *service.EntitlementResolver
}

// NewCheckAccessQuery creates a new access check query
func NewCheckAccessQuery(
	catalog repository.CatalogRepository,
	manager *service.SubscriptionManager,
	grants IdentityGrants,
	resolver *service.EntitlementResolver,
) *CheckAccessQuery {
	return &CheckAccessQuery{
		catalog:  catalog,
		manager:  manager,
		grants:   grants,
		resolver: resolver,
	}
}

// Execute resolves access to one item for the given identity. The
// manager's record is used only when it is bound to that same identity;
// any other caller is resolved from their own per-identity snapshot, so
// one session's grants never leak into another's decision. Unknown ids
// propagate the catalog's not-found error.
func (q *CheckAccessQuery) Execute(ctx context.Context, identityID, itemID string) (*dto.AccessDecisionResponse, error) {
	item, err := q.catalog.FindByID(ctx, entity.ContentID(itemID))
	if err != nil {
		return nil, fmt.Errorf("failed to look up content: %w", err)
	}

	record := q.manager.Record()
	if identityID != "" && record.IdentityID != identityID {
		record, err = q.recordFor(ctx, identityID)
		if err != nil {
			return nil, fmt.Errorf("failed to load entitlements: %w", err)
		}
	}

	decision := q.resolver.ResolveAccess(record, item)

	return &dto.AccessDecisionResponse{
		ContentID:     string(item.ID),
		Granted:       decision.Granted,
		Reason:        string(decision.Reason),
		PriceIfLocked: decision.PriceIfLocked,
	}, nil
}

func (q *CheckAccessQuery) recordFor(ctx context.Context, identityID string) (*entity.SubscriptionRecord, error) {
	grants, err := q.grants.GrantsFor(ctx, identityID)
	if err != nil {
		return nil, err
	}
	record := entity.NewSubscriptionRecord()
	record.IdentityID = identityID
	for _, g := range grants {
		record.Grants[g.Key()] = g
	}
	return record, nil
}
