package command

import (
	"context"
	"fmt"

	"github.com/geniibooks/entitlements/internal/application/dto"
	"github.com/geniibooks/entitlements/internal/domain/billing"
	"github.com/geniibooks/entitlements/internal/domain/service"
)

// PurchaseCommand executes a subscription or single-item purchase through
// the billing gateway and the subscription manager.
type PurchaseCommand struct {
	manager *service.SubscriptionManager
	gateway billing.Gateway
}

// NewPurchaseCommand creates a new purchase command
func NewPurchaseCommand(manager *service.SubscriptionManager, gateway billing.Gateway) *PurchaseCommand {
	return &PurchaseCommand{
		manager: manager,
		gateway: gateway,
	}
}

// Execute resolves the package reference and runs the purchase. Failure
// and cancellation come back as result values, never as panics.
func (c *PurchaseCommand) Execute(ctx context.Context, req *dto.PurchaseRequest) (*dto.PurchaseResponse, error) {
	packages, err := c.gateway.ListPackages(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list packages: %w", err)
	}

	var pkg *billing.PackageRef
	for i := range packages {
		if packages[i].Identifier == req.PackageIdentifier {
			pkg = &packages[i]
			break
		}
	}
	if pkg == nil {
		return nil, fmt.Errorf("unknown package %q", req.PackageIdentifier)
	}
	pkg.FetchToken = req.FetchToken

	result := c.manager.Purchase(ctx, *pkg)

	resp := &dto.PurchaseResponse{
		Success:   result.Success,
		Cancelled: result.Cancelled,
	}
	if result.Err != nil {
		resp.Error = result.Err.Error()
	}
	return resp, nil
}
