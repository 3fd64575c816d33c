package command

import (
	"context"

	"github.com/geniibooks/entitlements/internal/domain/service"
)

// RefreshCommand re-reads the gateway entitlement snapshot on demand
type RefreshCommand struct {
	manager *service.SubscriptionManager
}

// NewRefreshCommand creates a new refresh command
func NewRefreshCommand(manager *service.SubscriptionManager) *RefreshCommand {
	return &RefreshCommand{manager: manager}
}

// Execute refreshes the subscription record. The error reports whether
// the sync converged; known-good grants survive a failure either way.
func (c *RefreshCommand) Execute(ctx context.Context) error {
	return c.manager.Refresh(ctx)
}
