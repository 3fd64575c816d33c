package command

import (
	"context"

	"github.com/geniibooks/entitlements/internal/application/dto"
	"github.com/geniibooks/entitlements/internal/domain/service"
)

// RestoreCommand replays prior purchases onto the current identity
type RestoreCommand struct {
	manager *service.SubscriptionManager
}

// NewRestoreCommand creates a new restore command
func NewRestoreCommand(manager *service.SubscriptionManager) *RestoreCommand {
	return &RestoreCommand{manager: manager}
}

// Execute runs the restore and maps the outcome onto the response shape
func (c *RestoreCommand) Execute(ctx context.Context) (*dto.RestoreResponse, error) {
	result := c.manager.Restore(ctx)

	resp := &dto.RestoreResponse{
		Success:               result.Success,
		HasActiveSubscription: result.HasActiveSubscription,
	}
	if result.Err != nil {
		resp.Error = result.Err.Error()
	}
	return resp, nil
}
