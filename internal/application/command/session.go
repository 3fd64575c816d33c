package command

import (
	"context"
	"errors"

	domainErrors "github.com/geniibooks/entitlements/internal/domain/errors"
	"github.com/geniibooks/entitlements/internal/domain/service"
)

// SessionCommand connects application login/logout to the session binder
type SessionCommand struct {
	binder *service.SessionBinder
}

// NewSessionCommand creates a new session command
func NewSessionCommand(binder *service.SessionBinder) *SessionCommand {
	return &SessionCommand{binder: binder}
}

// Login binds the identity and syncs entitlements. A sync failure is
// reported as pending rather than failing the login: the session is
// valid, the entitlement cache just has not converged yet.
func (c *SessionCommand) Login(ctx context.Context, identityID string, attrs map[string]string) (syncPending bool, err error) {
	if err := c.binder.Login(ctx, identityID, attrs); err != nil {
		if errors.Is(err, domainErrors.ErrSyncFailed) {
			return true, nil
		}
		return false, err
	}
	return false, nil
}

// Logout unbinds the identity and clears local subscription state
func (c *SessionCommand) Logout(ctx context.Context) error {
	return c.binder.Logout(ctx)
}
