package tasks

import (
	"context"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/geniibooks/entitlements/internal/domain/billing"
	"github.com/geniibooks/entitlements/internal/infrastructure/billing/storeverify"
	"github.com/geniibooks/entitlements/internal/infrastructure/cache"
	"github.com/geniibooks/entitlements/internal/infrastructure/logging"
)

// Task names
const (
	TypeEntitlementResync = "entitlement:resync"
	TypeEntitlementSweep  = "entitlement:sweep"
	TypeStoreNotification = "billing:store_notification"
)

// EntitlementSource fetches the authoritative entitlement snapshot for
// an identity. Satisfied by the billing gateway client.
type EntitlementSource interface {
	EntitlementsFor(ctx context.Context, identityID string) (*billing.Snapshot, error)
}

// TaskHandlers holds dependencies for all task handlers.
type TaskHandlers struct {
	source EntitlementSource
	cache  *cache.EntitlementCache
	apple  *storeverify.AppleVerifier
	google *storeverify.GoogleVerifier
	logger *zap.Logger
}

// NewTaskHandlers creates task handlers with gateway and cache access.
func NewTaskHandlers(
	source EntitlementSource,
	entCache *cache.EntitlementCache,
	apple *storeverify.AppleVerifier,
	google *storeverify.GoogleVerifier,
) *TaskHandlers {
	return &TaskHandlers{
		source: source,
		cache:  entCache,
		apple:  apple,
		google: google,
		logger: logging.Logger,
	}
}

// RegisterHandlers registers all task handlers with the server mux.
func RegisterHandlers(mux *asynq.ServeMux, h *TaskHandlers) {
	mux.HandleFunc(TypeEntitlementResync, h.HandleEntitlementResync)
	mux.HandleFunc(TypeEntitlementSweep, h.HandleEntitlementSweep)
	mux.HandleFunc(TypeStoreNotification, h.HandleStoreNotification)
}

// RegisterScheduledTasks registers all scheduled (cron) tasks
func RegisterScheduledTasks(scheduler *asynq.Scheduler) {
	// Drop lapsed grants from cached snapshots every 15 minutes
	_, err := scheduler.Register("*/15 * * * *", asynq.NewTask(TypeEntitlementSweep, nil))
	if err != nil {
		logging.Logger.Error("Failed to schedule entitlement sweep", zap.Error(err))
	}
}

// HandleEntitlementSweep drops expired grants from every cached snapshot
func (h *TaskHandlers) HandleEntitlementSweep(ctx context.Context, t *asynq.Task) error {
	swept, err := h.cache.SweepExpired(ctx, time.Now())
	if err != nil {
		return err
	}
	h.logger.Info("entitlement sweep complete", zap.Int("grants_dropped", swept))
	return nil
}
