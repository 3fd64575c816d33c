package tasks

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// EntitlementResyncPayload identifies the identity to resync
type EntitlementResyncPayload struct {
	IdentityID string `json:"identity_id"`
}

// NewEntitlementResyncTask creates a resync task for one identity
func NewEntitlementResyncTask(identityID string) (*asynq.Task, error) {
	payload, err := json.Marshal(EntitlementResyncPayload{IdentityID: identityID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeEntitlementResync, payload), nil
}

// HandleEntitlementResync refetches the gateway snapshot for one identity
// and refreshes the cached copy. Gateway failures are returned so asynq
// retries with backoff; the stale cached snapshot stays in place until a
// fetch succeeds.
func (h *TaskHandlers) HandleEntitlementResync(ctx context.Context, t *asynq.Task) error {
	var payload EntitlementResyncPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to parse resync payload: %v: %w", err, asynq.SkipRetry)
	}
	if payload.IdentityID == "" {
		return fmt.Errorf("resync payload missing identity id: %w", asynq.SkipRetry)
	}

	snap, err := h.source.EntitlementsFor(ctx, payload.IdentityID)
	if err != nil {
		return fmt.Errorf("failed to fetch entitlements for %s: %w", payload.IdentityID, err)
	}

	if err := h.cache.SetSnapshot(ctx, payload.IdentityID, snap.Grants, snap.FetchedAt); err != nil {
		return err
	}

	h.logger.Info("entitlements resynced",
		zap.String("identity_id", payload.IdentityID),
		zap.Int("grants", len(snap.Grants)),
	)
	return nil
}

// StoreNotificationPayload carries a raw store server notification
type StoreNotificationPayload struct {
	Platform      string `json:"platform"` // "apple" or "google"
	IdentityID    string `json:"identity_id"`
	ReceiptData   string `json:"receipt_data,omitempty"`
	ProductID     string `json:"product_id,omitempty"`
	PurchaseToken string `json:"purchase_token,omitempty"`
	Subscription  bool   `json:"subscription,omitempty"`
}

// NewStoreNotificationTask creates a store notification processing task
func NewStoreNotificationTask(payload StoreNotificationPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeStoreNotification, data), nil
}

// HandleStoreNotification verifies a store server notification against
// the originating store, then resyncs the identity's entitlements. An
// invalid receipt ends the task without retry; the gateway remains the
// source of truth either way.
func (h *TaskHandlers) HandleStoreNotification(ctx context.Context, t *asynq.Task) error {
	var payload StoreNotificationPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to parse store notification: %v: %w", err, asynq.SkipRetry)
	}

	result, err := h.verify(ctx, payload)
	if err != nil {
		return err
	}
	if !result.Valid {
		h.logger.Warn("store notification carried an invalid receipt",
			zap.String("platform", payload.Platform),
			zap.String("identity_id", payload.IdentityID),
		)
		return nil
	}

	h.logger.Info("store notification verified",
		zap.String("platform", payload.Platform),
		zap.String("identity_id", payload.IdentityID),
		zap.String("product_id", result.ProductID),
	)

	snap, err := h.source.EntitlementsFor(ctx, payload.IdentityID)
	if err != nil {
		return fmt.Errorf("failed to fetch entitlements after notification: %w", err)
	}
	return h.cache.SetSnapshot(ctx, payload.IdentityID, snap.Grants, snap.FetchedAt)
}

func (h *TaskHandlers) verify(ctx context.Context, payload StoreNotificationPayload) (*storeVerifyResult, error) {
	switch payload.Platform {
	case "apple":
		result, err := h.apple.Verify(ctx, payload.ReceiptData)
		if err != nil {
			return nil, err
		}
		return &storeVerifyResult{Valid: result.Valid, ProductID: result.ProductID}, nil
	case "google":
		if payload.Subscription {
			result, err := h.google.VerifySubscription(ctx, payload.ProductID, payload.PurchaseToken)
			if err != nil {
				return nil, err
			}
			return &storeVerifyResult{Valid: result.Valid, ProductID: result.ProductID}, nil
		}
		result, err := h.google.VerifyProduct(ctx, payload.ProductID, payload.PurchaseToken)
		if err != nil {
			return nil, err
		}
		return &storeVerifyResult{Valid: result.Valid, ProductID: result.ProductID}, nil
	default:
		return nil, fmt.Errorf("unknown store platform %q: %w", payload.Platform, asynq.SkipRetry)
	}
}

type storeVerifyResult struct {
	Valid     bool
	ProductID string
}
