package handlers

import (
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/geniibooks/entitlements/internal/infrastructure/logging"
	"github.com/geniibooks/entitlements/internal/interfaces/http/response"
	"github.com/geniibooks/entitlements/internal/worker/tasks"
)

// GatewayNotifier wakes the in-process session binder after a webhook
// reports an entitlement change. Satisfied by the billing gateway client.
type GatewayNotifier interface {
	Notify(identityID string)
}

// WebhookHandler handles push notifications from the billing gateway and
// the app stores.
type WebhookHandler struct {
	webhookSecret string
	notifier      GatewayNotifier
	asynqClient   *asynq.Client
	logger        *zap.Logger
}

// NewWebhookHandler creates a new webhook handler
func NewWebhookHandler(webhookSecret string, notifier GatewayNotifier, asynqClient *asynq.Client) *WebhookHandler {
	return &WebhookHandler{
		webhookSecret: webhookSecret,
		notifier:      notifier,
		asynqClient:   asynqClient,
		logger:        logging.Logger,
	}
}

// billingEvent is the envelope the gateway posts on entitlement changes
type billingEvent struct {
	Event struct {
		Type      string `json:"type"`
		AppUserID string `json:"app_user_id"`
	} `json:"event"`
}

// HandleBillingEvent ingests a gateway webhook. Every event type leads to
// the same reaction: resync the identity from the gateway, which is the
// source of truth for what actually changed.
// @Summary Billing gateway webhook
// @Tags webhooks
// @Accept json
// @Success 200
// @Failure 401 {object} response.ErrorResponse
// @Router /webhooks/billing [post]
func (h *WebhookHandler) HandleBillingEvent(c *gin.Context) {
	if !h.authorized(c) {
		response.Unauthorized(c, "Invalid webhook credentials")
		return
	}

	var evt billingEvent
	if err := c.ShouldBindJSON(&evt); err != nil {
		response.BadRequest(c, "Malformed event payload")
		return
	}
	if evt.Event.AppUserID == "" {
		response.BadRequest(c, "Event missing app_user_id")
		return
	}

	h.logger.Info("billing event received",
		zap.String("type", evt.Event.Type),
		zap.String("identity_id", evt.Event.AppUserID),
	)

	h.notifier.Notify(evt.Event.AppUserID)
	h.enqueueResync(c, evt.Event.AppUserID)

	c.Status(200)
}

// rtdnEnvelope is the Pub/Sub push wrapper around a Play Store
// real-time developer notification.
type rtdnEnvelope struct {
	Message struct {
		Data string `json:"data"`
	} `json:"message"`
}

type rtdnPayload struct {
	PackageName              string `json:"packageName"`
	SubscriptionNotification *struct {
		SubscriptionID string `json:"subscriptionId"`
		PurchaseToken  string `json:"purchaseToken"`
	} `json:"subscriptionNotification"`
	OneTimeProductNotification *struct {
		SKU           string `json:"sku"`
		PurchaseToken string `json:"purchaseToken"`
	} `json:"oneTimeProductNotification"`
	ObfuscatedExternalAccountID string `json:"obfuscatedExternalAccountId"`
}

// HandlePlayNotification ingests a Play Store real-time developer
// notification delivered through Pub/Sub push.
// @Summary Play Store notification webhook
// @Tags webhooks
// @Accept json
// @Success 200
// @Router /webhooks/google [post]
func (h *WebhookHandler) HandlePlayNotification(c *gin.Context) {
	if !h.authorized(c) {
		response.Unauthorized(c, "Invalid webhook credentials")
		return
	}

	var envelope rtdnEnvelope
	if err := c.ShouldBindJSON(&envelope); err != nil {
		response.BadRequest(c, "Malformed push envelope")
		return
	}

	decoded, err := base64.StdEncoding.DecodeString(envelope.Message.Data)
	if err != nil {
		response.BadRequest(c, "Malformed notification data")
		return
	}
	var payload rtdnPayload
	if err := json.Unmarshal(decoded, &payload); err != nil {
		response.BadRequest(c, "Malformed notification payload")
		return
	}

	task := tasks.StoreNotificationPayload{
		Platform:   "google",
		IdentityID: payload.ObfuscatedExternalAccountID,
	}
	switch {
	case payload.SubscriptionNotification != nil:
		task.ProductID = payload.SubscriptionNotification.SubscriptionID
		task.PurchaseToken = payload.SubscriptionNotification.PurchaseToken
		task.Subscription = true
	case payload.OneTimeProductNotification != nil:
		task.ProductID = payload.OneTimeProductNotification.SKU
		task.PurchaseToken = payload.OneTimeProductNotification.PurchaseToken
	default:
		// test notifications carry neither; acknowledge and move on
		c.Status(200)
		return
	}

	h.enqueueStoreNotification(c, task)
	c.Status(200)
}

// appleNotification is the trimmed App Store server notification shape
type appleNotification struct {
	UnifiedReceipt struct {
		LatestReceipt string `json:"latest_receipt"`
	} `json:"unified_receipt"`
	NotificationType string `json:"notification_type"`
	AppAccountToken  string `json:"app_account_token"`
}

// HandleAppleNotification ingests an App Store server notification
// @Summary App Store notification webhook
// @Tags webhooks
// @Accept json
// @Success 200
// @Router /webhooks/apple [post]
func (h *WebhookHandler) HandleAppleNotification(c *gin.Context) {
	if !h.authorized(c) {
		response.Unauthorized(c, "Invalid webhook credentials")
		return
	}

	var notif appleNotification
	if err := c.ShouldBindJSON(&notif); err != nil {
		response.BadRequest(c, "Malformed notification payload")
		return
	}
	if notif.UnifiedReceipt.LatestReceipt == "" {
		response.BadRequest(c, "Notification missing receipt")
		return
	}

	h.logger.Info("apple notification received", zap.String("type", notif.NotificationType))

	h.enqueueStoreNotification(c, tasks.StoreNotificationPayload{
		Platform:    "apple",
		IdentityID:  notif.AppAccountToken,
		ReceiptData: notif.UnifiedReceipt.LatestReceipt,
	})
	c.Status(200)
}

func (h *WebhookHandler) authorized(c *gin.Context) bool {
	if h.webhookSecret == "" {
		return false
	}
	header := c.GetHeader("Authorization")
	return subtle.ConstantTimeCompare([]byte(header), []byte(h.webhookSecret)) == 1
}

func (h *WebhookHandler) enqueueResync(c *gin.Context, identityID string) {
	task, err := tasks.NewEntitlementResyncTask(identityID)
	if err != nil {
		h.logger.Error("failed to build resync task", zap.Error(err))
		return
	}
	if _, err := h.asynqClient.EnqueueContext(c.Request.Context(), task); err != nil {
		h.logger.Error("failed to enqueue resync", zap.String("identity_id", identityID), zap.Error(err))
	}
}

func (h *WebhookHandler) enqueueStoreNotification(c *gin.Context, payload tasks.StoreNotificationPayload) {
	task, err := tasks.NewStoreNotificationTask(payload)
	if err != nil {
		h.logger.Error("failed to build store notification task", zap.Error(err))
		return
	}
	if _, err := h.asynqClient.EnqueueContext(c.Request.Context(), task); err != nil {
		h.logger.Error("failed to enqueue store notification", zap.Error(err))
	}
}
