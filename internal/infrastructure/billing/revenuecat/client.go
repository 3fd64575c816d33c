package revenuecat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/geniibooks/entitlements/internal/domain/billing"
	domainErrors "github.com/geniibooks/entitlements/internal/domain/errors"
	"github.com/geniibooks/entitlements/internal/infrastructure/config"
)

// Client talks to the subscription aggregation backend over its REST
// API and implements billing.Gateway. Outbound calls run through a
// circuit breaker so a gateway outage fails fast instead of piling up
// blocked requests.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[[]byte]
	logger  *zap.Logger

	mu       sync.Mutex
	identity string

	events chan billing.EntitlementsChanged
}

// NewClient creates a configured gateway client. An empty API key is a
// ConfigError: the system cannot run without billing credentials.
func NewClient(cfg config.BillingConfig, logger *zap.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, &domainErrors.ConfigError{Field: "billing.api_key", Reason: "required"}
	}

	breaker := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:    "billing-gateway",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			// only availability failures count toward tripping; a user
			// cancelling a purchase or a 4xx rejection is answered by a
			// healthy gateway
			return err == nil || !errors.Is(err, domainErrors.ErrGatewayUnavailable)
		},
	})

	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: cfg.RequestTimeout},
		breaker: breaker,
		logger:  logger,
		events:  make(chan billing.EntitlementsChanged, 16),
	}, nil
}

// BindIdentity associates the identity with the gateway. The gateway
// creates the subscriber on first sight, so a fetch doubles as a bind.
func (c *Client) BindIdentity(ctx context.Context, identityID string) error {
	if _, err := c.fetchSubscriber(ctx, identityID); err != nil {
		return err
	}

	c.mu.Lock()
	c.identity = identityID
	c.mu.Unlock()
	return nil
}

// UnbindIdentity dissolves the local association. The gateway keeps the
// subscriber; only this client forgets it.
func (c *Client) UnbindIdentity(ctx context.Context) error {
	c.mu.Lock()
	c.identity = ""
	c.mu.Unlock()
	return nil
}

// ListPackages returns the current offering's purchasable packages
func (c *Client) ListPackages(ctx context.Context) ([]billing.PackageRef, error) {
	body, err := c.get(ctx, fmt.Sprintf("%s/subscribers/%s/offerings", c.baseURL, c.boundIdentity()))
	if err != nil {
		return nil, err
	}

	var parsed offeringsResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode offerings: %w", err)
	}

	var packages []billing.PackageRef
	for _, offering := range parsed.Offerings {
		if offering.Identifier != parsed.CurrentOfferingID {
			continue
		}
		for _, pkg := range offering.Packages {
			packages = append(packages, billing.PackageRef{
				Identifier: pkg.Identifier,
				ProductID:  pkg.PlatformProductIdentifier,
				Title:      pkg.Title,
				Price:      pkg.Price,
				Duration:   pkg.Duration,
			})
		}
	}
	return packages, nil
}

// Purchase submits the store receipt for the package and returns the
// gateway's post-purchase entitlement snapshot. User cancellation maps
// to ErrPurchaseCancelled.
func (c *Client) Purchase(ctx context.Context, pkg billing.PackageRef) (*billing.Snapshot, error) {
	payload, err := json.Marshal(receiptRequest{
		AppUserID:  c.boundIdentity(),
		ProductID:  pkg.ProductID,
		FetchToken: pkg.FetchToken,
	})
	if err != nil {
		return nil, err
	}

	body, err := c.post(ctx, c.baseURL+"/receipts", payload)
	if err != nil {
		return nil, err
	}

	var parsed subscriberResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode purchase response: %w", err)
	}
	return snapshotFromSubscriber(&parsed), nil
}

// Restore replays prior store purchases onto the bound identity
func (c *Client) Restore(ctx context.Context) (*billing.Snapshot, error) {
	body, err := c.post(ctx, fmt.Sprintf("%s/subscribers/%s/restore", c.baseURL, c.boundIdentity()), nil)
	if err != nil {
		return nil, err
	}

	var parsed subscriberResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode restore response: %w", err)
	}
	return snapshotFromSubscriber(&parsed), nil
}

// CurrentEntitlements fetches the entitlement set for the bound identity
func (c *Client) CurrentEntitlements(ctx context.Context) (*billing.Snapshot, error) {
	parsed, err := c.fetchSubscriber(ctx, c.boundIdentity())
	if err != nil {
		return nil, err
	}
	return snapshotFromSubscriber(parsed), nil
}

// EntitlementsFor fetches the entitlement set for an arbitrary identity.
// Used by background resync jobs which are not bound to one session.
func (c *Client) EntitlementsFor(ctx context.Context, identityID string) (*billing.Snapshot, error) {
	parsed, err := c.fetchSubscriber(ctx, identityID)
	if err != nil {
		return nil, err
	}
	return snapshotFromSubscriber(parsed), nil
}

// SetProfileAttributes pushes subscriber attributes for targeting
func (c *Client) SetProfileAttributes(ctx context.Context, attrs map[string]string) error {
	wrapped := attributesRequest{Attributes: make(map[string]attributeValue, len(attrs))}
	for k, v := range attrs {
		wrapped.Attributes[k] = attributeValue{Value: v}
	}
	payload, err := json.Marshal(wrapped)
	if err != nil {
		return err
	}

	_, err = c.post(ctx, fmt.Sprintf("%s/subscribers/%s/attributes", c.baseURL, c.boundIdentity()), payload)
	return err
}

// Events returns the entitlement change channel. Webhook deliveries feed
// it through Notify.
func (c *Client) Events() <-chan billing.EntitlementsChanged {
	return c.events
}

// Notify pushes an entitlement change event, typically from the webhook
// handler after a verified store notification.
func (c *Client) Notify(identityID string) {
	select {
	case c.events <- billing.EntitlementsChanged{IdentityID: identityID, OccurredAt: time.Now()}:
	default:
		// a pending event already forces a refresh; dropping is safe
		c.logger.Debug("entitlement event channel full, dropping notification",
			zap.String("identity_id", identityID),
		)
	}
}

// Close shuts down the event channel
func (c *Client) Close() {
	close(c.events)
}

func (c *Client) boundIdentity() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.identity == "" {
		// anonymous sessions use a stable placeholder subscriber
		return "$anonymous"
	}
	return c.identity
}

func (c *Client) fetchSubscriber(ctx context.Context, identityID string) (*subscriberResponse, error) {
	body, err := c.get(ctx, fmt.Sprintf("%s/subscribers/%s", c.baseURL, identityID))
	if err != nil {
		return nil, err
	}

	var parsed subscriberResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode subscriber: %w", err)
	}
	return &parsed, nil
}

func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	return c.do(ctx, http.MethodGet, url, nil)
}

func (c *Client) post(ctx context.Context, url string, payload []byte) ([]byte, error) {
	return c.do(ctx, http.MethodPost, url, payload)
}

func (c *Client) do(ctx context.Context, method, url string, payload []byte) ([]byte, error) {
	return c.breaker.Execute(func() ([]byte, error) {
		var body io.Reader
		if payload != nil {
			body = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, url, body)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domainErrors.ErrGatewayUnavailable, err)
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}

		if resp.StatusCode >= 400 {
			var apiErr apiError
			if json.Unmarshal(data, &apiErr) == nil && apiErr.Code == codePurchaseCancelled {
				return nil, domainErrors.ErrPurchaseCancelled
			}
			if resp.StatusCode >= 500 {
				return nil, fmt.Errorf("%w: status %d", domainErrors.ErrGatewayUnavailable, resp.StatusCode)
			}
			return nil, fmt.Errorf("gateway rejected request: status %d: %s", resp.StatusCode, apiErr.Message)
		}
		return data, nil
	})
}
