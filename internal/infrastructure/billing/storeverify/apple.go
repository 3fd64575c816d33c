package storeverify

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/awa/go-iap/appstore"
)

// Result is the platform-agnostic outcome of a store receipt check.
type Result struct {
	Valid                 bool
	TransactionID         string
	OriginalTransactionID string
	ProductID             string
	ExpiresAt             time.Time
	AutoRenewing          bool
}

// AppleVerifier validates App Store receipts through Apple's
// verification endpoint.
type AppleVerifier struct {
	client       *appstore.Client
	sharedSecret string
}

// NewAppleVerifier creates a new Apple receipt verifier
func NewAppleVerifier(sharedSecret string) *AppleVerifier {
	return &AppleVerifier{
		client:       appstore.New(),
		sharedSecret: sharedSecret,
	}
}

// Verify checks the base64 receipt with Apple and returns the latest
// transaction it contains. Apple routes sandbox receipts sent to
// production through status 21007; the client library retries the
// sandbox endpoint transparently.
func (v *AppleVerifier) Verify(ctx context.Context, receiptData string) (*Result, error) {
	req := appstore.IAPRequest{
		ReceiptData: receiptData,
		Password:    v.sharedSecret,
	}

	var resp appstore.IAPResponse
	if err := v.client.Verify(ctx, req, &resp); err != nil {
		return nil, fmt.Errorf("failed to verify apple receipt: %w", err)
	}
	if resp.Status != 0 {
		return &Result{Valid: false}, nil
	}
	if len(resp.LatestReceiptInfo) == 0 {
		return &Result{Valid: false}, nil
	}

	latest := resp.LatestReceiptInfo[0]
	for _, info := range resp.LatestReceiptInfo[1:] {
		if parseMillis(info.PurchaseDateMS) > parseMillis(latest.PurchaseDateMS) {
			latest = info
		}
	}

	result := &Result{
		Valid:                 true,
		TransactionID:         latest.TransactionID,
		OriginalTransactionID: string(latest.OriginalTransactionID),
		ProductID:             latest.ProductID,
	}
	if ms := parseMillis(latest.ExpiresDateMS); ms > 0 {
		result.ExpiresAt = time.UnixMilli(ms)
	}
	for _, renewal := range resp.PendingRenewalInfo {
		if renewal.ProductID == latest.ProductID {
			result.AutoRenewing = renewal.SubscriptionAutoRenewStatus == "1"
		}
	}
	return result, nil
}

func parseMillis(s string) int64 {
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return ms
}
