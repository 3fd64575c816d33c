package storeverify

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/androidpublisher/v3"
	"google.golang.org/api/option"
)

// GoogleVerifier validates Play Store purchase tokens through the
// Android Publisher API.
type GoogleVerifier struct {
	serviceAccountJSON []byte
	packageName        string
}

// NewGoogleVerifier creates a new Play Store verifier
func NewGoogleVerifier(serviceAccountJSON []byte, packageName string) *GoogleVerifier {
	return &GoogleVerifier{
		serviceAccountJSON: serviceAccountJSON,
		packageName:        packageName,
	}
}

// VerifySubscription checks a subscription purchase token
func (v *GoogleVerifier) VerifySubscription(ctx context.Context, productID, purchaseToken string) (*Result, error) {
	service, err := v.newService(ctx)
	if err != nil {
		return nil, err
	}

	sub, err := service.Purchases.Subscriptions.Get(v.packageName, productID, purchaseToken).
		Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to verify play subscription: %w", err)
	}

	// payment state 1 is received, 2 is a free trial
	paid := sub.PaymentState != nil && (*sub.PaymentState == 1 || *sub.PaymentState == 2)

	return &Result{
		Valid:                 paid,
		TransactionID:         purchaseToken,
		OriginalTransactionID: purchaseToken,
		ProductID:             productID,
		ExpiresAt:             time.UnixMilli(sub.ExpiryTimeMillis),
		AutoRenewing:          sub.AutoRenewing,
	}, nil
}

// VerifyProduct checks a one-time product purchase token
func (v *GoogleVerifier) VerifyProduct(ctx context.Context, productID, purchaseToken string) (*Result, error) {
	service, err := v.newService(ctx)
	if err != nil {
		return nil, err
	}

	purchase, err := service.Purchases.Products.Get(v.packageName, productID, purchaseToken).
		Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to verify play product: %w", err)
	}

	return &Result{
		Valid:                 purchase.PurchaseState == 0,
		TransactionID:         purchaseToken,
		OriginalTransactionID: purchaseToken,
		ProductID:             productID,
	}, nil
}

func (v *GoogleVerifier) newService(ctx context.Context) (*androidpublisher.Service, error) {
	creds, err := google.CredentialsFromJSON(ctx, v.serviceAccountJSON, androidpublisher.AndroidpublisherScope)
	if err != nil {
		return nil, fmt.Errorf("failed to parse service account credentials: %w", err)
	}

	service, err := androidpublisher.NewService(ctx, option.WithTokenSource(creds.TokenSource))
	if err != nil {
		return nil, fmt.Errorf("failed to create android publisher service: %w", err)
	}
	return service, nil
}
