package errors

import (
	"errors"
	"fmt"
)

var (
	// Catalog errors
	ErrContentNotFound = errors.New("content item not found")

	// Subscription errors
	ErrNotInitialized = errors.New("subscription state is not initialized")
	ErrSyncFailed     = errors.New("failed to sync entitlements with billing gateway")

	// Purchase errors
	ErrPurchaseCancelled = errors.New("purchase was cancelled by the user")
	ErrPurchaseFailed    = errors.New("purchase failed")

	// External service errors
	ErrGatewayUnavailable = errors.New("billing gateway unavailable")
	ErrReceiptInvalid     = errors.New("receipt is invalid")
)

// NotFoundError wraps an error with not found context
type NotFoundError struct {
	Entity string
	ID     string
	Err    error
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with id '%s' not found: %v", e.Entity, e.ID, e.Err)
}

func (e *NotFoundError) Unwrap() error {
	return e.Err
}

// ConfigError reports misconfiguration detected at startup. It is fatal:
// the system cannot run correctly without valid configuration.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration for %s: %s", e.Field, e.Reason)
}

// SyncError reports a transient failure talking to the billing gateway.
// It is recoverable: the local record degrades rather than the process
// failing, and the caller may retry.
type SyncError struct {
	Op  string
	Err error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("entitlement sync failed during %s: %v", e.Op, e.Err)
}

func (e *SyncError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match any SyncError against ErrSyncFailed
func (e *SyncError) Is(target error) bool {
	return target == ErrSyncFailed
}
