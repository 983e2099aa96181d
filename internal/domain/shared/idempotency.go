package shared

import (
	"context"
	"time"
)

// IdempotencyStore stores processed event keys to short-circuit duplicate
// deliveries. It is a fast path only; the structural guarantee for payment
// application is the gateway payment id recorded on the invoice itself.
type IdempotencyStore interface {
	// MarkProcessed marks a key as processed with a TTL.
	// Returns true if the key was newly marked, false if already present.
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// Unmark removes a key so a failed apply can be retried.
	Unmark(ctx context.Context, key string) error

	// Close closes the store and releases resources
	Close() error
}
