package ports

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrIdempotencyConflict indicates the same key was reused for a different order submission.
	ErrIdempotencyConflict = errors.New("idempotency key was already used for a different order")
	// ErrIdempotencyKeyTaken is returned by Reserve when another request already holds the key.
	ErrIdempotencyKeyTaken = errors.New("idempotency key already reserved")
	// ErrIdempotencyInProgress indicates the original request with this key has not finished yet.
	ErrIdempotencyInProgress = errors.New("a request with this idempotency key is still being processed")
)

// IdempotencyRecord ties a sender-scoped Idempotency-Key to the order it created. OrderID is
// empty while the reserving request is still creating the order.
type IdempotencyRecord struct {
	Key         string
	RequestHash string
	OrderID     string
	CreatedAt   time.Time
}

// Pending reports whether the order for the key has not been recorded yet.
func (r IdempotencyRecord) Pending() bool { return r.OrderID == "" }

// IdempotencyStore remembers submitted keys so a retried CreateOrder returns the original order.
type IdempotencyStore interface {
	// Get returns the stored record for the key, or nil when unknown.
	Get(ctx context.Context, key string) (*IdempotencyRecord, error)
	// Reserve atomically claims record.Key as pending. When the key already exists the stored
	// record is returned with ErrIdempotencyKeyTaken.
	Reserve(ctx context.Context, record IdempotencyRecord) (*IdempotencyRecord, error)
	// Complete records the order created under a pending key.
	Complete(ctx context.Context, key, orderID string) error
	// Release drops a pending reservation so the key can be used again.
	Release(ctx context.Context, key string) error
}
