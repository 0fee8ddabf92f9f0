// Package cache defines the port for byte-oriented key-value caching. Only
// records that can no longer change on the ledger are stored behind it.
package cache

import (
	"context"
	"time"
)

// Cache stores opaque values by key. A ttl of zero means no expiry.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
