package cache

import (
	"context"
	"time"
)

// Store is a minimal TTL key-value cache. Values are JSON-encoded, so any
// serializable type can be cached. A miss is not an error: Get reports
// found=false and leaves dest untouched.
type Store interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
