package cache

import (
	"context"
	"time"
)

// Cache is a byte-oriented store with per-entry expiry. A ttl of zero
// means the backend's default.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}
