package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ppiankov/credence/internal/fingerprint"
	"github.com/ppiankov/credence/internal/model"
)

// ResultCache stores completed validation results keyed by article fingerprint
type ResultCache struct {
	backend Cache
	ttl     time.Duration
}

// NewResultCache wraps a byte cache
func NewResultCache(backend Cache, ttl time.Duration) *ResultCache {
	return &ResultCache{backend: backend, ttl: ttl}
}

// Get returns the cached result for a fingerprint
func (c *ResultCache) Get(ctx context.Context, fp string) (*model.ValidationResult, bool) {
	data, found := c.backend.Get(ctx, fingerprint.CacheKey(fp))
	if !found {
		return nil, false
	}

	var result model.ValidationResult
	if err := json.Unmarshal(data, &result); err != nil || result.Status != model.StatusCompleted {
		return nil, false
	}
	return &result, true
}

// Put caches a completed result. Results in any other state are not cached.
func (c *ResultCache) Put(ctx context.Context, result *model.ValidationResult) error {
	if result == nil || result.Status != model.StatusCompleted {
		return nil
	}

	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	return c.backend.Set(ctx, fingerprint.CacheKey(result.Fingerprint), data, c.ttl)
}

// Invalidate drops the cached result for a fingerprint
func (c *ResultCache) Invalidate(ctx context.Context, fp string) error {
	return c.backend.Delete(ctx, fingerprint.CacheKey(fp))
}
