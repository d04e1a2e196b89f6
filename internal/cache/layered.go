package cache

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// LayeredCache reads through a fast layer into a slower shared one
// (memory in front of disk or Redis). Writes go to both.
type LayeredCache struct {
	front Cache
	back  Cache
}

// NewLayeredCache combines two caches
func NewLayeredCache(front, back Cache) *LayeredCache {
	return &LayeredCache{front: front, back: back}
}

// Get checks the front layer first and promotes hits from the back layer
func (c *LayeredCache) Get(ctx context.Context, key string) ([]byte, bool) {
	if val, found := c.front.Get(ctx, key); found {
		return val, true
	}

	if val, found := c.back.Get(ctx, key); found {
		if err := c.front.Set(ctx, key, val, 0); err != nil {
			logrus.WithError(err).WithField("key", key).Debug("cache promotion failed")
		}
		return val, true
	}

	return nil, false
}

// Set stores a value in both layers
func (c *LayeredCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.front.Set(ctx, key, value, ttl); err != nil {
		return err
	}
	return c.back.Set(ctx, key, value, ttl)
}

// Delete removes a value from both layers
func (c *LayeredCache) Delete(ctx context.Context, key string) error {
	frontErr := c.front.Delete(ctx, key)
	if err := c.back.Delete(ctx, key); err != nil {
		return err
	}
	return frontErr
}

// Clear removes all values from both layers
func (c *LayeredCache) Clear(ctx context.Context) error {
	frontErr := c.front.Clear(ctx)
	if err := c.back.Clear(ctx); err != nil {
		return err
	}
	return frontErr
}
