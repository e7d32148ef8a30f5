// Package cache provides a short-TTL byte cache with in-memory and Redis
// implementations.
package cache

import (
	"context"
	"time"
)

// Cache is a get/set cache with per-entry expiry.
type Cache interface {
	// Get returns the cached value for key and whether it was present and
	// still fresh.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores value under key for ttl.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}
