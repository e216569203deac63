package cache

import (
	"context"
	"time"
)

// Backend is a key-value store with per-entry TTL. Implementations return
// ErrMiss for absent or expired keys and ErrBackend for transport-level
// failures; callers treat the latter as a degraded cache, never an outage.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Close() error
}
