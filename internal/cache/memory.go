package cache

import (
	"context"
	"time"

	"codeberg.org/mutker/netpulse/internal/errors"
	gocache "github.com/patrickmn/go-cache"
)

const memoryCleanupInterval = time.Minute

type memoryBackend struct {
	entries *gocache.Cache
}

// NewMemoryBackend returns an in-process TTL cache. Entries are lost on
// restart, which only costs a recompute.
func NewMemoryBackend(defaultTTL time.Duration) Backend {
	return &memoryBackend{
		entries: gocache.New(defaultTTL, memoryCleanupInterval),
	}
}

func (b *memoryBackend) Get(_ context.Context, key string) ([]byte, error) {
	value, found := b.entries.Get(key)
	if !found {
		return nil, errors.New().WithData(ErrMiss, key)
	}

	raw, ok := value.([]byte)
	if !ok {
		return nil, errors.New().WithData(ErrMiss, key)
	}

	return raw, nil
}

func (b *memoryBackend) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	b.entries.Set(key, value, ttl)
	return nil
}

func (*memoryBackend) Close() error {
	return nil
}
