package cache

import (
	"context"
	"strings"
	"time"

	"codeberg.org/mutker/netpulse/internal/errors"
	"github.com/redis/go-redis/v9"
)

type redisBackend struct {
	client *redis.Client
}

// NewRedisBackend connects to Redis from a URL or host:port input.
// Supporting both formats keeps local and container config paths simple.
func NewRedisBackend(redisURL string) (Backend, error) {
	errFactory := errors.New()

	var client *redis.Client
	if strings.HasPrefix(redisURL, "redis://") {
		opt, err := redis.ParseURL(redisURL)
		if err != nil {
			return nil, errFactory.Wrap(ErrInvalidConfig, err)
		}
		client = redis.NewClient(opt)
	} else {
		client = redis.NewClient(&redis.Options{Addr: redisURL})
	}

	return &redisBackend{client: client}, nil
}

func (b *redisBackend) Get(ctx context.Context, key string) ([]byte, error) {
	errFactory := errors.New()

	raw, err := b.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, errFactory.WithData(ErrMiss, key)
		}
		return nil, errFactory.Wrap(ErrBackend, err)
	}

	return raw, nil
}

func (b *redisBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := b.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return errors.New().Wrap(ErrBackend, err)
	}

	return nil
}

func (b *redisBackend) Close() error {
	return b.client.Close()
}
