package cache

import (
	"time"

	"codeberg.org/mutker/netpulse/internal/errors"
)

const (
	BackendMemory = "memory"
	BackendRedis  = "redis"

	// DefaultTTL bounds the age of a cached aggregate view.
	DefaultTTL = 300 * time.Second
)

type Config struct {
	Backend  string
	RedisURL string
	TTL      time.Duration
}

func DefaultConfig() Config {
	return Config{
		Backend: BackendMemory,
		TTL:     DefaultTTL,
	}
}

func (c Config) Validate() error {
	errFactory := errors.New()

	switch c.Backend {
	case BackendMemory:
	case BackendRedis:
		if c.RedisURL == "" {
			return errFactory.WithMessage(ErrInvalidConfig, "redis backend requires a redis_url")
		}
	default:
		return errFactory.WithData(ErrUnknownBackend, c.Backend)
	}

	if c.TTL <= 0 {
		return errFactory.WithMessage(ErrInvalidConfig, "cache ttl must be positive")
	}

	return nil
}
