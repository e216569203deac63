package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"codeberg.org/mutker/netpulse/internal/aggregate"
	"codeberg.org/mutker/netpulse/internal/errors"
	"codeberg.org/mutker/netpulse/internal/logger"
	"golang.org/x/sync/singleflight"
)

const keyPrefix = "netpulse:aggregate"

// ComputeFunc produces a fresh aggregate result on a cache miss.
type ComputeFunc func(ctx context.Context) (aggregate.Result, error)

// Service memoizes aggregate results keyed by (store identity, window)
// with a bounded TTL. A failing backend degrades to direct computes,
// never to a user-visible outage.
type Service struct {
	backend Backend
	ttl     time.Duration
	group   singleflight.Group
}

// NewService builds a cache service from configuration, selecting the
// Redis or in-process backend.
func NewService(cfg Config) (*Service, error) {
	errFactory := errors.New()

	if err := cfg.Validate(); err != nil {
		return nil, errFactory.Wrap(ErrInvalidConfig, err)
	}

	var (
		backend Backend
		err     error
	)
	switch cfg.Backend {
	case BackendRedis:
		backend, err = NewRedisBackend(cfg.RedisURL)
		if err != nil {
			return nil, err
		}
	default:
		backend = NewMemoryBackend(cfg.TTL)
	}

	logger.Debug().
		Str("backend", cfg.Backend).
		Dur("ttl", cfg.TTL).
		Msg("Result cache initialized")

	return NewWithBackend(backend, cfg.TTL), nil
}

// NewWithBackend wires a cache service onto an explicit backend.
func NewWithBackend(backend Backend, ttl time.Duration) *Service {
	return &Service{
		backend: backend,
		ttl:     ttl,
	}
}

// GetOrCompute returns the cached result for (identity, window), or runs
// compute and memoizes its output. Concurrent misses for one key share a
// single computation.
func (s *Service) GetOrCompute(ctx context.Context, identity string, window aggregate.Window, compute ComputeFunc) (aggregate.Result, error) {
	key := Key(identity, window)

	if result, ok := s.lookup(ctx, key); ok {
		return result, nil
	}

	value, err, _ := s.group.Do(key, func() (any, error) {
		result, err := compute(ctx)
		if err != nil {
			return aggregate.Result{}, err
		}
		s.memoize(ctx, key, result)

		return result, nil
	})
	if err != nil {
		return aggregate.Result{}, err
	}

	result, ok := value.(aggregate.Result)
	if !ok {
		return aggregate.Result{}, errors.New().New(errors.ErrInternal)
	}

	return result, nil
}

func (s *Service) lookup(ctx context.Context, key string) (aggregate.Result, bool) {
	raw, err := s.backend.Get(ctx, key)
	if err != nil {
		if !errors.HasCode(err, ErrMiss) {
			logger.Warn().Err(err).Str("key", key).Msg("Cache backend unavailable, computing directly")
		}
		return aggregate.Result{}, false
	}

	var result aggregate.Result
	if err := json.Unmarshal(raw, &result); err != nil {
		logger.Warn().Err(err).Str("key", key).Msg("Discarding undecodable cache entry")
		return aggregate.Result{}, false
	}

	return result, true
}

func (s *Service) memoize(ctx context.Context, key string, result aggregate.Result) {
	raw, err := json.Marshal(result)
	if err != nil {
		logger.Warn().Err(err).Str("key", key).Msg("Failed to encode result for caching")
		return
	}

	if err := s.backend.Set(ctx, key, raw, s.ttl); err != nil {
		logger.Warn().Err(err).Str("key", key).Msg("Failed to store cache entry")
	}
}

// Close releases the backend connection.
func (s *Service) Close() error {
	return s.backend.Close()
}

// Key encodes a (store identity, window) pair unambiguously.
func Key(identity string, window aggregate.Window) string {
	return fmt.Sprintf("%s:%s:%s", keyPrefix, identity, window)
}
