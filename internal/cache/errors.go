package cache

import "codeberg.org/mutker/netpulse/internal/errors"

const (
	// Configuration Errors
	ErrInvalidConfig  = errors.ErrInvalidConfig
	ErrUnknownBackend = errors.ErrorCode("cache_unknown_backend")

	// Lookup Errors
	ErrMiss    = errors.ErrCacheMiss
	ErrBackend = errors.ErrCacheUnavailable
)
