package cache

import "errors"

// Domain errors for cache operations.
var (
	// ErrInvalidKey is returned when a key is empty.
	ErrInvalidKey = errors.New("invalid cache key")

	// ErrConnectionFailed is returned when the cache backend is unreachable.
	ErrConnectionFailed = errors.New("cache connection failed")

	// ErrUnknownBackend is returned for an unsupported backend name.
	ErrUnknownBackend = errors.New("unknown cache backend")
)
