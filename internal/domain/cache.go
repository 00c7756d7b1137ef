package domain

import (
	"context"
	"time"
)

// CacheError represents an error originating from the cache.
type CacheError string

func (e CacheError) Error() string {
	return string(e)
}

// ErrCacheMiss is returned when a key is not found in the cache.
const ErrCacheMiss = CacheError("cache: key not found")

// Cache is the shared key/value store used for job claims and progress
// snapshots.
type Cache interface {
	// Get returns ErrCacheMiss if the key is not found.
	Get(ctx context.Context, key string) (string, error)

	// SetNX stores value only when key does not exist yet and reports
	// whether the write happened.
	SetNX(ctx context.Context, key string, value string, expiration time.Duration) (bool, error)

	// Delete should not return an error if the key is not found.
	Delete(ctx context.Context, key string) error

	Ping(ctx context.Context) error

	// HGetAll returns ErrCacheMiss when the hash does not exist.
	HGetAll(ctx context.Context, key string) (map[string]string, error)

	// HSet writes every field of values into the hash stored at key.
	HSet(ctx context.Context, key string, values map[string]string) error

	Expire(ctx context.Context, key string, expiration time.Duration) error
}
