// Package cache wraps the Redis surface the tool needs: a small key/value
// store and a distributed lock used to coordinate concurrent test data
// downloads across invocations.
package cache

import (
	"context"
	"time"
)

// Cache combines the operations the tool depends on.
type Cache interface {
	BasicOps
	LockOps

	Ping(ctx context.Context) error
	Close() error
}

// BasicOps defines basic key-value operations.
type BasicOps interface {
	// Get retrieves a value; a missing key returns "" with no error.
	Get(ctx context.Context, key string) (string, error)

	// Set stores a value with an optional TTL (0 means no expiry).
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error

	// SetNX stores a value only if the key does not exist.
	SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error)

	// Delete removes one or more keys.
	Delete(ctx context.Context, keys ...string) error

	// Exists reports how many of the given keys exist.
	Exists(ctx context.Context, keys ...string) (int64, error)
}

// LockOps defines distributed lock operations.
type LockOps interface {
	// TryLock attempts to acquire a distributed lock. Returns true if the
	// lock was acquired.
	TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// Unlock releases a distributed lock.
	Unlock(ctx context.Context, key string) error

	// ExtendLock extends the TTL of an existing lock.
	ExtendLock(ctx context.Context, key string, ttl time.Duration) error
}
