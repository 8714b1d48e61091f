// Package store is the port to the remote key-value/sorted-set store the
// queue lives in. Every operation is atomic per key; sequences of
// operations are not transactional, callers are expected to re-validate
// records at the point of use.
package store

import (
	"context"
	"time"
)

type Store interface {
	// GetMap returns the field map at key, empty (not an error) when the
	// key is missing.
	GetMap(ctx context.Context, key string) (map[string]string, error)
	// SetMap merges fields into the map at key, creating it if needed.
	SetMap(ctx context.Context, key string, fields map[string]string) error
	Delete(ctx context.Context, keys ...string) error
	Expire(ctx context.Context, key string, ttl time.Duration) error
	// SetNX writes a plain value only if key is absent; reports whether
	// the write happened.
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)

	ZAdd(ctx context.Context, key string, score float64, member string) error
	ZRem(ctx context.Context, key string, member string) error
	// ZRange returns all members of the sorted set at key, lowest score
	// first.
	ZRange(ctx context.Context, key string) ([]string, error)

	// Keys enumerates keys with the given prefix.
	Keys(ctx context.Context, prefix string) ([]string, error)
}
