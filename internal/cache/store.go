// Package cache provides the tiered key-value cache that keeps repeated
// intensity and coarticulation computations cheap: a fast in-process LRU in
// front of a bounded sqlite store, with an optional redis tier behind both.
package cache

import (
	"context"
	"time"
)

// Store is the uniform key-value boundary each tier implements. Values are
// opaque serialized bytes; expiry travels with the entry so every tier can
// refuse stale data on its own.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, time.Time, bool, error)
	Set(ctx context.Context, key string, value []byte, expiresAt time.Time) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
	Size(ctx context.Context) (int, error)
}

// expired reports whether an entry with the given expiry is stale at now.
// A zero expiry never expires.
func expired(expiresAt time.Time, now time.Time) bool {
	return !expiresAt.IsZero() && now.After(expiresAt)
}
