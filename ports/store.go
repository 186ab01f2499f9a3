package ports

import (
	"context"
	"time"
)

// KeyValueStore is the only shared state between otherwise stateless
// instances. All cross-request coordination (one-time consumption, rate
// limiting, revocation) goes through these four operations, each of which
// must be atomic on the backend.
//
// Get distinguishes a missing key (found=false, err=nil) from a store
// failure (err!=nil); callers must never conflate the two.
type KeyValueStore interface {
	// Get returns the value for key, whether the key exists, and any
	// store error.
	Get(ctx context.Context, key string) (value string, found bool, err error)

	// SetIfAbsent writes value under key with a TTL only if the key does
	// not already exist. Returns true if this call created the key.
	SetIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error)

	// Increment atomically increments the integer counter at key,
	// creating it at 1 if absent, and returns the post-increment value.
	Increment(ctx context.Context, key string) (int64, error)

	// SetExpiry sets the TTL of an existing key.
	SetExpiry(ctx context.Context, key string, ttl time.Duration) error
}
