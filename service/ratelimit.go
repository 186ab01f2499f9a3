package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redlobsta/portalauth/core"
	"github.com/redlobsta/portalauth/ports"
)

const rateLimitPrefix = "ratelimit:"

// RateLimiter is a fixed-window request counter backed by the shared
// store. Counting is a single atomic increment, so concurrent instances
// agree on the window total. Bursts at window boundaries are accepted:
// this limiter deters abuse, it is not billing-grade accounting.
type RateLimiter struct {
	store ports.KeyValueStore
	log   *slog.Logger
}

// NewRateLimiter creates a new rate limiter over the given store
func NewRateLimiter(store ports.KeyValueStore, log *slog.Logger) *RateLimiter {
	return &RateLimiter{store: store, log: log}
}

// Allow counts a request against key and reports whether it is within the
// limit, along with the number of requests remaining in the window.
//
// If the store is unreachable the limiter fails closed: an unlimited
// token-issuance path is worse than a denied login, so the request is
// denied and core.ErrStoreUnavailable is returned alongside allowed=false.
func (l *RateLimiter) Allow(ctx context.Context, key string, maxRequests int64, window time.Duration) (bool, int64, error) {
	storeKey := rateLimitPrefix + key

	count, err := l.store.Increment(ctx, storeKey)
	if err != nil {
		l.log.Error("rate limit store unreachable, failing closed", "key", key, "err", err)
		return false, 0, fmt.Errorf("%w: %v", core.ErrStoreUnavailable, err)
	}

	// First request in the window starts the clock.
	if count == 1 {
		if err := l.store.SetExpiry(ctx, storeKey, window); err != nil {
			// The counter now has no expiry and will keep denying once
			// over the limit. Over-restriction is the safe direction.
			l.log.Error("failed to set rate limit window", "key", key, "err", err)
		}
	}

	remaining := maxRequests - count
	if remaining < 0 {
		remaining = 0
	}

	return count <= maxRequests, remaining, nil
}
