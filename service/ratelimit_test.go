package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/redlobsta/portalauth/adapters/store"
	"github.com/redlobsta/portalauth/core"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRateLimiter_AllowsUpToLimit(t *testing.T) {
	limiter := NewRateLimiter(store.NewMemoryStore(), testLogger())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, remaining, err := limiter.Allow(ctx, "x", 3, time.Hour)
		require.NoError(t, err)
		require.True(t, allowed, "request %d should be allowed", i+1)
		require.Equal(t, int64(2-i), remaining)
	}

	allowed, remaining, err := limiter.Allow(ctx, "x", 3, time.Hour)
	require.NoError(t, err)
	require.False(t, allowed, "4th request within the window must be denied")
	require.Equal(t, int64(0), remaining)
}

func TestRateLimiter_WindowReset(t *testing.T) {
	kv := store.NewMemoryStore()
	now := time.Now()
	kv.SetClock(func() time.Time { return now })

	limiter := NewRateLimiter(kv, testLogger())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, _, err := limiter.Allow(ctx, "x", 3, time.Hour)
		require.NoError(t, err)
		require.True(t, allowed)
	}

	allowed, _, err := limiter.Allow(ctx, "x", 3, time.Hour)
	require.NoError(t, err)
	require.False(t, allowed)

	// After the window elapses the counter starts over.
	now = now.Add(time.Hour + time.Second)

	allowed, remaining, err := limiter.Allow(ctx, "x", 3, time.Hour)
	require.NoError(t, err)
	require.True(t, allowed)
	require.Equal(t, int64(2), remaining)
}

func TestRateLimiter_IndependentKeys(t *testing.T) {
	limiter := NewRateLimiter(store.NewMemoryStore(), testLogger())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, _, err := limiter.Allow(ctx, "a", 3, time.Hour)
		require.NoError(t, err)
		require.True(t, allowed)
	}

	allowed, _, err := limiter.Allow(ctx, "b", 3, time.Hour)
	require.NoError(t, err)
	require.True(t, allowed)
}

// failingStore simulates an unreachable backend.
type failingStore struct{}

var errStoreDown = errors.New("connection refused")

func (failingStore) Get(ctx context.Context, key string) (string, bool, error) {
	return "", false, errStoreDown
}

func (failingStore) SetIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	return false, errStoreDown
}

func (failingStore) Increment(ctx context.Context, key string) (int64, error) {
	return 0, errStoreDown
}

func (failingStore) SetExpiry(ctx context.Context, key string, ttl time.Duration) error {
	return errStoreDown
}

func TestRateLimiter_FailsClosedOnStoreOutage(t *testing.T) {
	limiter := NewRateLimiter(failingStore{}, testLogger())

	allowed, _, err := limiter.Allow(context.Background(), "x", 3, time.Hour)
	require.False(t, allowed, "store outage must deny, not allow")
	require.ErrorIs(t, err, core.ErrStoreUnavailable)
}
