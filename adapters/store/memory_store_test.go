package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMemoryStore_GetMissing(t *testing.T) {
	s := NewMemoryStore()

	val, found, err := s.Get(context.Background(), "nope")
	require.NoError(t, err)
	require.False(t, found)
	require.Empty(t, val)
}

func TestMemoryStore_SetIfAbsent(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	ok, err := s.SetIfAbsent(ctx, "k", "v1", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = s.SetIfAbsent(ctx, "k", "v2", time.Minute)
	require.NoError(t, err)
	require.False(t, ok)

	val, found, err := s.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "v1", val)
}

func TestMemoryStore_TTLExpiry(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	now := time.Now()
	s.SetClock(func() time.Time { return now })

	ok, err := s.SetIfAbsent(ctx, "k", "v", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	// Still live just inside the TTL.
	s.SetClock(func() time.Time { return now.Add(59 * time.Second) })
	_, found, err := s.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, found)

	// Gone past the TTL, and the key becomes settable again.
	s.SetClock(func() time.Time { return now.Add(61 * time.Second) })
	_, found, err = s.Get(ctx, "k")
	require.NoError(t, err)
	require.False(t, found)

	ok, err = s.SetIfAbsent(ctx, "k", "v2", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestMemoryStore_Increment(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		got, err := s.Increment(ctx, "counter")
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
}

func TestMemoryStore_IncrementResetsAfterExpiry(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	now := time.Now()
	s.SetClock(func() time.Time { return now })

	_, err := s.Increment(ctx, "counter")
	require.NoError(t, err)
	require.NoError(t, s.SetExpiry(ctx, "counter", time.Minute))

	s.SetClock(func() time.Time { return now.Add(2 * time.Minute) })

	got, err := s.Increment(ctx, "counter")
	require.NoError(t, err)
	require.Equal(t, int64(1), got)
}

func TestMemoryStore_SetIfAbsentSingleWinner(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	const racers = 32
	var wg sync.WaitGroup
	wins := make(chan struct{}, racers)

	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := s.SetIfAbsent(ctx, "contested", "1", time.Minute)
			require.NoError(t, err)
			if ok {
				wins <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(wins)

	require.Len(t, wins, 1)
}
