package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/redlobsta/portalauth/adapters/store"
	"github.com/redlobsta/portalauth/core"
)

func TestMagicLink_IssueAndRedeem(t *testing.T) {
	links := NewMagicLink(store.NewMemoryStore(), 15*time.Minute)
	ctx := context.Background()

	token, err := links.Issue(ctx, "  User@Example.COM ")
	require.NoError(t, err)
	require.Len(t, token, 64, "32 random bytes hex-encoded")

	email, err := links.Redeem(ctx, token)
	require.NoError(t, err)
	require.Equal(t, "user@example.com", email, "email is normalized at issue time")
}

func TestMagicLink_RedeemExactlyOnce(t *testing.T) {
	links := NewMagicLink(store.NewMemoryStore(), 15*time.Minute)
	ctx := context.Background()

	token, err := links.Issue(ctx, "user@example.com")
	require.NoError(t, err)

	_, err = links.Redeem(ctx, token)
	require.NoError(t, err)

	_, err = links.Redeem(ctx, token)
	require.ErrorIs(t, err, core.ErrTokenAlreadyUsed)
}

func TestMagicLink_UnknownToken(t *testing.T) {
	links := NewMagicLink(store.NewMemoryStore(), 15*time.Minute)

	_, err := links.Redeem(context.Background(), "deadbeef")
	require.ErrorIs(t, err, core.ErrInvalidToken)
}

func TestMagicLink_Expired(t *testing.T) {
	links := NewMagicLink(store.NewMemoryStore(), 15*time.Minute)
	ctx := context.Background()

	issued := time.Now()
	links.now = func() time.Time { return issued }

	token, err := links.Issue(ctx, "user@example.com")
	require.NoError(t, err)

	// Redemption 16 minutes later fails even though the token is
	// otherwise well-formed and unconsumed.
	links.now = func() time.Time { return issued.Add(16 * time.Minute) }

	_, err = links.Redeem(ctx, token)
	require.ErrorIs(t, err, core.ErrTokenExpired)
}

func TestMagicLink_ConcurrentRedemptionSingleWinner(t *testing.T) {
	links := NewMagicLink(store.NewMemoryStore(), 15*time.Minute)
	ctx := context.Background()

	token, err := links.Issue(ctx, "user@example.com")
	require.NoError(t, err)

	const racers = 16
	var wg sync.WaitGroup
	results := make(chan error, racers)

	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := links.Redeem(ctx, token)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var successes, alreadyUsed int
	for err := range results {
		switch {
		case err == nil:
			successes++
		case err == core.ErrTokenAlreadyUsed:
			alreadyUsed++
		default:
			t.Fatalf("unexpected redemption error: %v", err)
		}
	}

	require.Equal(t, 1, successes, "exactly one redemption may win")
	require.Equal(t, racers-1, alreadyUsed)
}

func TestMagicLink_StoreOutage(t *testing.T) {
	links := NewMagicLink(failingStore{}, 15*time.Minute)

	_, err := links.Issue(context.Background(), "user@example.com")
	require.ErrorIs(t, err, core.ErrStoreUnavailable)

	_, err = links.Redeem(context.Background(), "deadbeef")
	require.ErrorIs(t, err, core.ErrStoreUnavailable)
}
