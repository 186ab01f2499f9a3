package service

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/redlobsta/portalauth/adapters/accounts"
	"github.com/redlobsta/portalauth/adapters/store"
	"github.com/redlobsta/portalauth/adapters/tokenizer"
	"github.com/redlobsta/portalauth/config"
	"github.com/redlobsta/portalauth/core"
)

// captureMailer records outgoing links instead of delivering them.
type captureMailer struct {
	sent []string
}

func (m *captureMailer) SendMagicLink(ctx context.Context, email, link string, ttl time.Duration) error {
	m.sent = append(m.sent, link)
	return nil
}

// captureEvents records logout notifications.
type captureEvents struct {
	revoked []string
}

func (e *captureEvents) PublishLogout(ctx context.Context, email, credentialID string) error {
	e.revoked = append(e.revoked, credentialID)
	return nil
}

type authFixture struct {
	svc    *AuthService
	mailer *captureMailer
	events *captureEvents
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()

	kv := store.NewMemoryStore()
	log := testLogger()

	mailer := &captureMailer{}
	events := &captureEvents{}

	revocations := NewRevocationStore(kv, log)
	svc := NewAuthService(
		NewRateLimiter(kv, log),
		NewMagicLink(kv, 15*time.Minute),
		NewSessionManager(tokenizer.NewJWTTokenizer([]byte("unit-test-secret")), revocations, 24*time.Hour),
		accounts.NewStaticDirectory(map[string][]string{
			"user@example.com": {"cus_123"},
		}),
		mailer,
		events,
		"https://portal.example.com",
		15*time.Minute,
		RateLimitPolicy{MaxRequests: 3, Window: time.Hour},
		log,
	)

	return &authFixture{svc: svc, mailer: mailer, events: events}
}

// tokenFromLink extracts the raw token out of the emailed URL.
func tokenFromLink(t *testing.T, link string) string {
	t.Helper()
	u, err := url.Parse(link)
	require.NoError(t, err)
	require.Equal(t, "/auth/verify", u.Path)
	token := u.Query().Get("token")
	require.NotEmpty(t, token)
	return token
}

func TestAuthService_EndToEnd(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	// Request a login link.
	require.NoError(t, f.svc.RequestLogin(ctx, "user@example.com"))
	require.Len(t, f.mailer.sent, 1)

	// Redeem it within the TTL.
	token := tokenFromLink(t, f.mailer.sent[0])
	artifact, cred, err := f.svc.Redeem(ctx, token)
	require.NoError(t, err)
	require.Equal(t, []string{"cus_123"}, cred.AccountIDs)

	// The artifact authenticates and carries the same accounts.
	got, err := f.svc.Authenticate(ctx, artifact)
	require.NoError(t, err)
	require.Equal(t, "user@example.com", got.Email)
	require.Equal(t, []string{"cus_123"}, got.AccountIDs)

	// Logout revokes; the same artifact no longer authenticates.
	require.NoError(t, f.svc.Logout(ctx, artifact))
	require.Equal(t, []string{cred.ID}, f.events.revoked)

	_, err = f.svc.Authenticate(ctx, artifact)
	require.ErrorIs(t, err, core.ErrSessionRevoked)
}

func TestAuthService_TokenIsSingleUse(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.RequestLogin(ctx, "user@example.com"))
	token := tokenFromLink(t, f.mailer.sent[0])

	_, _, err := f.svc.Redeem(ctx, token)
	require.NoError(t, err)

	_, _, err = f.svc.Redeem(ctx, token)
	require.ErrorIs(t, err, core.ErrTokenAlreadyUsed)
}

func TestAuthService_UnknownEmailIndistinguishable(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	// Unknown email: same nil error as the known-email path, but no
	// email goes out.
	require.NoError(t, f.svc.RequestLogin(ctx, "stranger@example.com"))
	require.Empty(t, f.mailer.sent)
}

func TestAuthService_DirectoryPopulatedFromConfig(t *testing.T) {
	// The wired binary feeds config.Accounts.ByEmail into the static
	// directory; an empty directory would drop every login request.
	t.Setenv("ACCOUNTS", "user@example.com:cus_123")
	cfg, err := config.Load("")
	require.NoError(t, err)
	require.NotEmpty(t, cfg.Accounts.ByEmail)

	kv := store.NewMemoryStore()
	log := testLogger()
	mailer := &captureMailer{}
	svc := NewAuthService(
		NewRateLimiter(kv, log),
		NewMagicLink(kv, 15*time.Minute),
		NewSessionManager(tokenizer.NewJWTTokenizer([]byte("unit-test-secret")), NewRevocationStore(kv, log), 24*time.Hour),
		accounts.NewStaticDirectory(cfg.Accounts.ByEmail),
		mailer,
		&captureEvents{},
		"https://portal.example.com",
		15*time.Minute,
		RateLimitPolicy{MaxRequests: 3, Window: time.Hour},
		log,
	)

	require.NoError(t, svc.RequestLogin(context.Background(), "user@example.com"))
	require.Len(t, mailer.sent, 1)
}

func TestAuthService_RateLimitsLoginRequests(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, f.svc.RequestLogin(ctx, "user@example.com"))
	}

	err := f.svc.RequestLogin(ctx, "user@example.com")
	require.ErrorIs(t, err, core.ErrRateLimited)
	require.Len(t, f.mailer.sent, 3)

	// The limit is per identity, not global.
	require.NoError(t, f.svc.RequestLogin(ctx, "stranger@example.com"))
}

func TestAuthService_RateLimitCountsUnknownEmails(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	// Probing an unknown email is still counted, so the endpoint cannot
	// be hammered to find out which emails skip the limiter.
	for i := 0; i < 3; i++ {
		require.NoError(t, f.svc.RequestLogin(ctx, "stranger@example.com"))
	}
	err := f.svc.RequestLogin(ctx, "stranger@example.com")
	require.ErrorIs(t, err, core.ErrRateLimited)
}
