package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/redlobsta/portalauth/core"
	"github.com/redlobsta/portalauth/ports"
)

// RateLimitPolicy bounds login-link requests per identity.
type RateLimitPolicy struct {
	MaxRequests int64
	Window      time.Duration
}

// AuthService drives the passwordless login flow end to end:
// rate-limited token issuance, email delivery, one-time redemption,
// session issuance, verification and logout.
type AuthService struct {
	limiter   *RateLimiter
	links     *MagicLink
	sessions  *SessionManager
	accounts  ports.AccountDirectory
	mailer    ports.Mailer
	events    ports.EventPublisher
	appOrigin string
	linkTTL   time.Duration
	policy    RateLimitPolicy
	log       *slog.Logger
}

// NewAuthService wires the authentication flow together
func NewAuthService(
	limiter *RateLimiter,
	links *MagicLink,
	sessions *SessionManager,
	accounts ports.AccountDirectory,
	mailer ports.Mailer,
	events ports.EventPublisher,
	appOrigin string,
	linkTTL time.Duration,
	policy RateLimitPolicy,
	log *slog.Logger,
) *AuthService {
	return &AuthService{
		limiter:   limiter,
		links:     links,
		sessions:  sessions,
		accounts:  accounts,
		mailer:    mailer,
		events:    events,
		appOrigin: appOrigin,
		linkTTL:   linkTTL,
		policy:    policy,
		log:       log,
	}
}

// Policy reports the rate-limit policy the service enforces on login
// requests, so transports can surface it to clients.
func (s *AuthService) Policy() RateLimitPolicy {
	return s.policy
}

// buildMagicLink renders the verification URL carrying the raw token.
func (s *AuthService) buildMagicLink(token string) (string, error) {
	u, err := url.Parse(s.appOrigin)
	if err != nil {
		return "", fmt.Errorf("invalid app origin: %w", err)
	}
	u.Path = "/auth/verify"
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// RequestLogin handles a login request for email: rate limit, issue a
// one-time token, email the link. When the email has no linked accounts
// nothing is sent, but the caller still gets a nil error so that the
// outcome is indistinguishable from a successful send and the endpoint
// cannot be used to enumerate registered emails.
func (s *AuthService) RequestLogin(ctx context.Context, email string) error {
	email = core.NormalizeEmail(email)

	allowed, _, _ := s.limiter.Allow(ctx, "magiclink:"+email, s.policy.MaxRequests, s.policy.Window)
	if !allowed {
		// Covers both an exhausted window and a store outage; the
		// limiter fails closed and logs the outage itself.
		s.log.Info("login request rate limited", "email", email)
		return core.ErrRateLimited
	}

	accountIDs, err := s.accounts.AccountIDsByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("account lookup failed: %w", err)
	}
	if len(accountIDs) == 0 {
		s.log.Info("login requested for email with no accounts", "email", email)
		return nil
	}

	token, err := s.links.Issue(ctx, email)
	if err != nil {
		return fmt.Errorf("failed to issue login token: %w", err)
	}

	link, err := s.buildMagicLink(token)
	if err != nil {
		return err
	}

	if err := s.mailer.SendMagicLink(ctx, email, link, s.linkTTL); err != nil {
		return fmt.Errorf("failed to send login email: %w", err)
	}

	s.log.Info("magic link sent", "email", email)
	return nil
}

// Redeem consumes a one-time token and issues a session for its email.
// Returns the signed artifact to hand to the client and the credential.
func (s *AuthService) Redeem(ctx context.Context, token string) (string, *core.SessionCredential, error) {
	email, err := s.links.Redeem(ctx, token)
	if err != nil {
		return "", nil, err
	}

	// A user may have lost all accounts between issue and redemption;
	// they still get a session so the portal can show the empty state.
	accountIDs, err := s.accounts.AccountIDsByEmail(ctx, email)
	if err != nil {
		s.log.Error("account lookup failed during redemption", "email", email, "err", err)
		accountIDs = nil
	}

	artifact, cred, err := s.sessions.Issue(ctx, email, accountIDs)
	if err != nil {
		return "", nil, err
	}

	s.log.Info("session issued", "email", email, "credential_id", cred.ID)
	return artifact, cred, nil
}

// Authenticate verifies a client-held artifact and returns its credential.
func (s *AuthService) Authenticate(ctx context.Context, artifact string) (*core.SessionCredential, error) {
	return s.sessions.Verify(ctx, artifact)
}

// Logout revokes the artifact's credential and notifies other instances.
// Revocation happens before the caller clears the client-side artifact.
func (s *AuthService) Logout(ctx context.Context, artifact string) error {
	cred, err := s.sessions.Revoke(ctx, artifact)
	if err != nil {
		return err
	}

	if err := s.events.PublishLogout(ctx, cred.Email, cred.ID); err != nil {
		// The blacklist entry is already written, which is the part that
		// matters; a missed broadcast only delays other instances.
		s.log.Warn("failed to publish logout event", "credential_id", cred.ID, "err", err)
	}

	s.log.Info("session revoked", "email", cred.Email, "credential_id", cred.ID)
	return nil
}
