package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/redlobsta/portalauth/core"
	"github.com/redlobsta/portalauth/ports"
)

// SessionManager mints and verifies signed session credentials and applies
// revocation. Credentials are immutable: Issue always produces a fresh one,
// and Revoke records the credential ID in the blacklist instead of touching
// the artifact.
type SessionManager struct {
	tokenizer   ports.Tokenizer
	revocations *RevocationStore
	ttl         time.Duration
	now         func() time.Time
}

// NewSessionManager creates a session manager with the given credential lifetime
func NewSessionManager(tokenizer ports.Tokenizer, revocations *RevocationStore, ttl time.Duration) *SessionManager {
	return &SessionManager{
		tokenizer:   tokenizer,
		revocations: revocations,
		ttl:         ttl,
		now:         time.Now,
	}
}

// TTL returns the configured credential lifetime.
func (s *SessionManager) TTL() time.Duration {
	return s.ttl
}

// Issue builds and signs a credential for email with the given account IDs.
// Returns the signed artifact for the client and the decoded credential.
func (s *SessionManager) Issue(ctx context.Context, email string, accountIDs []string) (string, *core.SessionCredential, error) {
	now := s.now()
	cred := &core.SessionCredential{
		ID:         uuid.New().String(),
		Email:      core.NormalizeEmail(email),
		AccountIDs: accountIDs,
		IssuedAt:   now,
		ExpiresAt:  now.Add(s.ttl),
	}

	artifact, err := s.tokenizer.CredentialToToken(cred)
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign credential: %w", err)
	}

	return artifact, cred, nil
}

// Verify checks the artifact's signature and expiry, then the revocation
// blacklist. Only a credential that passes all three is returned.
func (s *SessionManager) Verify(ctx context.Context, artifact string) (*core.SessionCredential, error) {
	cred, err := s.tokenizer.TokenToCredential(artifact)
	if err != nil {
		return nil, err
	}

	if cred.Expired(s.now()) {
		return nil, core.ErrTokenExpired
	}

	if cred.ID != "" && s.revocations.IsRevoked(ctx, cred.ID) {
		return nil, core.ErrSessionRevoked
	}

	return cred, nil
}

// Revoke blacklists the credential carried by artifact for its remaining
// lifetime. The artifact may already be near or past expiry; its signature
// must still verify, and an expired credential is a no-op. Callers must
// revoke before clearing the client-held artifact, so a retry with the
// same artifact can never observe a window where it still looks valid.
func (s *SessionManager) Revoke(ctx context.Context, artifact string) (*core.SessionCredential, error) {
	cred, err := s.tokenizer.DecodeCredential(artifact)
	if err != nil {
		return nil, err
	}
	if cred.ID == "" {
		return nil, core.ErrInvalidToken
	}

	if err := s.revocations.Revoke(ctx, cred.ID, cred.Remaining(s.now())); err != nil {
		return nil, err
	}

	return cred, nil
}

// IsAuthFailure reports whether err is one of the verification failures
// that callers collapse into a uniform "not authenticated" outcome, as
// opposed to an operational error.
func IsAuthFailure(err error) bool {
	return errors.Is(err, core.ErrInvalidToken) ||
		errors.Is(err, core.ErrTokenExpired) ||
		errors.Is(err, core.ErrTokenAlreadyUsed) ||
		errors.Is(err, core.ErrInvalidSignature) ||
		errors.Is(err, core.ErrSessionRevoked)
}
