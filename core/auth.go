package core

import (
	"strings"
	"time"
)

// MagicLinkToken represents a pending one-time login link.
// The opaque token string itself is never stored; records are keyed by its hash.
type MagicLinkToken struct {
	Email     string    // Normalized email the link was issued for
	IssuedAt  time.Time // When the link was created
	ExpiresAt time.Time // When the link expires
}

// SessionCredential represents an authenticated user session.
// Credentials are immutable: a "refresh" is the issuance of a new credential,
// and revocation is recorded externally against the credential ID.
type SessionCredential struct {
	ID         string    // Unique credential identifier (jti), used for revocation
	Email      string    // Email of the authenticated user
	AccountIDs []string  // Billing account identifiers owned by this user
	IssuedAt   time.Time // When the credential was issued
	ExpiresAt  time.Time // When the credential expires
}

// Expired reports whether the credential is past its expiry at the given time.
func (c *SessionCredential) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// Remaining returns the credential's remaining lifetime at the given time.
// Returns zero or negative once expired.
func (c *SessionCredential) Remaining(now time.Time) time.Duration {
	return c.ExpiresAt.Sub(now)
}

// NormalizeEmail lowercases and trims an email address for use as an
// identity key. All components agree on this normalization.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
