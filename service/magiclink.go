package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redlobsta/portalauth/core"
	"github.com/redlobsta/portalauth/ports"
)

const (
	// tokenBytes gives 256 bits of entropy per magic-link token.
	tokenBytes = 32

	magicLinkTokenPrefix = "magiclink:token:"
	magicLinkUsedPrefix  = "magiclink:used:"
)

// MagicLink issues one-time login tokens and enforces their single-use
// consumption. Both sides go through the shared store, so the guarantees
// hold across stateless instances: consumption is a single conditional
// set, and whichever concurrent redemption lands it first wins.
type MagicLink struct {
	store ports.KeyValueStore
	ttl   time.Duration
	now   func() time.Time
}

// NewMagicLink creates a magic-link issuer with the given token lifetime
func NewMagicLink(store ports.KeyValueStore, ttl time.Duration) *MagicLink {
	return &MagicLink{
		store: store,
		ttl:   ttl,
		now:   time.Now,
	}
}

// tokenRecord is the stored form of a pending link. The store key is the
// token's hash, so a leaked store dump does not yield usable links.
type tokenRecord struct {
	Email     string    `json:"email"`
	IssuedAt  time.Time `json:"iat"`
	ExpiresAt time.Time `json:"exp"`
}

func tokenDigest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// Issue generates an opaque token bound to email and persists its record
// with the configured TTL. The returned string is the only copy of the
// raw token; it goes into the emailed link and nowhere else.
func (m *MagicLink) Issue(ctx context.Context, email string) (string, error) {
	email = core.NormalizeEmail(email)

	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	token := hex.EncodeToString(buf)

	issuedAt := m.now()
	payload, err := json.Marshal(tokenRecord{
		Email:     email,
		IssuedAt:  issuedAt,
		ExpiresAt: issuedAt.Add(m.ttl),
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode token record: %w", err)
	}

	ok, err := m.store.SetIfAbsent(ctx, magicLinkTokenPrefix+tokenDigest(token), string(payload), m.ttl)
	if err != nil {
		return "", fmt.Errorf("%w: %v", core.ErrStoreUnavailable, err)
	}
	if !ok {
		// 256-bit collision; treat as a store anomaly rather than retry.
		return "", fmt.Errorf("%w: token key collision", core.ErrStoreUnavailable)
	}

	return token, nil
}

// Redeem consumes a token, returning the email it was issued for.
// Fails with core.ErrInvalidToken when unknown, core.ErrTokenExpired past
// its TTL and core.ErrTokenAlreadyUsed on any redemption after the first.
//
// The consumption marker is a conditional set keyed by the token hash:
// the check and the mark are one atomic store operation, so two racing
// redemptions can never both succeed.
func (m *MagicLink) Redeem(ctx context.Context, token string) (string, error) {
	digest := tokenDigest(token)

	raw, found, err := m.store.Get(ctx, magicLinkTokenPrefix+digest)
	if err != nil {
		return "", fmt.Errorf("%w: %v", core.ErrStoreUnavailable, err)
	}
	if !found {
		return "", core.ErrInvalidToken
	}

	var rec tokenRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return "", fmt.Errorf("%w: malformed token record", core.ErrInvalidToken)
	}

	remaining := rec.ExpiresAt.Sub(m.now())
	if remaining <= 0 {
		return "", core.ErrTokenExpired
	}

	ok, err := m.store.SetIfAbsent(ctx, magicLinkUsedPrefix+digest, "1", remaining)
	if err != nil {
		return "", fmt.Errorf("%w: %v", core.ErrStoreUnavailable, err)
	}
	if !ok {
		return "", core.ErrTokenAlreadyUsed
	}

	return rec.Email, nil
}
