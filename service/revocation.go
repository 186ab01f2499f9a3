package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redlobsta/portalauth/core"
	"github.com/redlobsta/portalauth/ports"
)

const revocationPrefix = "revoked:"

// RevocationStore is the blacklist of invalidated credential identifiers.
// Entries carry the remaining lifetime of the credential they revoke, so
// the store never holds an entry longer than the credential could have
// lived anyway.
type RevocationStore struct {
	store ports.KeyValueStore
	log   *slog.Logger
}

// NewRevocationStore creates a revocation store over the given store
func NewRevocationStore(store ports.KeyValueStore, log *slog.Logger) *RevocationStore {
	return &RevocationStore{store: store, log: log}
}

// Revoke records credentialID as invalidated for the given remaining
// lifetime. A non-positive remaining means the credential is already
// expired and the call is a no-op.
func (r *RevocationStore) Revoke(ctx context.Context, credentialID string, remaining time.Duration) error {
	if remaining <= 0 {
		return nil
	}
	if _, err := r.store.SetIfAbsent(ctx, revocationPrefix+credentialID, "1", remaining); err != nil {
		return fmt.Errorf("%w: %v", core.ErrStoreUnavailable, err)
	}
	return nil
}

// IsRevoked reports whether credentialID has been invalidated.
//
// When the store is unreachable this check fails open: a live credential
// keeps working while revocations written during the outage are not
// enforced until the store returns. That trades security for availability
// and is logged loudly each time it happens.
func (r *RevocationStore) IsRevoked(ctx context.Context, credentialID string) bool {
	_, found, err := r.store.Get(ctx, revocationPrefix+credentialID)
	if err != nil {
		r.log.Error("revocation store unreachable, treating credential as not revoked",
			"credential_id", credentialID, "err", err)
		return false
	}
	return found
}
