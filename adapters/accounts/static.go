// Package accounts provides AccountDirectory implementations. Production
// deployments point this at the billing provider; the static directory
// covers development and tests.
package accounts

import (
	"context"

	"github.com/redlobsta/portalauth/core"
	"github.com/redlobsta/portalauth/ports"
)

// StaticDirectory maps normalized emails to account IDs from configuration.
type StaticDirectory struct {
	byEmail map[string][]string
}

// NewStaticDirectory builds a directory from an email -> account IDs map.
// Keys are normalized on the way in.
func NewStaticDirectory(byEmail map[string][]string) *StaticDirectory {
	m := make(map[string][]string, len(byEmail))
	for email, ids := range byEmail {
		m[core.NormalizeEmail(email)] = ids
	}
	return &StaticDirectory{byEmail: m}
}

// AccountIDsByEmail returns the account IDs for email, or an empty slice
// when the email is unknown. Unknown is not an error: callers decide how
// much to reveal.
func (d *StaticDirectory) AccountIDsByEmail(ctx context.Context, email string) ([]string, error) {
	return d.byEmail[core.NormalizeEmail(email)], nil
}

var _ ports.AccountDirectory = (*StaticDirectory)(nil)
