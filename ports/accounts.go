package ports

import "context"

// AccountDirectory resolves which billing account IDs an email owns.
// Backed by the billing provider in production; an empty result means the
// email is unknown, which callers must not reveal to unauthenticated users.
type AccountDirectory interface {
	AccountIDsByEmail(ctx context.Context, email string) ([]string, error)
}
