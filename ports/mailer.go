package ports

import (
	"context"
	"time"
)

// Mailer delivers login emails. Delivery transport is an external
// collaborator; the auth core only hands over the link and its lifetime.
type Mailer interface {
	SendMagicLink(ctx context.Context, email, link string, ttl time.Duration) error
}
