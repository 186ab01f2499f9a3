package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/redlobsta/portalauth/ports"
)

// LogoutEvent notifies other instances that a session credential was revoked
type LogoutEvent struct {
	Email        string `json:"email"`
	CredentialID string `json:"credential_id"`
}

// WatermillPublisher implements the EventPublisher interface using Watermill
type WatermillPublisher struct {
	publisher message.Publisher
	topic     string
}

// NewWatermillPublisher creates a new Watermill publisher
func NewWatermillPublisher(publisher message.Publisher) ports.EventPublisher {
	return &WatermillPublisher{
		publisher: publisher,
		topic:     "portal.auth.logout",
	}
}

// PublishLogout publishes a logout event
func (p *WatermillPublisher) PublishLogout(ctx context.Context, email string, credentialID string) error {
	event := LogoutEvent{
		Email:        email,
		CredentialID: credentialID,
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(credentialID, payload)

	if err := p.publisher.Publish(p.topic, msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}

// NopPublisher discards logout events. Used when no message broker is
// configured; revocation still works through the shared store.
type NopPublisher struct{}

func (NopPublisher) PublishLogout(ctx context.Context, email string, credentialID string) error {
	return nil
}
