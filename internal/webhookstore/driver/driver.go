// Package driver defines the WebhookStore interface and the types shared by
// every storage backend.
package driver

import (
	"context"
	"errors"
	"time"
)

var (
	ErrWebhookNotFound  = errors.New("webhook not found")
	ErrDuplicateWebhook = errors.New("webhook already exists")
)

// Webhook is one GitHub delivery as it was received.
type Webhook struct {
	ID         string
	OccurredAt time.Time
	Event      string
	DeliveryID string
	Payload    map[string]any
}

type WebhookStore interface {
	// Init prepares the backend. It must be safe to call more than once.
	Init(ctx context.Context) error
	// Insert returns ErrDuplicateWebhook when the id is already stored.
	Insert(ctx context.Context, webhook Webhook) error
	// Retrieve returns ErrWebhookNotFound when no webhook has the id.
	Retrieve(ctx context.Context, id string) (*Webhook, error)
	// ListByDelivery returns the webhooks recorded for a delivery ordered by
	// OccurredAt then ID. GitHub redeliveries reuse the delivery id, so there
	// may be more than one.
	ListByDelivery(ctx context.Context, deliveryID string) ([]Webhook, error)
	Ping(ctx context.Context) error
}
