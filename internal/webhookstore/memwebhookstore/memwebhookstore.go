package memwebhookstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/adamkirk/panoptes/internal/webhookstore/driver"
)

type store struct {
	mu       sync.RWMutex
	webhooks map[string]driver.Webhook
}

var _ driver.WebhookStore = (*store)(nil)

func New() driver.WebhookStore {
	return &store{
		webhooks: make(map[string]driver.Webhook),
	}
}

func (s *store) Init(_ context.Context) error {
	return nil
}

func (s *store) Insert(_ context.Context, webhook driver.Webhook) error {
	payload, err := clonePayload(webhook.Payload)
	if err != nil {
		return err
	}
	webhook.Payload = payload

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.webhooks[webhook.ID]; exists {
		return driver.ErrDuplicateWebhook
	}
	s.webhooks[webhook.ID] = webhook
	return nil
}

func (s *store) Retrieve(_ context.Context, id string) (*driver.Webhook, error) {
	s.mu.RLock()
	webhook, ok := s.webhooks[id]
	s.mu.RUnlock()
	if !ok {
		return nil, driver.ErrWebhookNotFound
	}

	payload, err := clonePayload(webhook.Payload)
	if err != nil {
		return nil, err
	}
	webhook.Payload = payload
	return &webhook, nil
}

func (s *store) ListByDelivery(_ context.Context, deliveryID string) ([]driver.Webhook, error) {
	s.mu.RLock()
	var out []driver.Webhook
	for _, w := range s.webhooks {
		if w.DeliveryID == deliveryID {
			out = append(out, w)
		}
	}
	s.mu.RUnlock()

	for i := range out {
		payload, err := clonePayload(out[i].Payload)
		if err != nil {
			return nil, err
		}
		out[i].Payload = payload
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].OccurredAt.Equal(out[j].OccurredAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].OccurredAt.Before(out[j].OccurredAt)
	})
	return out, nil
}

func (s *store) Ping(_ context.Context) error {
	return nil
}

// clonePayload round-trips through JSON so callers never share maps with the
// store and values come back with the same types the other drivers return.
func clonePayload(payload map[string]any) (map[string]any, error) {
	if payload == nil {
		return nil, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}
	return out, nil
}
