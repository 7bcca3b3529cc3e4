package rediswebhookstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/adamkirk/panoptes/internal/redis"
	"github.com/adamkirk/panoptes/internal/webhookstore/driver"
)

const defaultKeyPrefix = "panoptes"

// insertScript writes the webhook hash and its delivery index in one step.
// KEYS: webhook hash, delivery zset.
// ARGV: id, occurred_at, event, delivery_id, payload, score.
// Returns 0 when the id already exists.
var insertScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
  return 0
end
redis.call('HSET', KEYS[1],
  'id', ARGV[1],
  'occurred_at', ARGV[2],
  'event', ARGV[3],
  'delivery_id', ARGV[4],
  'payload', ARGV[5])
if ARGV[4] ~= '' then
  redis.call('ZADD', KEYS[2], ARGV[6], ARGV[1])
end
return 1
`)

type store struct {
	client    redis.Cmdable
	keyPrefix string
}

var _ driver.WebhookStore = (*store)(nil)

type Option func(*store)

// WithKeyPrefix namespaces every key so several deployments can share one
// Redis database.
func WithKeyPrefix(prefix string) Option {
	return func(s *store) {
		if prefix != "" {
			s.keyPrefix = prefix
		}
	}
}

func New(client redis.Cmdable, opts ...Option) driver.WebhookStore {
	s := &store{
		client:    client,
		keyPrefix: defaultKeyPrefix,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *store) webhookKey(id string) string {
	return fmt.Sprintf("%s:webhook:%s", s.keyPrefix, id)
}

func (s *store) deliveryKey(deliveryID string) string {
	return fmt.Sprintf("%s:delivery:%s", s.keyPrefix, deliveryID)
}

func (s *store) Init(_ context.Context) error {
	return nil
}

func (s *store) Insert(ctx context.Context, webhook driver.Webhook) error {
	payload, err := json.Marshal(webhook.Payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	occurredAt := webhook.OccurredAt.UTC()
	created, err := insertScript.Run(ctx, s.client,
		[]string{s.webhookKey(webhook.ID), s.deliveryKey(webhook.DeliveryID)},
		webhook.ID,
		occurredAt.Format(time.RFC3339Nano),
		webhook.Event,
		webhook.DeliveryID,
		string(payload),
		strconv.FormatInt(occurredAt.UnixMicro(), 10),
	).Int()
	if err != nil {
		return fmt.Errorf("insert webhook: %w", err)
	}
	if created == 0 {
		return driver.ErrDuplicateWebhook
	}
	return nil
}

func (s *store) Retrieve(ctx context.Context, id string) (*driver.Webhook, error) {
	fields, err := s.client.HGetAll(ctx, s.webhookKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("retrieve webhook: %w", err)
	}
	if len(fields) == 0 {
		return nil, driver.ErrWebhookNotFound
	}
	return parseWebhook(fields)
}

func (s *store) ListByDelivery(ctx context.Context, deliveryID string) ([]driver.Webhook, error) {
	ids, err := s.client.ZRange(ctx, s.deliveryKey(deliveryID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list webhooks by delivery: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	cmds, err := s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, id := range ids {
			pipe.HGetAll(ctx, s.webhookKey(id))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list webhooks by delivery: %w", err)
	}

	out := make([]driver.Webhook, 0, len(cmds))
	for _, cmd := range cmds {
		fields, err := cmd.(*redis.MapStringStringCmd).Result()
		if err != nil {
			return nil, fmt.Errorf("list webhooks by delivery: %w", err)
		}
		if len(fields) == 0 {
			continue
		}
		w, err := parseWebhook(fields)
		if err != nil {
			return nil, err
		}
		out = append(out, *w)
	}

	// Scores only carry microseconds.
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].OccurredAt.Equal(out[j].OccurredAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].OccurredAt.Before(out[j].OccurredAt)
	})
	return out, nil
}

func (s *store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func parseWebhook(fields map[string]string) (*driver.Webhook, error) {
	occurredAt, err := time.Parse(time.RFC3339Nano, fields["occurred_at"])
	if err != nil {
		return nil, fmt.Errorf("parse occurred_at: %w", err)
	}

	var payload map[string]any
	if raw := fields["payload"]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &payload); err != nil {
			return nil, fmt.Errorf("unmarshal payload: %w", err)
		}
	}

	return &driver.Webhook{
		ID:         fields["id"],
		OccurredAt: occurredAt,
		Event:      fields["event"],
		DeliveryID: fields["delivery_id"],
		Payload:    payload,
	}, nil
}
