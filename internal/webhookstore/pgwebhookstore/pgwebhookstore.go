package pgwebhookstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/adamkirk/panoptes/internal/webhookstore/driver"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

type store struct {
	db *pgxpool.Pool
}

var _ driver.WebhookStore = (*store)(nil)

func New(db *pgxpool.Pool) driver.WebhookStore {
	return &store{
		db: db,
	}
}

// Init checks the schema is in place. Migrations create it.
func (s *store) Init(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, `SELECT 1 FROM github_webhooks LIMIT 0`); err != nil {
		return fmt.Errorf("github_webhooks table unavailable, have migrations run? %w", err)
	}
	return nil
}

func (s *store) Insert(ctx context.Context, webhook driver.Webhook) error {
	id, err := uuid.Parse(webhook.ID)
	if err != nil {
		return fmt.Errorf("invalid webhook id %q: %w", webhook.ID, err)
	}

	payload, err := json.Marshal(webhook.Payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO github_webhooks (id, occurred_at, event, delivery_id, payload)
		VALUES ($1, $2, $3, $4, $5)
	`, id, webhook.OccurredAt.UTC(), webhook.Event, webhook.DeliveryID, payload)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return driver.ErrDuplicateWebhook
		}
		return fmt.Errorf("insert webhook: %w", err)
	}
	return nil
}

func (s *store) Retrieve(ctx context.Context, id string) (*driver.Webhook, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, driver.ErrWebhookNotFound
	}

	row := s.db.QueryRow(ctx, `
		SELECT id::text, occurred_at, event, delivery_id, payload
		FROM github_webhooks
		WHERE id = $1
	`, parsed)

	w, err := scanWebhook(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, driver.ErrWebhookNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("retrieve webhook: %w", err)
	}
	return w, nil
}

func (s *store) ListByDelivery(ctx context.Context, deliveryID string) ([]driver.Webhook, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id::text, occurred_at, event, delivery_id, payload
		FROM github_webhooks
		WHERE delivery_id = $1
		ORDER BY occurred_at ASC, id ASC
	`, deliveryID)
	if err != nil {
		return nil, fmt.Errorf("list webhooks by delivery: %w", err)
	}
	defer rows.Close()

	var out []driver.Webhook
	for rows.Next() {
		w, err := scanWebhook(rows)
		if err != nil {
			return nil, fmt.Errorf("scan webhook: %w", err)
		}
		out = append(out, *w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list webhooks by delivery: %w", err)
	}
	return out, nil
}

func (s *store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func scanWebhook(row pgx.Row) (*driver.Webhook, error) {
	var (
		w       driver.Webhook
		payload []byte
	)
	if err := row.Scan(&w.ID, &w.OccurredAt, &w.Event, &w.DeliveryID, &payload); err != nil {
		return nil, err
	}
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &w.Payload); err != nil {
			return nil, fmt.Errorf("unmarshal payload: %w", err)
		}
	}
	w.OccurredAt = w.OccurredAt.UTC()
	return &w, nil
}
