// Package webhookstore provides the WebhookStore facade over the storage
// drivers.
package webhookstore

import (
	"fmt"

	"github.com/adamkirk/panoptes/internal/redis"
	"github.com/adamkirk/panoptes/internal/webhookstore/driver"
	"github.com/adamkirk/panoptes/internal/webhookstore/memwebhookstore"
	"github.com/adamkirk/panoptes/internal/webhookstore/pgwebhookstore"
	"github.com/adamkirk/panoptes/internal/webhookstore/rediswebhookstore"
	"github.com/jackc/pgx/v5/pgxpool"
)

type WebhookStore = driver.WebhookStore
type Webhook = driver.Webhook

var (
	ErrWebhookNotFound  = driver.ErrWebhookNotFound
	ErrDuplicateWebhook = driver.ErrDuplicateWebhook
)

const (
	DriverMemory   = "memory"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
)

// Config selects and wires a driver. Only the client matching Driver is
// required.
type Config struct {
	Driver      string
	RedisClient redis.Cmdable
	PgPool      *pgxpool.Pool
}

func New(cfg Config) (WebhookStore, error) {
	switch cfg.Driver {
	case DriverMemory:
		return memwebhookstore.New(), nil
	case DriverRedis:
		if cfg.RedisClient == nil {
			return nil, fmt.Errorf("webhookstore: redis driver requires a redis client")
		}
		return rediswebhookstore.New(cfg.RedisClient), nil
	case DriverPostgres:
		if cfg.PgPool == nil {
			return nil, fmt.Errorf("webhookstore: postgres driver requires a connection pool")
		}
		return pgwebhookstore.New(cfg.PgPool), nil
	default:
		return nil, fmt.Errorf("webhookstore: unknown driver %q", cfg.Driver)
	}
}

// NewMemWebhookStore creates an in-memory WebhookStore for testing.
func NewMemWebhookStore() WebhookStore {
	return memwebhookstore.New()
}
