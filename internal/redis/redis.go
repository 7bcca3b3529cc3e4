package redis

import (
	"context"
	"crypto/tls"
	"fmt"

	"github.com/redis/go-redis/extra/redisotel/v9"
	r "github.com/redis/go-redis/v9"
)

type (
	Cmdable            = r.Cmdable
	Pipeliner          = r.Pipeliner
	MapStringStringCmd = r.MapStringStringCmd
	Z                  = r.Z
	Script             = r.Script
)

var NewScript = r.NewScript

// Client is the subset of go-redis the webhook store depends on.
type Client interface {
	Cmdable
	Close() error
}

// NewClient dials Redis, pings it and attaches OpenTelemetry instrumentation.
func NewClient(ctx context.Context, config *RedisConfig) (Client, error) {
	options := &r.Options{
		Addr:     config.Addr(),
		Username: config.Username,
		Password: config.Password,
		DB:       config.Database,
	}

	if config.TLSEnabled {
		options.TLSConfig = &tls.Config{
			MinVersion: tls.VersionTLS12,
		}
	}

	client := r.NewClient(options)

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	if err := redisotel.InstrumentTracing(client); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis tracing instrumentation failed: %w", err)
	}

	if err := redisotel.InstrumentMetrics(client); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis metrics instrumentation failed: %w", err)
	}

	return client, nil
}
