package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/adamkirk/panoptes/internal/otel"
)

var (
	ErrInvalidPort         = errors.New("api port must be between 1 and 65535")
	ErrInvalidLogFormat    = errors.New("log format must be one of: json, text")
	ErrUnknownStoreDriver  = errors.New("unknown store driver")
	ErrMissingRedis        = errors.New("redis host is required for the redis store driver")
	ErrMissingPostgresURL  = errors.New("postgres url is required for the postgres store driver")
	ErrInvalidPostgresURL  = errors.New("postgres url must use the postgres:// or postgresql:// scheme")
	ErrInvalidShutdownTime = errors.New("shutdown timeout seconds must not be negative")
	ErrInvalidOTelProtocol = errors.New("otel protocol must be one of: http, grpc")
	ErrInvalidStoreMonitor = errors.New("store monitor interval, timeout and max failures must be positive")
)

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	c.validated = false

	if err := c.validateAPI(); err != nil {
		return err
	}

	if err := c.validateLogFormat(); err != nil {
		return err
	}

	if err := c.validateStore(); err != nil {
		return err
	}

	if err := c.validateStoreMonitor(); err != nil {
		return err
	}

	if err := c.validateOpenTelemetry(); err != nil {
		return err
	}

	c.validated = true
	return nil
}

// IsValidated reports whether the last Validate call succeeded.
func (c *Config) IsValidated() bool {
	return c.validated
}

func (c *Config) validateAPI() error {
	if c.API.Port < 1 || c.API.Port > 65535 {
		return ErrInvalidPort
	}
	if c.API.ShutdownTimeoutSeconds < 0 {
		return ErrInvalidShutdownTime
	}
	return nil
}

func (c *Config) validateLogFormat() error {
	switch strings.ToLower(c.LogFormat) {
	case "json", "text":
		return nil
	}
	return ErrInvalidLogFormat
}

func (c *Config) validateStore() error {
	if !c.Store.Driver.IsKnown() {
		return fmt.Errorf("%w: %q", ErrUnknownStoreDriver, c.Store.Driver)
	}

	switch c.Store.Driver {
	case StoreDriverRedis:
		if c.Store.Redis.Host == "" {
			return ErrMissingRedis
		}
	case StoreDriverPostgres:
		if c.Store.PostgresURL == "" {
			return ErrMissingPostgresURL
		}
		u, err := url.Parse(c.Store.PostgresURL)
		if err != nil || (u.Scheme != "postgres" && u.Scheme != "postgresql") {
			return ErrInvalidPostgresURL
		}
	}
	return nil
}

func (c *Config) validateStoreMonitor() error {
	m := c.StoreMonitor
	if m.PingIntervalSeconds <= 0 || m.PingTimeoutSeconds <= 0 || m.MaxFailures <= 0 {
		return ErrInvalidStoreMonitor
	}
	return nil
}

func (c *Config) validateOpenTelemetry() error {
	for _, exporter := range []OTelExporterConfig{c.OpenTelemetry.Traces, c.OpenTelemetry.Metrics} {
		switch exporter.Protocol {
		case "", otel.ProtocolHTTP, otel.ProtocolGRPC:
		default:
			return fmt.Errorf("%w: %q", ErrInvalidOTelProtocol, exporter.Protocol)
		}
	}
	return nil
}
