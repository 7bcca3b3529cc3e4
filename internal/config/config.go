package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/adamkirk/panoptes/internal/otel"
	"github.com/adamkirk/panoptes/internal/redis"
	"github.com/caarlos0/env/v9"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	Namespace = "Panoptes"
	EnvPrefix = "PANOPTES_"
)

func getConfigLocations() []string {
	return []string{
		// Relative paths
		".env",
		".panoptes.yaml",
		"config/panoptes.yaml",
		"config/panoptes/config.yaml",
		"config/panoptes/.env",

		// Container-friendly absolute paths
		"/config/panoptes.yaml",
		"/config/panoptes/config.yaml",
		"/config/panoptes/.env",
	}
}

type Flags struct {
	Config string
}

type Config struct {
	configPath string
	validated  bool

	LogLevel    string `yaml:"log_level" env:"LOG_LEVEL"`
	LogFormat   string `yaml:"log_format" env:"LOG_FORMAT"`
	GinMode     string `yaml:"gin_mode" env:"GIN_MODE"`
	ServiceName string `yaml:"service_name" env:"SERVICE_NAME"`

	API           APIConfig           `yaml:"api" envPrefix:"API_"`
	Store         StoreConfig         `yaml:"store" envPrefix:"STORE_"`
	StoreMonitor  StoreMonitorConfig  `yaml:"store_monitor" envPrefix:"STORE_MONITOR_"`
	OpenTelemetry OpenTelemetryConfig `yaml:"otel" envPrefix:"OTEL_"`
}

type APIConfig struct {
	Port                   int             `yaml:"port" env:"PORT"`
	DebugErrorsEnabled     bool            `yaml:"debug_errors_enabled" env:"DEBUG_ERRORS_ENABLED"`
	ShutdownTimeoutSeconds int             `yaml:"shutdown_timeout_seconds" env:"SHUTDOWN_TIMEOUT_SECONDS"`
	AccessLog              AccessLogConfig `yaml:"access_log" envPrefix:"ACCESS_LOG_"`
}

type AccessLogConfig struct {
	Enabled bool `yaml:"enabled" env:"ENABLED"`
}

type StoreDriver string

const (
	StoreDriverMemory   StoreDriver = "memory"
	StoreDriverRedis    StoreDriver = "redis"
	StoreDriverPostgres StoreDriver = "postgres"
)

var availableStoreDrivers = []StoreDriver{
	StoreDriverMemory,
	StoreDriverRedis,
	StoreDriverPostgres,
}

func (d StoreDriver) IsKnown() bool {
	for _, known := range availableStoreDrivers {
		if known == d {
			return true
		}
	}
	return false
}

type StoreConfig struct {
	Driver      StoreDriver `yaml:"driver" env:"DRIVER"`
	PostgresURL string      `yaml:"postgres_url" env:"POSTGRES_URL"`
	Redis       RedisConfig `yaml:"redis" envPrefix:"REDIS_"`
}

type RedisConfig struct {
	Host       string `yaml:"host" env:"HOST"`
	Port       int    `yaml:"port" env:"PORT"`
	Password   string `yaml:"password" env:"PASSWORD"`
	Database   int    `yaml:"database" env:"DATABASE"`
	TLSEnabled bool   `yaml:"tls_enabled" env:"TLS_ENABLED"`
}

func (c *RedisConfig) ToConfig() *redis.RedisConfig {
	return &redis.RedisConfig{
		Host:       c.Host,
		Port:       c.Port,
		Password:   c.Password,
		Database:   c.Database,
		TLSEnabled: c.TLSEnabled,
	}
}

// StoreMonitorConfig controls how often the webhook store is pinged and how
// many failures in a row mark the service unready.
type StoreMonitorConfig struct {
	PingIntervalSeconds int `yaml:"ping_interval_seconds" env:"PING_INTERVAL_SECONDS"`
	PingTimeoutSeconds  int `yaml:"ping_timeout_seconds" env:"PING_TIMEOUT_SECONDS"`
	MaxFailures         int `yaml:"max_failures" env:"MAX_FAILURES"`
}

func (c StoreMonitorConfig) PingInterval() time.Duration {
	return time.Duration(c.PingIntervalSeconds) * time.Second
}

func (c StoreMonitorConfig) PingTimeout() time.Duration {
	return time.Duration(c.PingTimeoutSeconds) * time.Second
}

type OpenTelemetryConfig struct {
	Traces  OTelExporterConfig `yaml:"traces" envPrefix:"TRACES_"`
	Metrics OTelExporterConfig `yaml:"metrics" envPrefix:"METRICS_"`
}

// OTelExporterConfig enables one signal when Endpoint is set. Protocol is
// "http" (default) or "grpc".
type OTelExporterConfig struct {
	Endpoint string `yaml:"endpoint" env:"ENDPOINT"`
	Protocol string `yaml:"protocol" env:"PROTOCOL"`
}

func (c *Config) ToOTelConfig() otel.Config {
	return otel.Config{
		ServiceName: c.ServiceName,
		Traces: otel.ExporterConfig{
			Endpoint: c.OpenTelemetry.Traces.Endpoint,
			Protocol: c.OpenTelemetry.Traces.Protocol,
		},
		Metrics: otel.ExporterConfig{
			Endpoint: c.OpenTelemetry.Metrics.Endpoint,
			Protocol: c.OpenTelemetry.Metrics.Protocol,
		},
	}
}

// InitDefaults resets c to the built-in defaults.
func (c *Config) InitDefaults() {
	c.LogLevel = "info"
	c.LogFormat = "json"
	c.GinMode = "release"
	c.ServiceName = "panoptes"
	c.API = APIConfig{
		Port:                   8080,
		ShutdownTimeoutSeconds: 10,
		AccessLog: AccessLogConfig{
			Enabled: true,
		},
	}
	c.Store = StoreConfig{
		Driver: StoreDriverPostgres,
		Redis: RedisConfig{
			Host: "127.0.0.1",
			Port: 6379,
		},
	}
	c.StoreMonitor = StoreMonitorConfig{
		PingIntervalSeconds: 15,
		PingTimeoutSeconds:  5,
		MaxFailures:         3,
	}
	c.OpenTelemetry = OpenTelemetryConfig{
		Traces:  OTelExporterConfig{Protocol: otel.ProtocolHTTP},
		Metrics: OTelExporterConfig{Protocol: otel.ProtocolHTTP},
	}
}

// ShutdownTimeout is how long the HTTP server may take to drain on shutdown.
func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.API.ShutdownTimeoutSeconds) * time.Second
}

// ConfigFilePath returns the file the config was read from, or "" when only
// defaults and environment variables were used.
func (c *Config) ConfigFilePath() string {
	return c.configPath
}

func (c *Config) parseConfigFile(flagPath string, osInterface OSInterface) error {
	configPath := flagPath
	if envPath := osInterface.Getenv(EnvPrefix + "CONFIG"); envPath != "" {
		if configPath != "" && configPath != envPath {
			return fmt.Errorf("conflicting config paths: flag=%s env=%s", configPath, envPath)
		}
		configPath = envPath
	}

	if configPath == "" {
		for _, loc := range getConfigLocations() {
			if _, err := osInterface.Stat(loc); err == nil {
				configPath = loc
				break
			}
		}
	}

	if configPath == "" {
		return nil
	}

	data, err := osInterface.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}

	if strings.HasSuffix(strings.ToLower(configPath), ".env") {
		envMap, err := godotenv.UnmarshalBytes(data)
		if err != nil {
			return fmt.Errorf("error loading .env file: %w", err)
		}
		if err := env.ParseWithOptions(c, env.Options{
			Prefix:      EnvPrefix,
			Environment: envMap,
		}); err != nil {
			return fmt.Errorf("error parsing .env file: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, c); err != nil {
			return fmt.Errorf("error parsing yaml config: %w", err)
		}
	}

	c.configPath = configPath
	return nil
}

func (c *Config) parseEnvVariables(osInterface OSInterface) error {
	if err := env.ParseWithOptions(c, env.Options{
		Prefix:      EnvPrefix,
		Environment: environToMap(osInterface.Environ()),
	}); err != nil {
		return fmt.Errorf("error parsing environment variables: %w", err)
	}
	return nil
}

func environToMap(environ []string) map[string]string {
	m := make(map[string]string, len(environ))
	for _, kv := range environ {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		m[k] = v
	}
	return m
}

func Parse(flags Flags) (*Config, error) {
	return ParseWithOS(flags, defaultOS)
}

// ParseWithOS builds a Config with the precedence defaults < config file < environment.
func ParseWithOS(flags Flags, osInterface OSInterface) (*Config, error) {
	var config Config

	config.InitDefaults()

	if err := config.parseConfigFile(flags.Config, osInterface); err != nil {
		return nil, err
	}

	if err := config.parseEnvVariables(osInterface); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}
