package configs

import (
	"os"
	"testing"

	"github.com/adamkirk/panoptes/internal/config"
	"github.com/adamkirk/panoptes/internal/util/testinfra"
	"github.com/adamkirk/panoptes/internal/util/testutil"
	"github.com/stretchr/testify/require"
)

type BasicOpts struct {
	StoreDriver config.StoreDriver
}

// Basic returns a service config listening on a random port and backed by
// the requested store. Redis runs on miniredis; postgres gets a fresh
// database on the shared test instance, so callers must hold testinfra.Start.
func Basic(t *testing.T, opts BasicOpts) config.Config {
	logLevel := "fatal"
	if os.Getenv("LOG_LEVEL") != "" {
		logLevel = os.Getenv("LOG_LEVEL")
	}

	c := &config.Config{}
	c.InitDefaults()

	c.LogLevel = logLevel
	c.ServiceName = "panoptes-e2e"
	c.API.Port = testutil.RandomPortNumber()
	c.API.ShutdownTimeoutSeconds = 2
	c.API.AccessLog.Enabled = false

	driver := opts.StoreDriver
	if driver == "" {
		driver = config.StoreDriverMemory
	}
	c.Store.Driver = driver

	switch driver {
	case config.StoreDriverRedis:
		redisConfig := testutil.CreateTestRedisConfig(t)
		c.Store.Redis.Host = redisConfig.Host
		c.Store.Redis.Port = redisConfig.Port
		c.Store.Redis.Password = redisConfig.Password
		c.Store.Redis.Database = redisConfig.Database
	case config.StoreDriverPostgres:
		c.Store.PostgresURL = testinfra.NewPostgresConfig(t)
	}

	require.NoError(t, c.Validate())
	return *c
}
