package testinfra

import (
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/adamkirk/panoptes/internal/util/testutil"
	"github.com/spf13/viper"
)

var (
	suiteCounter int64
	cfgSync      sync.Once
	cfg          *Config
)

// Config points integration tests at externally managed infrastructure.
// Empty URLs mean a testcontainer is started on first use.
type Config struct {
	TestInfra   bool
	RedisURL    string
	PostgresURL string
	cleanupFns  []func()
	mu          sync.Mutex
}

// ensure starts a container through start unless url already points at one.
func (c *Config) ensure(url *string, start func() (string, func())) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if *url == "" {
		endpoint, cleanup := start()
		*url = endpoint
		c.cleanupFns = append(c.cleanupFns, func() {
			cleanup()
			*url = ""
		})
	}
	return *url
}

func (c *Config) teardown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, fn := range c.cleanupFns {
		fn()
	}
	c.cleanupFns = nil
}

func initConfig() {
	projectRoot, err := findProjectRoot()
	if err != nil {
		panic(err)
	}

	v := viper.New()
	v.AutomaticEnv()

	configFile := os.Getenv("TEST_CONFIG_FILE")
	if configFile == "" {
		configFile = ".env.test"
	}

	v.SetConfigFile(filepath.Join(projectRoot, configFile))
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil {
		panic(err)
	}

	cfg = &Config{
		TestInfra: v.GetBool("TESTINFRA"),
	}
	if cfg.TestInfra {
		cfg.RedisURL = v.GetString("TEST_REDIS_URL")
		cfg.PostgresURL = v.GetString("TEST_POSTGRES_URL")
	}
}

func ReadConfig() *Config {
	cfgSync.Do(initConfig)
	return cfg
}

// Start registers a suite against the shared infrastructure. The returned
// func must be called when the suite finishes; the last one out tears the
// containers down and a later Start brings them back up.
func Start(t *testing.T) func() {
	testutil.CheckIntegrationTest(t)
	atomic.AddInt64(&suiteCounter, 1)
	return func() {
		if atomic.AddInt64(&suiteCounter, -1) == 0 && cfg != nil {
			cfg.teardown()
		}
	}
}

func findProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, ".env.test")); err == nil {
			return dir, nil
		}
		parentDir := filepath.Dir(dir)
		if parentDir == dir {
			break
		}
		dir = parentDir
	}

	return "", os.ErrNotExist
}
