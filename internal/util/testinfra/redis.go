package testinfra

import (
	"context"
	"fmt"
	"log"
	"net"
	"strconv"
	"sync"
	"testing"

	internalredis "github.com/adamkirk/panoptes/internal/redis"
	goredis "github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go/modules/redis"
)

var (
	redisDBMu   sync.Mutex
	redisDBUsed = make(map[int]bool)
)

const maxRedisDBs = 16

// NewRedisConfig allocates one of the 16 logical databases of the shared
// Redis instance for the test. The database is flushed on cleanup.
func NewRedisConfig(t *testing.T) *internalredis.RedisConfig {
	addr := EnsureRedis()
	db := allocateDB()

	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		t.Fatalf("invalid redis address %q: %v", addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		t.Fatalf("invalid redis port %q: %v", portStr, err)
	}

	t.Cleanup(func() {
		flushRedisDB(addr, db)
		releaseDB(db)
	})

	return &internalredis.RedisConfig{
		Host:     host,
		Port:     port,
		Database: db,
	}
}

func allocateDB() int {
	redisDBMu.Lock()
	defer redisDBMu.Unlock()

	for i := 0; i < maxRedisDBs; i++ {
		if !redisDBUsed[i] {
			redisDBUsed[i] = true
			return i
		}
	}
	panic(fmt.Sprintf("no available databases (max %d)", maxRedisDBs))
}

func releaseDB(db int) {
	redisDBMu.Lock()
	defer redisDBMu.Unlock()
	delete(redisDBUsed, db)
}

func flushRedisDB(addr string, db int) {
	client := goredis.NewClient(&goredis.Options{
		Addr: addr,
		DB:   db,
	})
	defer client.Close()

	if err := client.FlushDB(context.Background()).Err(); err != nil {
		log.Printf("failed to flush Redis DB %d: %s", db, err)
	}
}

func EnsureRedis() string {
	cfg := ReadConfig()
	return cfg.ensure(&cfg.RedisURL, startRedisTestContainer)
}

func startRedisTestContainer() (string, func()) {
	ctx := context.Background()

	redisContainer, err := redis.Run(ctx, "redis:7-alpine")
	if err != nil {
		panic(err)
	}

	endpoint, err := redisContainer.PortEndpoint(ctx, "6379/tcp", "")
	if err != nil {
		panic(err)
	}
	log.Printf("Redis running at %s", endpoint)
	return endpoint, func() {
		if err := redisContainer.Terminate(ctx); err != nil {
			log.Printf("failed to terminate container: %s", err)
		}
	}
}
