package testinfra

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strings"
	"testing"

	"github.com/adamkirk/panoptes/internal/util/testutil"
	"github.com/jackc/pgx/v5"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

// NewPostgresConfig creates a fresh database on the shared Postgres instance
// and returns its connection URL. The database is dropped on cleanup.
func NewPostgresConfig(t *testing.T) string {
	baseURL := EnsurePostgres()
	dbName := "panoptes_" + strings.ToLower(testutil.RandomString(10))

	ctx := context.Background()
	conn, err := pgx.Connect(ctx, baseURL)
	if err != nil {
		t.Fatalf("failed to connect to postgres: %v", err)
	}
	defer conn.Close(ctx)

	if _, err := conn.Exec(ctx, fmt.Sprintf("CREATE DATABASE %s", pgx.Identifier{dbName}.Sanitize())); err != nil {
		t.Fatalf("failed to create database %s: %v", dbName, err)
	}

	t.Cleanup(func() {
		conn, err := pgx.Connect(ctx, baseURL)
		if err != nil {
			log.Printf("failed to connect to postgres for cleanup: %s", err)
			return
		}
		defer conn.Close(ctx)
		if _, err := conn.Exec(ctx, fmt.Sprintf("DROP DATABASE IF EXISTS %s WITH (FORCE)", pgx.Identifier{dbName}.Sanitize())); err != nil {
			log.Printf("failed to drop database %s: %s", dbName, err)
		}
	})

	u, err := url.Parse(baseURL)
	if err != nil {
		t.Fatalf("invalid postgres url: %v", err)
	}
	u.Path = "/" + dbName
	return u.String()
}

func EnsurePostgres() string {
	cfg := ReadConfig()
	return cfg.ensure(&cfg.PostgresURL, startPostgresTestContainer)
}

func startPostgresTestContainer() (string, func()) {
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("panoptes"),
		postgres.WithUsername("panoptes"),
		postgres.WithPassword("panoptes"),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		panic(err)
	}

	endpoint, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		panic(err)
	}
	log.Printf("Postgres running at %s", endpoint)
	return endpoint, func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			log.Printf("failed to terminate container: %s", err)
		}
	}
}
