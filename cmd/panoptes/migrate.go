package main

import (
	"context"
	"fmt"
	"io"

	"github.com/adamkirk/panoptes/internal/config"
	"github.com/adamkirk/panoptes/internal/migrator"
	"github.com/urfave/cli/v3"
)

type migrationRunner interface {
	Version(ctx context.Context) (int, bool, error)
	Up(ctx context.Context, n int) (int, int, error)
	Down(ctx context.Context, n int) (int, int, error)
}

func withMigrator(ctx context.Context, c *cli.Command, fn func(migrationRunner) error) error {
	cfg, err := config.Parse(config.Flags{Config: c.String("config")})
	if err != nil {
		return err
	}
	if cfg.Store.Driver != config.StoreDriverPostgres {
		return fmt.Errorf("migrations only apply to the %s store driver, configured driver is %s",
			config.StoreDriverPostgres, cfg.Store.Driver)
	}

	m, err := migrator.New(migrator.MigrationOpts{PostgresURL: cfg.Store.PostgresURL})
	if err != nil {
		return err
	}
	defer m.Close(ctx)

	return fn(m)
}

func migrateUp(ctx context.Context, m migrationRunner, steps int, out io.Writer) error {
	version, applied, err := m.Up(ctx, steps)
	if err != nil {
		return err
	}
	if applied == 0 {
		fmt.Fprintf(out, "no migrations applied, version %d\n", version)
		return nil
	}
	fmt.Fprintf(out, "applied %d migration(s), version %d\n", applied, version)
	return nil
}

func migrateDown(ctx context.Context, m migrationRunner, steps int, out io.Writer) error {
	version, rolledBack, err := m.Down(ctx, steps)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "rolled back %d migration(s), version %d\n", rolledBack, version)
	return nil
}

func printVersion(ctx context.Context, m migrationRunner, out io.Writer) error {
	version, dirty, err := m.Version(ctx)
	if err != nil {
		return err
	}
	if dirty {
		fmt.Fprintf(out, "version %d (dirty)\n", version)
		return nil
	}
	fmt.Fprintf(out, "version %d\n", version)
	return nil
}
