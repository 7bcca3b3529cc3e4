package migrator

import (
	"context"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/postgres/*.sql
var pgMigrations embed.FS

var ErrMissingURL = errors.New("postgres url is required")

type Migrator struct {
	migrate *migrate.Migrate
}

type MigrationOpts struct {
	PostgresURL string
}

func New(opts MigrationOpts) (*Migrator, error) {
	if opts.PostgresURL == "" {
		return nil, ErrMissingURL
	}

	d, err := iofs.New(pgMigrations, "migrations/postgres")
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres migration source: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", d, opts.PostgresURL)
	if err != nil {
		// golang-migrate echoes the URL, credentials included.
		return nil, sanitizeConnectionError(err, opts.PostgresURL)
	}

	return &Migrator{
		migrate: m,
	}, nil
}

// Version returns the applied version, 0 when nothing has been applied.
func (m *Migrator) Version(_ context.Context) (int, bool, error) {
	version, dirty, err := m.migrate.Version()
	if err != nil {
		if errors.Is(err, migrate.ErrNilVersion) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("migrate.Version: %w", err)
	}
	return int(version), dirty, nil
}

// Up applies n migrations, or all pending ones when n < 1. It returns the
// resulting version and how many migrations were applied.
func (m *Migrator) Up(ctx context.Context, n int) (int, int, error) {
	initVersion, _, err := m.Version(ctx)
	if err != nil {
		return 0, 0, err
	}

	if n < 1 {
		err = m.migrate.Up()
	} else {
		err = m.migrate.Steps(n)
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return initVersion, 0, fmt.Errorf("migrate up: %w", err)
	}

	version, _, err := m.Version(ctx)
	if err != nil {
		return initVersion, 0, fmt.Errorf("reading version after migration: %w", err)
	}
	return version, version - initVersion, nil
}

// Down rolls back n migrations, or all of them when n < 1. It returns the
// resulting version and how many migrations were rolled back.
func (m *Migrator) Down(ctx context.Context, n int) (int, int, error) {
	initVersion, _, err := m.Version(ctx)
	if err != nil {
		return 0, 0, err
	}

	if n > initVersion {
		return initVersion, 0, fmt.Errorf("cannot rollback %d migrations from version %d", n, initVersion)
	}

	if n < 1 {
		err = m.migrate.Down()
	} else {
		err = m.migrate.Steps(-n)
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return initVersion, 0, fmt.Errorf("migrate down: %w", err)
	}

	version, _, err := m.Version(ctx)
	if err != nil {
		return initVersion, 0, fmt.Errorf("reading version after migration: %w", err)
	}
	return version, initVersion - version, nil
}

func (m *Migrator) Close(_ context.Context) error {
	srcErr, dbErr := m.migrate.Close()
	return errors.Join(srcErr, dbErr)
}
