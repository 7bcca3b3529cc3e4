package app

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/adamkirk/panoptes/internal/config"
	"github.com/adamkirk/panoptes/internal/logging"
	"github.com/adamkirk/panoptes/internal/migrator"
	"github.com/golang-migrate/migrate/v4/database"
	"go.uber.org/zap"
)

var (
	migrationMaxAttempts = 3
	migrationRetryDelay  = 5 * time.Second
)

// runMigration brings the postgres schema up to date before the store is
// opened. Nothing happens for the other drivers.
//
// Replicas that boot together race for the migrate advisory lock. The loser
// gets a lock error, waits and tries again, by which time the winner has
// usually finished and there is nothing left to apply.
func runMigration(ctx context.Context, cfg *config.Config, logger *logging.Logger) error {
	if cfg.Store.Driver != config.StoreDriverPostgres {
		logger.Debug("skipping migrations", zap.String("store_driver", string(cfg.Store.Driver)))
		return nil
	}

	var lastErr error
	for attempt := 1; attempt <= migrationMaxAttempts; attempt++ {
		version, applied, err := migrateUp(ctx, cfg)
		if err == nil {
			if applied > 0 {
				logger.Info("migrations applied",
					zap.Int("version", version),
					zap.Int("version_applied", applied))
			} else {
				logger.Info("no migrations applied", zap.Int("version", version))
			}
			return nil
		}

		lastErr = err
		if !isLockRelatedError(err) {
			logger.Error("migration failed", zap.Error(err))
			return err
		}
		if attempt == migrationMaxAttempts {
			break
		}

		logger.Warn("migration lock conflict, retrying",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", migrationMaxAttempts),
			zap.Duration("retry_delay", migrationRetryDelay),
			zap.Error(err))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(migrationRetryDelay):
		}
	}

	logger.Error("migration failed after retries",
		zap.Int("attempts", migrationMaxAttempts),
		zap.Error(lastErr))
	return lastErr
}

func migrateUp(ctx context.Context, cfg *config.Config) (int, int, error) {
	m, err := migrator.New(migrator.MigrationOpts{PostgresURL: cfg.Store.PostgresURL})
	if err != nil {
		return 0, 0, err
	}
	version, applied, err := m.Up(ctx, -1)
	return version, applied, errors.Join(err, m.Close(ctx))
}

// isLockRelatedError reports whether err came from losing the migrate lock.
// The postgres driver reports a failed pg_advisory_lock as a plain string.
func isLockRelatedError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, database.ErrLocked) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "can't acquire lock") || strings.Contains(msg, "try lock failed")
}
