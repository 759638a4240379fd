package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/report-facts/internal/common"
	repo "github.com/joseph-ayodele/report-facts/internal/repository"
)

// ConnectDB opens the store described by cfg, creates the schema and pings it.
// inmem forces a private in-memory sqlite database.
func ConnectDB(ctx context.Context, cfg common.DatabaseConfig, inmem bool, logger *slog.Logger) (*repo.DB, error) {
	if logger == nil {
		logger = slog.Default()
	}
	c := repo.ConfigFrom(cfg)
	if inmem {
		c.Driver = "sqlite"
		c.DSN = ":memory:"
	}

	logger.Info("connecting to database", "driver", c.Driver)
	db, err := repo.Open(ctx, c, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		return nil, err
	}
	if err := db.Migrate(ctx); err != nil {
		logger.Error("failed to migrate database", "error", err)
		db.Close()
		return nil, err
	}
	if err := PingDB(ctx, db, logger, 3*time.Second); err != nil {
		db.Close()
		return nil, err
	}
	logger.Info("successfully connected to database", "driver", db.Dialect)
	return db, nil
}

// PingDB pings the database to ensure it's responsive
func PingDB(ctx context.Context, db *repo.DB, logger *slog.Logger, timeout time.Duration) error {
	logger.Debug("pinging database")
	err := db.HealthCheck(ctx, timeout)
	if err != nil {
		logger.Error("database ping failed", "error", err)
		return err
	}
	logger.Debug("database ping successful")
	return nil
}

// CloseDB closes the database connections gracefully
func CloseDB(db *repo.DB, logger *slog.Logger) {
	if db == nil {
		return
	}
	logger.Info("closing database connections")
	db.Close()
	logger.Info("database connections closed")
}
