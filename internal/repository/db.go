package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/joseph-ayodele/report-facts/internal/common"
)

type Config struct {
	Driver           string // "sqlite" or "postgres"
	DSN              string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// ConfigFrom copies the database section of the process configuration.
func ConfigFrom(c common.DatabaseConfig) Config {
	return Config{
		Driver:           c.Driver,
		DSN:              c.DSN,
		MaxConns:         c.MaxConns,
		MinConns:         c.MinConns,
		MaxConnLifetime:  c.MaxConnLifetime,
		MaxConnIdleTime:  c.MaxConnIdleTime,
		DialTimeout:      c.DialTimeout,
		StatementTimeout: c.StatementTimeout,
	}
}

// DB is an open store: a database/sql handle plus the SQL dialect used to
// build statements for it.
type DB struct {
	SQL     *sql.DB
	Dialect string
	pool    *pgxpool.Pool
	log     *slog.Logger
}

// Open connects to sqlite (modernc, pure Go) or Postgres (pgx pool wrapped as
// *sql.DB).
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*DB, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch cfg.Driver {
	case "", "sqlite":
		return openSQLite(ctx, cfg, logger)
	case "postgres":
		return openPostgres(ctx, cfg, logger)
	default:
		return nil, common.NewConfigurationError(fmt.Sprintf("unsupported database driver %q", cfg.Driver))
	}
}

func openSQLite(ctx context.Context, cfg Config, logger *slog.Logger) (*DB, error) {
	dsn := cfg.DSN
	if dsn == "" {
		dsn = ":memory:"
	}
	logger.Info("connecting to database", "driver", "sqlite", "dsn", dsn)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		return nil, common.NewAppError(common.CodeStorage, "open sqlite", err)
	}
	// One connection: sqlite serializes writers, and an in-memory database
	// exists per connection.
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		logger.Error("failed to connect to database", "error", err)
		return nil, common.NewAppError(common.CodeStorage, "ping sqlite", err)
	}
	logger.Info("successfully connected to database")
	return &DB{SQL: db, Dialect: dialect.SQLite, log: logger}, nil
}

func openPostgres(ctx context.Context, cfg Config, logger *slog.Logger) (*DB, error) {
	logger.Info("connecting to database", "driver", "postgres", "dsn", redact(cfg.DSN))
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		return nil, common.NewConfigurationError(fmt.Sprintf("parse postgres dsn: %v", err))
	}
	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}
	pc.MinConns = cfg.MinConns
	pc.MaxConnLifetime = cfg.MaxConnLifetime
	pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	pc.ConnConfig.RuntimeParams["application_name"] = "report-facts"
	if cfg.StatementTimeout > 0 {
		pc.ConnConfig.RuntimeParams["statement_timeout"] = fmt.Sprint(cfg.StatementTimeout.Milliseconds())
	}

	dialCtx := ctx
	if cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
	}
	pool, err := pgxpool.NewWithConfig(dialCtx, pc)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		return nil, common.NewAppError(common.CodeStorage, "connect postgres", err)
	}

	logger.Info("successfully connected to database")
	return &DB{SQL: stdlib.OpenDBFromPool(pool), Dialect: dialect.Postgres, pool: pool, log: logger}, nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		run_id TEXT NOT NULL,
		source_path TEXT NOT NULL,
		filename TEXT NOT NULL,
		content_hash TEXT NOT NULL,
		size_bytes BIGINT NOT NULL,
		page_count INTEGER NOT NULL,
		overall_score DOUBLE PRECISION NOT NULL,
		ocr_pages INTEGER NOT NULL,
		failed_pages INTEGER NOT NULL,
		record_json TEXT NOT NULL,
		extracted_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS documents_content_hash ON documents (content_hash)`,
	`CREATE TABLE IF NOT EXISTS pages (
		document_id TEXT NOT NULL REFERENCES documents (id) ON DELETE CASCADE,
		page_number INTEGER NOT NULL,
		merged_text TEXT NOT NULL,
		text_backend TEXT NOT NULL,
		table_count INTEGER NOT NULL,
		figure_count INTEGER NOT NULL,
		ocr_used BOOLEAN NOT NULL,
		quality_score DOUBLE PRECISION NOT NULL,
		word_count INTEGER NOT NULL,
		failure_reasons TEXT NOT NULL,
		PRIMARY KEY (document_id, page_number)
	)`,
	`CREATE TABLE IF NOT EXISTS facts (
		document_id TEXT NOT NULL REFERENCES documents (id) ON DELETE CASCADE,
		page_number INTEGER NOT NULL,
		seq INTEGER NOT NULL,
		kind TEXT NOT NULL,
		literal TEXT NOT NULL,
		fact_key TEXT NOT NULL,
		numeric_value DOUBLE PRECISION,
		currency TEXT NOT NULL,
		unit TEXT NOT NULL,
		qualifier TEXT NOT NULL,
		context TEXT NOT NULL,
		char_offset INTEGER NOT NULL,
		PRIMARY KEY (document_id, page_number, seq)
	)`,
	`CREATE INDEX IF NOT EXISTS facts_document_kind ON facts (document_id, kind)`,
	`CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		source_path TEXT NOT NULL,
		status TEXT NOT NULL,
		document_id TEXT,
		error_message TEXT,
		started_at TEXT NOT NULL,
		finished_at TEXT
	)`,
}

// Migrate creates missing tables. The statements are valid for both sqlite
// and Postgres.
func (db *DB) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := db.SQL.ExecContext(ctx, stmt); err != nil {
			db.log.Error("migration failed", "error", err)
			return common.NewAppError(common.CodeStorage, "migrate", err)
		}
	}
	db.log.Debug("migration complete", "statements", len(schema))
	return nil
}

// HealthCheck pings the store to catch DSN issues early.
func (db *DB) HealthCheck(ctx context.Context, timeout time.Duration) error {
	db.log.Debug("pinging database")
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if err := db.SQL.PingContext(ctx); err != nil {
		return common.NewAppError(common.CodeStorage, "ping", err)
	}
	db.log.Debug("database ping successful")
	return nil
}

// Close closes the database connections gracefully
func (db *DB) Close() {
	db.log.Info("closing database connections")
	if err := db.SQL.Close(); err != nil {
		db.log.Error("failed to close database", "error", err)
	}
	if db.pool != nil {
		db.pool.Close()
	}
	db.log.Info("database connections closed")
}

func (db *DB) builder() *entsql.DialectBuilder {
	return entsql.Dialect(db.Dialect)
}

// redact hides the password of a URL style DSN.
func redact(dsn string) string {
	scheme, rest, ok := strings.Cut(dsn, "://")
	if !ok {
		return dsn
	}
	creds, host, ok := strings.Cut(rest, "@")
	if !ok {
		return dsn
	}
	user, _, _ := strings.Cut(creds, ":")
	return scheme + "://" + user + ":***@" + host
}
