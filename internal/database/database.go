// Package database owns the pgx connection pool and startup migrations.
package database

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"time"

	zerologadapter "github.com/jackc/pgx-zerolog"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/multitracer"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/tracelog"
	"github.com/jackc/tern/v2/migrate"
	"github.com/newrelic/go-agent/v3/integrations/nrpgx5"
	"github.com/rs/zerolog"

	"github.com/fleetops/eldstream/internal/config"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const versionTable = "schema_version"

// RunMigrations applies embedded tern migrations against the database.
// It opens its own short-lived connection; call before building the pool.
func RunMigrations(ctx context.Context, dsn string) error {
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return fmt.Errorf("connect for migrations: %w", err)
	}
	defer conn.Close(ctx)

	migrator, err := migrate.NewMigrator(ctx, conn, versionTable)
	if err != nil {
		return fmt.Errorf("new migrator: %w", err)
	}
	sub, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("migrations fs: %w", err)
	}
	if err := migrator.LoadMigrations(sub); err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}
	if err := migrator.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// NewPool builds a pgxpool with pool limits from config and query tracing
// through zerolog. When instrument is true the New Relic pgx tracer is
// attached as well; it picks transactions up from the request context.
func NewPool(ctx context.Context, cfg *config.Config, logger zerolog.Logger, instrument bool) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.Database.URL())
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}

	poolCfg.MaxConns = int32(cfg.Database.MaxOpenConns)
	poolCfg.MinConns = int32(cfg.Database.MaxIdleConns)
	poolCfg.MaxConnLifetime = time.Duration(cfg.Database.ConnMaxLifetime) * time.Second
	poolCfg.MaxConnIdleTime = time.Duration(cfg.Database.ConnMaxIdleTime) * time.Second

	tracers := []pgx.QueryTracer{
		&tracelog.TraceLog{
			Logger:   zerologadapter.NewLogger(logger),
			LogLevel: tracelog.LogLevelWarn,
		},
	}
	if instrument {
		tracers = append(tracers, nrpgx5.NewTracer())
	}
	poolCfg.ConnConfig.Tracer = multitracer.New(tracers...)

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("new pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return pool, nil
}
