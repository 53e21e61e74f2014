// Package main applies the embedded postgres migrations and, when
// CLICKHOUSE_DSN is set, the clickhouse ones.
package main

import (
	"context"
	"flag"
	"os"
	"time"

	"go.uber.org/zap"

	"pulsex-swap-sync/internal/config"
	"pulsex-swap-sync/internal/logging"
	"pulsex-swap-sync/internal/storage/migrations"
	"pulsex-swap-sync/internal/storage/postgres"
)

func main() {
	timeout := flag.Duration("timeout", 2*time.Minute, "Migration timeout")
	skipClickhouse := flag.Bool("skip-clickhouse", false, "Do not migrate ClickHouse even if configured")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logging.MustNew("info").Fatal("load config", zap.Error(err))
	}

	if err := run(cfg, *timeout, *skipClickhouse); err != nil {
		os.Exit(1)
	}
}

func run(cfg *config.Config, timeout time.Duration, skipClickhouse bool) error {
	logger := logging.MustNew(cfg.LogLevel)
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	pool, err := postgres.NewPool(ctx, cfg.Storage.URL,
		postgres.WithPassword(cfg.Storage.ServiceKey),
		postgres.WithMaxConns(1),
	)
	if err != nil {
		logger.Error("connect to postgres", zap.Error(err))
		return err
	}
	defer pool.Close()

	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		logger.Error("postgres migrations failed", zap.Error(err))
		return err
	}
	logger.Info("postgres migrations applied")

	if cfg.Export.ClickHouseDSN == "" || skipClickhouse {
		return nil
	}

	conn, err := migrations.RunClickhouseMigrations(ctx, cfg.Export.ClickHouseDSN)
	if err != nil {
		logger.Error("clickhouse migrations failed", zap.Error(err))
		return err
	}
	_ = conn.Close()
	logger.Info("clickhouse migrations applied")
	return nil
}
