// Package main runs the long-lived HTTP host for the sync trigger routes.
// Every request to /api/cron runs one sync invocation with fresh
// configuration and connections.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"pulsex-swap-sync/internal/app"
	"pulsex-swap-sync/internal/httpapi"
	"pulsex-swap-sync/internal/logging"
)

func main() {
	// Load .env file if exists
	_ = godotenv.Load()

	// Parse flags (env vars as defaults)
	addr := flag.String("addr", envOr("HTTP_ADDR", ":8080"), "HTTP listen address")
	useMemory := flag.Bool("use-memory", false,
		"Use in-memory storage instead of PostgreSQL and ClickHouse (STORAGE_URL, STORAGE_SERVICE_KEY and CLICKHOUSE_DSN are not needed)")
	logLevel := flag.String("log-level", envOr("LOG_LEVEL", "info"), "Log level")
	flag.Parse()

	if err := run(*addr, *useMemory, *logLevel); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(addr string, useMemory bool, logLevel string) error {
	logger := logging.MustNew(logLevel)
	defer func() { _ = logger.Sync() }()

	var opts []app.Option
	if useMemory {
		opts = append(opts, app.WithMemoryStorage())
		logger.Warn("using in-memory storage, data is lost on exit")
	}

	handler := httpapi.NewHandler(app.NewInvoker(logger, opts...), logger)
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("HTTP server error", zap.Error(err))
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
		logger.Info("received shutdown signal")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("shutdown complete")
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
