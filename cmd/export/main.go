// Package main copies one batch of persisted swaps into ClickHouse.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"pulsex-swap-sync/internal/app"
	"pulsex-swap-sync/internal/logging"
)

func main() {
	timeout := flag.Duration("timeout", 5*time.Minute, "Overall invocation timeout")
	logLevel := flag.String("log-level", os.Getenv("LOG_LEVEL"), "Log level (default info)")
	flag.Parse()

	if *logLevel == "" {
		*logLevel = "info"
	}
	if err := run(*timeout, *logLevel); err != nil {
		os.Exit(1)
	}
}

func run(timeout time.Duration, logLevel string) error {
	logger := logging.MustNew(logLevel)
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result, err := app.NewInvoker(logger).Export(ctx)
	if err != nil {
		logger.Error("export invocation failed", zap.Error(err))
		return err
	}

	fmt.Println(result.Message())
	return nil
}
