// Package main runs a single sync invocation and exits, for crontab-style
// schedulers. Exit status 1 means no progress was made and the run is safe
// to repeat.
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
	"pulsex-swap-sync/internal/swapsync"
)

func main() {
	timeout := flag.Duration("timeout", 2*time.Minute, "Overall invocation timeout")
	logLevel := flag.String("log-level", os.Getenv("LOG_LEVEL"), "Log level (default info)")
	flag.Parse()

	if *logLevel == "" {
		*logLevel = "info"
	}
	if err := run(*timeout, *logLevel); err != nil {
		os.Exit(1)
	}
}

// run returns only after its deferred cleanup, so buffered log entries are
// flushed before the process exits.
func run(timeout time.Duration, logLevel string) error {
	logger := logging.MustNew(logLevel)
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result, err := app.NewInvoker(logger).Sync(ctx)
	if err != nil {
		logger.Error("sync invocation failed",
			zap.String("kind", swapsync.ErrorKind(err)),
			zap.Error(err))
		return err
	}

	fmt.Println(result.Message())
	return nil
}
