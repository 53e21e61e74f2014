// Package app scopes every resource to a single invocation: configuration is
// loaded, connections are opened, the pipeline runs, and everything is
// released before returning.
package app

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"pulsex-swap-sync/internal/config"
	"pulsex-swap-sync/internal/export"
	"pulsex-swap-sync/internal/storage"
	"pulsex-swap-sync/internal/storage/clickhouse"
	"pulsex-swap-sync/internal/storage/memory"
	"pulsex-swap-sync/internal/storage/postgres"
	"pulsex-swap-sync/internal/subgraph"
	"pulsex-swap-sync/internal/swapsync"
)

const applicationName = "pulsex-swap-sync"

// StoreOpener opens the swap store for one invocation. The returned func
// releases it.
type StoreOpener func(ctx context.Context, cfg *config.Config) (storage.SwapStore, func(), error)

// MirrorOpener opens the analytics mirror for one invocation.
type MirrorOpener func(ctx context.Context, cfg *config.Config) (storage.SwapMirror, func(), error)

// Invoker runs sync and export invocations.
type Invoker struct {
	logger     *zap.Logger
	loadConfig func() (*config.Config, error)
	openStore  StoreOpener
	openMirror MirrorOpener
	// requireDSN is false when the mirror does not come from CLICKHOUSE_DSN.
	requireDSN bool
	newSource  func(cfg *config.Config) sourceCloser
}

type sourceCloser interface {
	swapsync.Source
	CloseIdleConnections()
}

// Option configures Invoker.
type Option func(*Invoker)

// WithConfigLoader replaces config.Load.
func WithConfigLoader(load func() (*config.Config, error)) Option {
	return func(i *Invoker) {
		i.loadConfig = load
	}
}

// WithStoreOpener replaces the postgres store.
func WithStoreOpener(open StoreOpener) Option {
	return func(i *Invoker) {
		i.openStore = open
	}
}

// WithMirrorOpener replaces the clickhouse mirror.
func WithMirrorOpener(open MirrorOpener) Option {
	return func(i *Invoker) {
		i.openMirror = open
	}
}

// WithMemoryStorage keeps swaps in one in-process store and mirror shared by
// every invocation. Configuration is loaded without the database settings.
func WithMemoryStorage() Option {
	store := memory.NewSwapStore()
	mirror := memory.NewSwapMirror()
	return func(i *Invoker) {
		i.loadConfig = config.LoadInMemory
		i.openStore = func(context.Context, *config.Config) (storage.SwapStore, func(), error) {
			return store, func() {}, nil
		}
		i.openMirror = func(context.Context, *config.Config) (storage.SwapMirror, func(), error) {
			return mirror, func() {}, nil
		}
		i.requireDSN = false
	}
}

// NewInvoker creates an Invoker. A nil logger disables logging.
func NewInvoker(logger *zap.Logger, opts ...Option) *Invoker {
	if logger == nil {
		logger = zap.NewNop()
	}
	i := &Invoker{
		logger:     logger,
		loadConfig: config.Load,
		openStore:  OpenPostgresStore,
		openMirror: OpenClickhouseMirror,
		requireDSN: true,
		newSource: func(cfg *config.Config) sourceCloser {
			return subgraph.NewHTTPClient(cfg.Sync.SubgraphURL, subgraph.WithTimeout(cfg.Sync.UpstreamTimeout))
		},
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Sync runs one sync invocation.
func (i *Invoker) Sync(ctx context.Context) (*swapsync.Result, error) {
	logger := i.logger.With(zap.String("run_id", uuid.NewString()), zap.String("op", "sync"))

	cfg, err := i.loadConfig()
	if err != nil {
		logger.Error("load config", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", swapsync.ErrConfiguration, err)
	}
	logger = logger.With(zap.String("pair", cfg.Sync.PairAddress))

	store, release, err := i.openStore(ctx, cfg)
	if err != nil {
		logger.Error("open store", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", swapsync.ErrCursorRead, err)
	}
	defer release()

	source := i.newSource(cfg)
	defer source.CloseIdleConnections()

	syncer, err := swapsync.New(swapsync.Options{
		Store:          store,
		Source:         source,
		Pair:           cfg.Sync.PairAddress,
		StartTimestamp: cfg.Sync.StartTimestamp,
		PageSize:       cfg.Sync.PageSize,
		Logger:         logger,
	})
	if err != nil {
		return nil, err
	}
	return syncer.Run(ctx)
}

// Export runs one analytics export invocation.
func (i *Invoker) Export(ctx context.Context) (*export.Result, error) {
	logger := i.logger.With(zap.String("run_id", uuid.NewString()), zap.String("op", "export"))

	cfg, err := i.loadConfig()
	if err == nil && i.requireDSN {
		err = cfg.RequireClickHouse()
	}
	if err != nil {
		logger.Error("load config", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", swapsync.ErrConfiguration, err)
	}

	store, releaseStore, err := i.openStore(ctx, cfg)
	if err != nil {
		logger.Error("open store", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", export.ErrStoreRead, err)
	}
	defer releaseStore()

	mirror, releaseMirror, err := i.openMirror(ctx, cfg)
	if err != nil {
		logger.Error("open mirror", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", export.ErrMirrorRead, err)
	}
	defer releaseMirror()

	exporter, err := export.New(export.Options{
		Store:     store,
		Mirror:    mirror,
		BatchSize: cfg.Export.BatchSize,
		Lookback:  cfg.Export.Lookback,
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}
	return exporter.Run(ctx)
}

// OpenPostgresStore opens a small pool for one invocation. The storage
// service key is applied as the connection password.
func OpenPostgresStore(ctx context.Context, cfg *config.Config) (storage.SwapStore, func(), error) {
	pool, err := postgres.NewPool(ctx, cfg.Storage.URL,
		postgres.WithPassword(cfg.Storage.ServiceKey),
		postgres.WithMaxConns(2),
		postgres.WithApplicationName(applicationName),
	)
	if err != nil {
		return nil, nil, err
	}
	return postgres.NewSwapStore(pool), pool.Close, nil
}

// OpenClickhouseMirror opens the analytics mirror for one invocation.
func OpenClickhouseMirror(ctx context.Context, cfg *config.Config) (storage.SwapMirror, func(), error) {
	conn, err := clickhouse.NewConn(ctx, cfg.Export.ClickHouseDSN)
	if err != nil {
		return nil, nil, err
	}
	return clickhouse.NewSwapMirror(conn), func() { _ = conn.Close() }, nil
}
