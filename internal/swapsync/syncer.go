// Package swapsync runs one incremental sync of pair swaps:
// resolve watermark → fetch one page → normalize → upsert.
package swapsync

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"pulsex-swap-sync/internal/domain"
	"pulsex-swap-sync/internal/observability"
	"pulsex-swap-sync/internal/storage"
)

// Syncer executes sync invocations. It holds no state between runs.
type Syncer struct {
	store          storage.SwapStore
	source         Source
	pair           string
	startTimestamp int64
	pageSize       int
	logger         *zap.Logger
	now            func() time.Time
}

// Options for creating Syncer.
type Options struct {
	Store  storage.SwapStore
	Source Source

	Pair           string // lowercase pair address
	StartTimestamp int64  // watermark on an empty store
	PageSize       int

	Logger *zap.Logger
	Now    func() time.Time
}

// New creates a new Syncer.
func New(opts Options) (*Syncer, error) {
	if opts.Store == nil || opts.Source == nil {
		return nil, fmt.Errorf("%w: store and source are required", ErrConfiguration)
	}
	if opts.Pair == "" {
		return nil, fmt.Errorf("%w: pair is required", ErrConfiguration)
	}
	if opts.PageSize <= 0 {
		return nil, fmt.Errorf("%w: page size must be positive", ErrConfiguration)
	}
	if opts.StartTimestamp < 0 {
		return nil, fmt.Errorf("%w: start timestamp must be >= 0", ErrConfiguration)
	}

	s := &Syncer{
		store:          opts.Store,
		source:         opts.Source,
		pair:           opts.Pair,
		startTimestamp: opts.StartTimestamp,
		pageSize:       opts.PageSize,
		logger:         opts.Logger,
		now:            opts.Now,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s, nil
}

// Result describes one completed invocation.
type Result struct {
	Watermark       int64
	Fetched         int
	Synced          int
	Buys            int
	Sells           int
	LatestTimestamp int64 // newest timestamp written, or Watermark when nothing was
	Duration        time.Duration
}

// Message is the human-readable outcome returned to the trigger.
func (r *Result) Message() string {
	if r.Synced == 0 {
		return "No new swaps"
	}
	return fmt.Sprintf("Synced %d swaps", r.Synced)
}

// Run executes one invocation. Stages run strictly in order and the first
// failure aborts the rest.
func (s *Syncer) Run(ctx context.Context) (*Result, error) {
	start := s.now()
	result, err := s.run(ctx)
	if err != nil {
		observability.RecordSyncFailure(ErrorKind(err))
		s.logger.Error("sync failed",
			zap.String("pair", s.pair),
			zap.String("kind", ErrorKind(err)),
			zap.Error(err))
		return nil, err
	}

	result.Duration = s.now().Sub(start)
	observability.RecordSyncSuccess(result.Watermark, result.Buys, result.Sells, s.now().Unix())
	s.logger.Info("sync complete",
		zap.String("pair", s.pair),
		zap.Int64("watermark", result.Watermark),
		zap.Int("fetched", result.Fetched),
		zap.Int("synced", result.Synced),
		zap.Int("buys", result.Buys),
		zap.Int("sells", result.Sells),
		zap.Duration("duration", result.Duration))
	return result, nil
}

func (s *Syncer) run(ctx context.Context) (*Result, error) {
	// Stage 1: watermark
	stageStart := time.Now()
	watermark, err := ResolveWatermark(ctx, s.store, s.pair, s.startTimestamp)
	observability.RecordStage("resolve", time.Since(stageStart).Seconds())
	if err != nil {
		return nil, err
	}
	s.logger.Debug("watermark resolved", zap.String("pair", s.pair), zap.Int64("watermark", watermark))

	result := &Result{Watermark: watermark, LatestTimestamp: watermark}

	// Stage 2: fetch
	stageStart = time.Now()
	events, err := Fetch(ctx, s.source, s.pair, watermark, s.pageSize)
	observability.RecordStage("fetch", time.Since(stageStart).Seconds())
	if err != nil {
		return nil, err
	}
	result.Fetched = len(events)
	observability.RecordFetched(len(events))

	if len(events) == 0 {
		return result, nil
	}

	// Stage 3: normalize and write
	stageStart = time.Now()
	records, err := Normalize(s.pair, events)
	if err != nil {
		return nil, err
	}
	n, err := Write(ctx, s.store, records)
	observability.RecordStage("write", time.Since(stageStart).Seconds())
	if err != nil {
		return nil, err
	}

	result.Synced = n
	for _, r := range storage.DedupeBySwapID(records) {
		if r.Type == domain.SwapTypeBuy {
			result.Buys++
		} else {
			result.Sells++
		}
		if r.Timestamp > result.LatestTimestamp {
			result.LatestTimestamp = r.Timestamp
		}
	}
	return result, nil
}
