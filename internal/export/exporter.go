// Package export copies persisted swaps into the analytics mirror,
// incrementally by storage-assigned seq_id.
//
// seq_ids are assigned when a row is inserted, not when its transaction
// commits, so overlapping syncs can make a lower seq_id visible after a
// higher one was already exported. Every run re-reads a lookback window
// below the mirror watermark to pick such rows up.
package export

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"pulsex-swap-sync/internal/observability"
	"pulsex-swap-sync/internal/storage"
)

var (
	ErrMirrorRead  = errors.New("mirror read error")
	ErrStoreRead   = errors.New("store read error")
	ErrMirrorWrite = errors.New("mirror write error")
)

// Exporter copies one batch of swaps per Run.
type Exporter struct {
	store     storage.SwapStore
	mirror    storage.SwapMirror
	batchSize int
	lookback  int64
	logger    *zap.Logger
	now       func() time.Time
}

// Options for creating Exporter.
type Options struct {
	Store     storage.SwapStore
	Mirror    storage.SwapMirror
	BatchSize int
	// Lookback is how many seq_ids below the watermark are re-read. It must
	// be smaller than BatchSize so a full batch always reaches past the
	// watermark.
	Lookback int64
	Logger   *zap.Logger
	Now      func() time.Time
}

// New creates a new Exporter.
func New(opts Options) (*Exporter, error) {
	if opts.Store == nil || opts.Mirror == nil {
		return nil, errors.New("store and mirror are required")
	}
	if opts.BatchSize <= 0 {
		return nil, fmt.Errorf("batch size must be positive, got %d", opts.BatchSize)
	}
	if opts.Lookback < 0 || opts.Lookback >= int64(opts.BatchSize) {
		return nil, fmt.Errorf("lookback must be in 0..%d, got %d", opts.BatchSize-1, opts.Lookback)
	}

	e := &Exporter{
		store:     opts.Store,
		mirror:    opts.Mirror,
		batchSize: opts.BatchSize,
		lookback:  opts.Lookback,
		logger:    opts.Logger,
		now:       opts.Now,
	}
	if e.logger == nil {
		e.logger = zap.NewNop()
	}
	if e.now == nil {
		e.now = time.Now
	}
	return e, nil
}

// Result describes one export invocation.
type Result struct {
	AfterSeq int64 // mirror watermark before the run
	LastSeq  int64 // highest seq_id copied, or AfterSeq when nothing new was
	Exported int   // rows written, including re-read ones
	Recopied int   // rows at or below AfterSeq
}

// Message is the human-readable outcome returned to the trigger.
func (r *Result) Message() string {
	return fmt.Sprintf("Exported %d swaps", r.Exported)
}

// Run copies up to the batch size of swaps with seq_id above the mirror's
// highest minus the lookback. Re-copying a row is harmless: the mirror
// replaces by swap_id.
func (e *Exporter) Run(ctx context.Context) (*Result, error) {
	result, err := e.run(ctx)
	if err != nil {
		observability.RecordExport("failure", 0, 0, e.now().Unix())
		e.logger.Error("export failed", zap.Error(err))
		return nil, err
	}

	observability.RecordExport("success", result.Exported, result.LastSeq, e.now().Unix())
	e.logger.Info("export complete",
		zap.Int64("after_seq", result.AfterSeq),
		zap.Int64("last_seq", result.LastSeq),
		zap.Int("exported", result.Exported),
		zap.Int("recopied", result.Recopied))
	return result, nil
}

func (e *Exporter) run(ctx context.Context) (*Result, error) {
	afterSeq, err := e.mirror.LatestSeqID(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMirrorRead, err)
	}
	result := &Result{AfterSeq: afterSeq, LastSeq: afterSeq}

	from := max(afterSeq-e.lookback, 0)
	records, err := e.store.ListAfterSeq(ctx, from, e.batchSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreRead, err)
	}
	if len(records) == 0 {
		return result, nil
	}

	if err := e.mirror.InsertBulk(ctx, records); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMirrorWrite, err)
	}

	result.Exported = len(records)
	for _, r := range records {
		if r.SeqID <= afterSeq {
			result.Recopied++
		}
	}
	result.LastSeq = max(afterSeq, records[len(records)-1].SeqID)
	return result, nil
}
