package storage

import (
	"context"

	"pulsex-swap-sync/internal/domain"
)

// SwapStore provides access to swaps storage.
type SwapStore interface {
	// LatestTimestamp returns the maximum timestamp stored for pair.
	// Returns ErrNotFound if no swap for pair exists.
	LatestTimestamp(ctx context.Context, pair string) (int64, error)

	// UpsertBulk inserts or overwrites swaps keyed on swap_id, atomically.
	// SeqID, CreatedAt and UpdatedAt on input are ignored.
	// Returns the number of distinct swap_ids written.
	UpsertBulk(ctx context.Context, records []*domain.SwapRecord) (int, error)

	// GetByPair retrieves all swaps for pair, ordered by timestamp ASC, seq_id ASC.
	GetByPair(ctx context.Context, pair string) ([]*domain.SwapRecord, error)

	// ListAfterSeq retrieves up to limit swaps with seq_id > afterSeq, ordered by seq_id ASC.
	ListAfterSeq(ctx context.Context, afterSeq int64, limit int) ([]*domain.SwapRecord, error)

	// Count returns the number of swaps stored for pair.
	Count(ctx context.Context, pair string) (int64, error)
}

// SwapMirror is an append-mostly analytics copy of persisted swaps.
type SwapMirror interface {
	// LatestSeqID returns the highest seq_id mirrored so far, or 0 when empty.
	LatestSeqID(ctx context.Context) (int64, error)

	// InsertBulk writes swaps to the mirror. Rows with an already mirrored
	// swap_id replace the earlier copy.
	InsertBulk(ctx context.Context, records []*domain.SwapRecord) error
}

// DedupeBySwapID collapses records sharing a swap_id to the last occurrence,
// keeping the position of the first one.
func DedupeBySwapID(records []*domain.SwapRecord) []*domain.SwapRecord {
	index := make(map[string]int, len(records))
	out := make([]*domain.SwapRecord, 0, len(records))
	for _, r := range records {
		if i, ok := index[r.SwapID]; ok {
			out[i] = r
			continue
		}
		index[r.SwapID] = len(out)
		out = append(out, r)
	}
	return out
}

// ValidateRecords checks the fields every store requires.
func ValidateRecords(records []*domain.SwapRecord) error {
	for _, r := range records {
		if r == nil || r.SwapID == "" || r.Pair == "" || !r.Type.Valid() {
			return ErrInvalidInput
		}
	}
	return nil
}
