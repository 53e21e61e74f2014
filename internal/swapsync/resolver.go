package swapsync

import (
	"context"
	"errors"
	"fmt"

	"pulsex-swap-sync/internal/storage"
)

// ResolveWatermark returns the timestamp after which the next fetch starts:
// the newest stored timestamp for pair, or start when nothing is stored.
// A failed read is an error, never a silent fallback to start.
func ResolveWatermark(ctx context.Context, store storage.SwapStore, pair string, start int64) (int64, error) {
	latest, err := store.LatestTimestamp(ctx, pair)
	if errors.Is(err, storage.ErrNotFound) {
		return start, nil
	}
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrCursorRead, err)
	}
	return latest, nil
}
