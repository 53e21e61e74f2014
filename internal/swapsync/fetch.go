package swapsync

import (
	"context"
	"fmt"

	"pulsex-swap-sync/internal/domain"
	"pulsex-swap-sync/internal/subgraph"
)

// Source returns one ascending page of swaps newer than q.After.
type Source interface {
	FetchSwaps(ctx context.Context, q subgraph.SwapsQuery) ([]domain.SwapEvent, error)
}

// Fetch issues the single upstream query of an invocation.
func Fetch(ctx context.Context, src Source, pair string, watermark int64, pageSize int) ([]domain.SwapEvent, error) {
	events, err := src.FetchSwaps(ctx, subgraph.SwapsQuery{
		Pair:  pair,
		After: watermark,
		First: pageSize,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpstreamFetch, err)
	}
	return events, nil
}
