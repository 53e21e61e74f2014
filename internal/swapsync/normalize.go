package swapsync

import (
	"context"
	"fmt"

	"pulsex-swap-sync/internal/domain"
	"pulsex-swap-sync/internal/storage"
)

// Normalize maps upstream events to storage rows for pair. SeqID is left
// zero for storage to assign. An event whose quantities do not parse fails
// the whole batch.
func Normalize(pair string, events []domain.SwapEvent) ([]*domain.SwapRecord, error) {
	records := make([]*domain.SwapRecord, 0, len(events))
	for _, ev := range events {
		typ, err := domain.Classify(ev.Amount0In, ev.Amount1Out)
		if err != nil {
			return nil, fmt.Errorf("%w: swap %s: %w", ErrUpstreamFetch, ev.ID, err)
		}

		records = append(records, &domain.SwapRecord{
			SwapID:       ev.ID,
			Pair:         pair,
			TxHash:       ev.TxHash,
			Timestamp:    ev.Timestamp,
			Sender:       ev.Sender,
			ToAddress:    ev.To,
			Amount0In:    ev.Amount0In,
			Amount0Out:   ev.Amount0Out,
			Amount1In:    ev.Amount1In,
			Amount1Out:   ev.Amount1Out,
			AmountUSD:    ev.AmountUSD,
			Token0Symbol: symbolOrUnknown(ev.Token0Symbol),
			Token1Symbol: symbolOrUnknown(ev.Token1Symbol),
			Type:         typ,
		})
	}
	return records, nil
}

func symbolOrUnknown(s *string) string {
	if s == nil || *s == "" {
		return domain.UnknownSymbol
	}
	return *s
}

// Write upserts records in one batch. An empty batch never reaches storage.
func Write(ctx context.Context, store storage.SwapStore, records []*domain.SwapRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}
	n, err := store.UpsertBulk(ctx, records)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrWrite, err)
	}
	return n, nil
}
