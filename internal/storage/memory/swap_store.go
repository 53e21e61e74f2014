package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"pulsex-swap-sync/internal/domain"
	"pulsex-swap-sync/internal/storage"
)

// SwapStore is an in-memory implementation of storage.SwapStore.
// It assigns seq ids the way a BIGSERIAL column does.
type SwapStore struct {
	mu      sync.RWMutex
	data    map[string]*domain.SwapRecord // keyed by swap_id
	nextSeq int64
	now     func() time.Time
}

// NewSwapStore creates a new in-memory swap store.
func NewSwapStore() *SwapStore {
	return &SwapStore{
		data:    make(map[string]*domain.SwapRecord),
		nextSeq: 1,
		now:     time.Now,
	}
}

// LatestTimestamp returns the maximum timestamp for pair. Returns ErrNotFound if none.
func (s *SwapStore) LatestTimestamp(_ context.Context, pair string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		latest int64
		found  bool
	)
	for _, r := range s.data {
		if r.Pair != pair {
			continue
		}
		if !found || r.Timestamp > latest {
			latest = r.Timestamp
			found = true
		}
	}
	if !found {
		return 0, storage.ErrNotFound
	}
	return latest, nil
}

// UpsertBulk inserts or overwrites swaps keyed on swap_id. Validation runs
// before any write, so a rejected batch leaves the store untouched.
func (s *SwapStore) UpsertBulk(_ context.Context, records []*domain.SwapRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}
	if err := storage.ValidateRecords(records); err != nil {
		return 0, err
	}
	records = storage.DedupeBySwapID(records)

	s.mu.Lock()
	defer s.mu.Unlock()

	nowMs := s.now().UnixMilli()
	for _, r := range records {
		row := *r
		if existing, ok := s.data[r.SwapID]; ok {
			row.SeqID = existing.SeqID
			row.CreatedAt = existing.CreatedAt
		} else {
			row.SeqID = s.nextSeq
			s.nextSeq++
			row.CreatedAt = nowMs
		}
		row.UpdatedAt = nowMs
		s.data[r.SwapID] = &row
	}

	return len(records), nil
}

// GetByPair retrieves all swaps for pair, ordered by timestamp ASC, seq_id ASC.
func (s *SwapStore) GetByPair(_ context.Context, pair string) ([]*domain.SwapRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.SwapRecord
	for _, r := range s.data {
		if r.Pair == pair {
			copy := *r
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Timestamp != result[j].Timestamp {
			return result[i].Timestamp < result[j].Timestamp
		}
		return result[i].SeqID < result[j].SeqID
	})

	return result, nil
}

// ListAfterSeq retrieves up to limit swaps with seq_id > afterSeq, ordered by seq_id ASC.
func (s *SwapStore) ListAfterSeq(_ context.Context, afterSeq int64, limit int) ([]*domain.SwapRecord, error) {
	if limit <= 0 {
		return nil, storage.ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.SwapRecord
	for _, r := range s.data {
		if r.SeqID > afterSeq {
			copy := *r
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].SeqID < result[j].SeqID
	})
	if len(result) > limit {
		result = result[:limit]
	}

	return result, nil
}

// Count returns the number of swaps stored for pair.
func (s *SwapStore) Count(_ context.Context, pair string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, r := range s.data {
		if r.Pair == pair {
			n++
		}
	}
	return n, nil
}

var _ storage.SwapStore = (*SwapStore)(nil)
