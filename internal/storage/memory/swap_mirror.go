package memory

import (
	"context"
	"sync"

	"pulsex-swap-sync/internal/domain"
	"pulsex-swap-sync/internal/storage"
)

// SwapMirror is an in-memory implementation of storage.SwapMirror.
type SwapMirror struct {
	mu   sync.RWMutex
	data map[string]*domain.SwapRecord // keyed by swap_id
}

// NewSwapMirror creates a new in-memory swap mirror.
func NewSwapMirror() *SwapMirror {
	return &SwapMirror{data: make(map[string]*domain.SwapRecord)}
}

// LatestSeqID returns the highest mirrored seq_id, or 0 when empty.
func (m *SwapMirror) LatestSeqID(_ context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var latest int64
	for _, r := range m.data {
		if r.SeqID > latest {
			latest = r.SeqID
		}
	}
	return latest, nil
}

// InsertBulk writes swaps, replacing rows with the same swap_id.
func (m *SwapMirror) InsertBulk(_ context.Context, records []*domain.SwapRecord) error {
	if len(records) == 0 {
		return nil
	}
	if err := storage.ValidateRecords(records); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, r := range records {
		row := *r
		m.data[r.SwapID] = &row
	}
	return nil
}

// Len returns the number of distinct swaps mirrored.
func (m *SwapMirror) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}

var _ storage.SwapMirror = (*SwapMirror)(nil)
