package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"pulsex-swap-sync/internal/domain"
	"pulsex-swap-sync/internal/observability"
	"pulsex-swap-sync/internal/storage"
)

// SwapMirror implements storage.SwapMirror using ClickHouse.
// Duplicates collapse in ReplacingMergeTree, so inserts never check for existing rows.
type SwapMirror struct {
	conn *Conn
}

// NewSwapMirror creates a new SwapMirror.
func NewSwapMirror(conn *Conn) *SwapMirror {
	return &SwapMirror{conn: conn}
}

// Compile-time interface check.
var _ storage.SwapMirror = (*SwapMirror)(nil)

// LatestSeqID returns the highest mirrored seq_id, or 0 when empty.
func (m *SwapMirror) LatestSeqID(ctx context.Context) (int64, error) {
	start := time.Now()

	var latest uint64
	err := m.conn.QueryRow(ctx, `SELECT max(seq_id) FROM swaps`).Scan(&latest)
	observability.RecordDBQuery("clickhouse", "latest_seq_id", time.Since(start).Seconds(), err)
	if err != nil {
		return 0, fmt.Errorf("get latest mirrored seq id: %w", err)
	}
	return int64(latest), nil
}

// InsertBulk writes swaps in a single batch.
func (m *SwapMirror) InsertBulk(ctx context.Context, records []*domain.SwapRecord) error {
	if len(records) == 0 {
		return nil
	}
	if err := storage.ValidateRecords(records); err != nil {
		return err
	}

	start := time.Now()
	err := m.insert(ctx, records)
	observability.RecordDBQuery("clickhouse", "insert_swaps", time.Since(start).Seconds(), err)
	return err
}

func (m *SwapMirror) insert(ctx context.Context, records []*domain.SwapRecord) error {
	batch, err := m.conn.PrepareBatch(ctx, `
		INSERT INTO swaps (
			seq_id, swap_id, pair, tx_hash, timestamp, sender, to_address,
			amount0_in, amount0_out, amount1_in, amount1_out, amount_usd,
			token0_symbol, token1_symbol, type, updated_at
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, r := range records {
		amounts, err := parseAmounts(r)
		if err != nil {
			_ = batch.Abort()
			return fmt.Errorf("swap %s: %w", r.SwapID, err)
		}

		err = batch.Append(
			uint64(r.SeqID), r.SwapID, r.Pair, r.TxHash, time.Unix(r.Timestamp, 0).UTC(),
			r.Sender, r.ToAddress,
			amounts[0], amounts[1], amounts[2], amounts[3], amounts[4],
			r.Token0Symbol, r.Token1Symbol, string(r.Type), uint64(r.UpdatedAt),
		)
		if err != nil {
			_ = batch.Abort()
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// parseAmounts returns amount0In, amount0Out, amount1In, amount1Out, amountUSD.
func parseAmounts(r *domain.SwapRecord) ([5]decimal.Decimal, error) {
	var out [5]decimal.Decimal
	for i, s := range []string{r.Amount0In, r.Amount0Out, r.Amount1In, r.Amount1Out, r.AmountUSD} {
		d, err := decimal.NewFromString(s)
		if err != nil {
			return out, fmt.Errorf("parse amount %q: %w", s, err)
		}
		out[i] = d
	}
	return out, nil
}
