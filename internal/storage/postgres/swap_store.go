package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"pulsex-swap-sync/internal/domain"
	"pulsex-swap-sync/internal/observability"
	"pulsex-swap-sync/internal/storage"
)

// SwapStore implements storage.SwapStore using PostgreSQL.
type SwapStore struct {
	db DB
}

// NewSwapStore creates a new SwapStore.
func NewSwapStore(db DB) *SwapStore {
	return &SwapStore{db: db}
}

// Compile-time interface check.
var _ storage.SwapStore = (*SwapStore)(nil)

const latestTimestampQuery = `
	SELECT timestamp
	FROM swaps
	WHERE pair = $1
	ORDER BY timestamp DESC
	LIMIT 1
`

// Amount parameters are cast through text so decimal strings reach NUMERIC
// columns without passing through a float.
const upsertSwapQuery = `
	INSERT INTO swaps (
		swap_id, pair, tx_hash, timestamp, sender, to_address,
		amount0_in, amount0_out, amount1_in, amount1_out, amount_usd,
		token0_symbol, token1_symbol, type
	) VALUES (
		$1, $2, $3, $4, $5, $6,
		$7::text::numeric, $8::text::numeric, $9::text::numeric, $10::text::numeric, $11::text::numeric,
		$12, $13, $14
	)
	ON CONFLICT (swap_id) DO UPDATE SET
		pair          = EXCLUDED.pair,
		tx_hash       = EXCLUDED.tx_hash,
		timestamp     = EXCLUDED.timestamp,
		sender        = EXCLUDED.sender,
		to_address    = EXCLUDED.to_address,
		amount0_in    = EXCLUDED.amount0_in,
		amount0_out   = EXCLUDED.amount0_out,
		amount1_in    = EXCLUDED.amount1_in,
		amount1_out   = EXCLUDED.amount1_out,
		amount_usd    = EXCLUDED.amount_usd,
		token0_symbol = EXCLUDED.token0_symbol,
		token1_symbol = EXCLUDED.token1_symbol,
		type          = EXCLUDED.type,
		updated_at    = EXCLUDED.updated_at
`

const selectSwapColumns = `
	SELECT seq_id, swap_id, pair, tx_hash, timestamp, sender, to_address,
		amount0_in::text, amount0_out::text, amount1_in::text, amount1_out::text, amount_usd::text,
		token0_symbol, token1_symbol, type, created_at, updated_at
	FROM swaps
`

// LatestTimestamp returns the maximum timestamp for pair. Returns ErrNotFound if none.
func (s *SwapStore) LatestTimestamp(ctx context.Context, pair string) (int64, error) {
	start := time.Now()

	var ts int64
	err := s.db.QueryRow(ctx, latestTimestampQuery, pair).Scan(&ts)
	if isNotFoundError(err) {
		observability.RecordDBQuery("postgres", "latest_timestamp", time.Since(start).Seconds(), nil)
		return 0, storage.ErrNotFound
	}
	observability.RecordDBQuery("postgres", "latest_timestamp", time.Since(start).Seconds(), err)
	if err != nil {
		return 0, fmt.Errorf("get latest swap timestamp: %w", err)
	}
	return ts, nil
}

// UpsertBulk inserts or overwrites swaps keyed on swap_id in one transaction.
// Either every row is written or none is.
func (s *SwapStore) UpsertBulk(ctx context.Context, records []*domain.SwapRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}
	if err := storage.ValidateRecords(records); err != nil {
		return 0, err
	}
	// Last occurrence wins for repeated swap_ids.
	records = storage.DedupeBySwapID(records)

	start := time.Now()
	n, err := s.upsert(ctx, records)
	observability.RecordDBQuery("postgres", "upsert_swaps", time.Since(start).Seconds(), err)
	return n, err
}

func (s *SwapStore) upsert(ctx context.Context, records []*domain.SwapRecord) (int, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, r := range records {
		_, err := tx.Exec(ctx, upsertSwapQuery,
			r.SwapID,
			r.Pair,
			r.TxHash,
			r.Timestamp,
			r.Sender,
			r.ToAddress,
			r.Amount0In,
			r.Amount0Out,
			r.Amount1In,
			r.Amount1Out,
			r.AmountUSD,
			r.Token0Symbol,
			r.Token1Symbol,
			string(r.Type),
		)
		if err != nil {
			return 0, fmt.Errorf("upsert swap %s: %w", r.SwapID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit tx: %w", err)
	}

	return len(records), nil
}

// GetByPair retrieves all swaps for pair, ordered by timestamp ASC, seq_id ASC.
func (s *SwapStore) GetByPair(ctx context.Context, pair string) ([]*domain.SwapRecord, error) {
	query := selectSwapColumns + `
		WHERE pair = $1
		ORDER BY timestamp ASC, seq_id ASC
	`

	rows, err := s.db.Query(ctx, query, pair)
	if err != nil {
		return nil, fmt.Errorf("get swaps by pair: %w", err)
	}
	defer rows.Close()

	return scanSwaps(rows)
}

// ListAfterSeq retrieves up to limit swaps with seq_id > afterSeq, ordered by seq_id ASC.
func (s *SwapStore) ListAfterSeq(ctx context.Context, afterSeq int64, limit int) ([]*domain.SwapRecord, error) {
	if limit <= 0 {
		return nil, storage.ErrInvalidInput
	}

	query := selectSwapColumns + `
		WHERE seq_id > $1
		ORDER BY seq_id ASC
		LIMIT $2
	`

	start := time.Now()
	rows, err := s.db.Query(ctx, query, afterSeq, limit)
	observability.RecordDBQuery("postgres", "list_after_seq", time.Since(start).Seconds(), err)
	if err != nil {
		return nil, fmt.Errorf("list swaps after seq: %w", err)
	}
	defer rows.Close()

	return scanSwaps(rows)
}

// Count returns the number of swaps stored for pair.
func (s *SwapStore) Count(ctx context.Context, pair string) (int64, error) {
	var n int64
	if err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM swaps WHERE pair = $1`, pair).Scan(&n); err != nil {
		return 0, fmt.Errorf("count swaps: %w", err)
	}
	return n, nil
}

// scanSwaps scans multiple rows into a slice of SwapRecord.
func scanSwaps(rows pgx.Rows) ([]*domain.SwapRecord, error) {
	var records []*domain.SwapRecord

	for rows.Next() {
		var (
			r       domain.SwapRecord
			swapTyp string
		)

		err := rows.Scan(
			&r.SeqID,
			&r.SwapID,
			&r.Pair,
			&r.TxHash,
			&r.Timestamp,
			&r.Sender,
			&r.ToAddress,
			&r.Amount0In,
			&r.Amount0Out,
			&r.Amount1In,
			&r.Amount1Out,
			&r.AmountUSD,
			&r.Token0Symbol,
			&r.Token1Symbol,
			&swapTyp,
			&r.CreatedAt,
			&r.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan swap row: %w", err)
		}
		r.Type = domain.SwapType(swapTyp)

		records = append(records, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate swap rows: %w", err)
	}

	return records, nil
}
