package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pulsex-swap-sync/internal/config"
	"pulsex-swap-sync/internal/export"
	"pulsex-swap-sync/internal/storage"
	"pulsex-swap-sync/internal/storage/memory"
	"pulsex-swap-sync/internal/swapsync"
)

const testPair = "0xead0d2751d20c83d6ee36f6004f2aa17637809cf"

func testConfig(subgraphURL string) *config.Config {
	cfg := &config.Config{}
	cfg.Storage.URL = "postgres://unused"
	cfg.Storage.ServiceKey = "secret"
	cfg.Sync.PairAddress = testPair
	cfg.Sync.SubgraphURL = subgraphURL
	cfg.Sync.StartTimestamp = 1000
	cfg.Sync.PageSize = 50
	cfg.Sync.UpstreamTimeout = 5 * time.Second
	cfg.Export.BatchSize = 100
	cfg.Export.ClickHouseDSN = "clickhouse://unused:9000/default"
	return cfg
}

func subgraphServer(t *testing.T, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		swap := func(id, ts, in0, out1 string) map[string]any {
			return map[string]any{
				"id": id, "transaction": map[string]any{"id": "0xtx"}, "timestamp": ts,
				"sender": "0xs", "to": "0xt", "amountUSD": "1.5",
				"amount0In": in0, "amount0Out": "0", "amount1In": "0", "amount1Out": out1,
				"token0": map[string]any{"symbol": "WPLS"}, "token1": nil,
			}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{"swaps": []any{
				swap("0xaaa-0", "1001", "5", "3"),
				swap("0xbbb-0", "1002", "0", "0"),
			}},
		})
	}))
	t.Cleanup(server.Close)
	return server
}

func memoryOpener(store *memory.SwapStore, opened *int) StoreOpener {
	return func(context.Context, *config.Config) (storage.SwapStore, func(), error) {
		*opened++
		return store, func() {}, nil
	}
}

func TestInvoker_Sync(t *testing.T) {
	var calls atomic.Int32
	server := subgraphServer(t, &calls)
	store := memory.NewSwapStore()
	opened := 0

	invoker := NewInvoker(nil,
		WithConfigLoader(func() (*config.Config, error) { return testConfig(server.URL), nil }),
		WithStoreOpener(memoryOpener(store, &opened)),
	)

	result, err := invoker.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Synced 2 swaps", result.Message())
	assert.Equal(t, int32(1), calls.Load())

	swaps, err := store.GetByPair(context.Background(), testPair)
	require.NoError(t, err)
	require.Len(t, swaps, 2)
	assert.Equal(t, "UNKNOWN", swaps[0].Token1Symbol)

	// Second invocation resolves a fresh config and store.
	_, err = invoker.Sync(context.Background())
	require.Error(t, err, "the fake subgraph ignores the watermark, which the client rejects")
	assert.ErrorIs(t, err, swapsync.ErrUpstreamFetch)
	assert.Equal(t, 2, opened)

	count, err := store.Count(context.Background(), testPair)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestInvoker_SyncConfigErrorBeforeIO(t *testing.T) {
	var calls atomic.Int32
	subgraphServer(t, &calls)
	opened := 0

	invoker := NewInvoker(nil,
		WithConfigLoader(func() (*config.Config, error) {
			return nil, config.ErrInvalid
		}),
		WithStoreOpener(memoryOpener(memory.NewSwapStore(), &opened)),
	)

	_, err := invoker.Sync(context.Background())
	assert.ErrorIs(t, err, swapsync.ErrConfiguration)
	assert.ErrorIs(t, err, config.ErrInvalid)
	assert.Equal(t, 0, opened)
	assert.Equal(t, int32(0), calls.Load())
}

func TestInvoker_SyncStoreUnavailable(t *testing.T) {
	var calls atomic.Int32
	server := subgraphServer(t, &calls)

	invoker := NewInvoker(nil,
		WithConfigLoader(func() (*config.Config, error) { return testConfig(server.URL), nil }),
		WithStoreOpener(func(context.Context, *config.Config) (storage.SwapStore, func(), error) {
			return nil, nil, errors.New("connect to postgres: refused")
		}),
	)

	_, err := invoker.Sync(context.Background())
	assert.ErrorIs(t, err, swapsync.ErrCursorRead)
	assert.Equal(t, int32(0), calls.Load())
}

func TestInvoker_Export(t *testing.T) {
	var calls atomic.Int32
	server := subgraphServer(t, &calls)
	store := memory.NewSwapStore()
	mirror := memory.NewSwapMirror()
	opened := 0

	invoker := NewInvoker(nil,
		WithConfigLoader(func() (*config.Config, error) { return testConfig(server.URL), nil }),
		WithStoreOpener(memoryOpener(store, &opened)),
		WithMirrorOpener(func(context.Context, *config.Config) (storage.SwapMirror, func(), error) {
			return mirror, func() {}, nil
		}),
	)

	_, err := invoker.Sync(context.Background())
	require.NoError(t, err)

	result, err := invoker.Export(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Exported 2 swaps", result.Message())
	assert.Equal(t, 2, mirror.Len())
}

func TestInvoker_ExportRequiresClickhouse(t *testing.T) {
	opened := 0
	invoker := NewInvoker(nil,
		WithConfigLoader(func() (*config.Config, error) {
			cfg := testConfig("http://unused")
			cfg.Export.ClickHouseDSN = ""
			return cfg, nil
		}),
		WithStoreOpener(memoryOpener(memory.NewSwapStore(), &opened)),
	)

	_, err := invoker.Export(context.Background())
	assert.ErrorIs(t, err, swapsync.ErrConfiguration)
	assert.Equal(t, 0, opened)
}

func TestInvoker_ExportMirrorUnavailable(t *testing.T) {
	opened := 0
	invoker := NewInvoker(nil,
		WithConfigLoader(func() (*config.Config, error) { return testConfig("http://unused"), nil }),
		WithStoreOpener(memoryOpener(memory.NewSwapStore(), &opened)),
		WithMirrorOpener(func(context.Context, *config.Config) (storage.SwapMirror, func(), error) {
			return nil, nil, errors.New("dial tcp: refused")
		}),
	)

	_, err := invoker.Export(context.Background())
	assert.ErrorIs(t, err, export.ErrMirrorRead)
}

func TestInvoker_MemoryStorageWithoutDatabaseSettings(t *testing.T) {
	var calls atomic.Int32
	server := subgraphServer(t, &calls)

	for _, key := range []string{"STORAGE_URL", "POSTGRES_URL", "STORAGE_SERVICE_KEY", "CLICKHOUSE_DSN"} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
	t.Setenv("PAIR_ADDRESS", testPair)
	t.Setenv("SUBGRAPH_URL", server.URL)
	t.Setenv("SYNC_START_TIMESTAMP", "1000")

	invoker := NewInvoker(nil, WithMemoryStorage())

	synced, err := invoker.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Synced 2 swaps", synced.Message())

	exported, err := invoker.Export(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Exported 2 swaps", exported.Message())
}
