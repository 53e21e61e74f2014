package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pulsex-swap-sync/internal/export"
	"pulsex-swap-sync/internal/swapsync"
)

type fakeRunner struct {
	syncResult   *swapsync.Result
	syncErr      error
	exportResult *export.Result
	exportErr    error
	syncCalls    int
}

func (f *fakeRunner) Sync(context.Context) (*swapsync.Result, error) {
	f.syncCalls++
	return f.syncResult, f.syncErr
}

func (f *fakeRunner) Export(context.Context) (*export.Result, error) {
	return f.exportResult, f.exportErr
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestCron_Synced(t *testing.T) {
	runner := &fakeRunner{syncResult: &swapsync.Result{Synced: 2, Watermark: 1000, LatestTimestamp: 1002}}
	routes := NewHandler(runner, nil).Routes()

	rec := get(t, routes, "/api/cron")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")
	assert.Equal(t, map[string]any{"message": "Synced 2 swaps"}, decode(t, rec))
}

func TestCron_NoNewSwaps(t *testing.T) {
	runner := &fakeRunner{syncResult: &swapsync.Result{Watermark: 1000, LatestTimestamp: 1000}}
	rec := get(t, NewHandler(runner, nil).Routes(), "/api/cron")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]any{"message": "No new swaps"}, decode(t, rec))
}

func TestCron_Error(t *testing.T) {
	runner := &fakeRunner{syncErr: fmt.Errorf("%w: %w", swapsync.ErrUpstreamFetch, errors.New("unexpected status 502"))}
	rec := get(t, NewHandler(runner, nil).Routes(), "/api/cron")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	body := decode(t, rec)
	assert.Contains(t, body["error"], "upstream fetch error")
	assert.NotContains(t, body, "message")
}

func TestCron_MethodNotAllowed(t *testing.T) {
	runner := &fakeRunner{}
	routes := NewHandler(runner, nil).Routes()

	req := httptest.NewRequest(http.MethodPost, "/api/cron", nil)
	rec := httptest.NewRecorder()
	routes.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, 0, runner.syncCalls)
}

func TestCronExport(t *testing.T) {
	runner := &fakeRunner{exportResult: &export.Result{Exported: 7, LastSeq: 7}}
	rec := get(t, NewHandler(runner, nil).Routes(), "/api/cron/export")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]any{"message": "Exported 7 swaps"}, decode(t, rec))
}

func TestCronExport_Error(t *testing.T) {
	runner := &fakeRunner{exportErr: fmt.Errorf("%w: CLICKHOUSE_DSN is required", swapsync.ErrConfiguration)}
	rec := get(t, NewHandler(runner, nil).Routes(), "/api/cron/export")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, decode(t, rec)["error"], "CLICKHOUSE_DSN")
}

func TestStatus(t *testing.T) {
	runner := &fakeRunner{syncResult: &swapsync.Result{Synced: 3, Watermark: 10, LatestTimestamp: 13}}
	h := NewHandler(runner, nil)
	routes := h.Routes()

	get(t, routes, "/api/cron")
	runner.syncResult, runner.syncErr = nil, errors.New("boom")
	get(t, routes, "/api/cron")

	rec := get(t, routes, "/status")
	require.Equal(t, http.StatusOK, rec.Code)

	var status Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, 2, status.SyncRuns)
	assert.Equal(t, 1, status.SyncFailures)
	assert.Equal(t, int64(13), status.LastWatermark)
	assert.Equal(t, "boom", status.LastSyncError)
	assert.Empty(t, status.LastSyncMessage)
}

func TestHealthAndMetrics(t *testing.T) {
	routes := NewHandler(&fakeRunner{}, nil).Routes()

	rec := get(t, routes, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	rec = get(t, routes, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "pulsex_swap_sync_")
}
