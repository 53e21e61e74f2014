package main

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pulsex-swap-sync/internal/swapsync"
)

func TestRun_FailureReturnsToCaller(t *testing.T) {
	t.Setenv("STORAGE_URL", "postgres://localhost/swaps")
	t.Setenv("STORAGE_SERVICE_KEY", "secret")
	t.Setenv("CLICKHOUSE_DSN", "")
	require.NoError(t, os.Unsetenv("CLICKHOUSE_DSN"))

	err := run(time.Second, "error")

	assert.ErrorIs(t, err, swapsync.ErrConfiguration)
}
