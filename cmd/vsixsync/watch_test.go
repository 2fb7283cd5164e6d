package main

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatchConfig_SyncsOnStartAndChange(t *testing.T) {
	dir := t.TempDir()
	configFile := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(configFile, []byte("concurrency = 1\n"), 0644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var runs atomic.Int32
	done := make(chan error, 1)
	go func() {
		done <- watchConfig(ctx, configFile, 0, func(context.Context) { runs.Add(1) })
	}()

	require.Eventually(t, func() bool { return runs.Load() == 1 }, 2*time.Second, 10*time.Millisecond)

	// Unrelated files in the same directory are ignored.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "state.json"), []byte("{}"), 0644))

	require.NoError(t, os.WriteFile(configFile, []byte("concurrency = 2\n"), 0644))
	require.Eventually(t, func() bool { return runs.Load() == 2 }, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watchConfig did not stop after cancel")
	}
	assert.Equal(t, int32(2), runs.Load())
}

func TestWatchConfig_MissingDirectory(t *testing.T) {
	configFile := filepath.Join(t.TempDir(), "missing", "config.toml")
	err := watchConfig(context.Background(), configFile, 0, func(context.Context) {
		t.Error("sync must not run when the watch cannot start")
	})
	assert.Error(t, err)
}
