package segment

import (
	"context"
	"os"
	"testing"
	"time"

	types "AssetForge/pkg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedMonitor returns a monitor whose stat calls walk the given size
// sequence and whose sleeps consume no real time. A size of -1 simulates the
// file not existing yet.
func scriptedMonitor(t *testing.T, cfg types.UploaderConfig, sizes []int64) (*StabilityMonitor, *int) {
	t.Helper()
	m := NewStabilityMonitor(cfg)
	calls := 0
	m.stat = func(string) (int64, error) {
		if calls >= len(sizes) {
			t.Fatalf("stat called %d times, only %d sizes scripted", calls+1, len(sizes))
		}
		size := sizes[calls]
		calls++
		if size < 0 {
			return 0, os.ErrNotExist
		}
		return size, nil
	}
	m.sleep = func(time.Duration) {}
	return m, &calls
}

func TestWaitForStableConsecutiveReads(t *testing.T) {
	cfg := types.UploaderConfig{PollIntervalMs: 200, StableReads: 3, MaxWaitSec: 5}
	m, calls := scriptedMonitor(t, cfg, []int64{512, 1024, 1024, 1024})

	require.NoError(t, m.WaitForStable(context.Background(), "seg0.ts"))
	assert.Equal(t, 4, *calls, "growth resets the count; three matching reads follow")
}

func TestWaitForStableMissingFileKeepsPolling(t *testing.T) {
	cfg := types.UploaderConfig{PollIntervalMs: 200, StableReads: 2, MaxWaitSec: 5}
	m, _ := scriptedMonitor(t, cfg, []int64{-1, -1, 300, 300})

	require.NoError(t, m.WaitForStable(context.Background(), "seg1.ts"))
}

func TestWaitForStableZeroSizeNeverStable(t *testing.T) {
	cfg := types.UploaderConfig{PollIntervalMs: 1000, StableReads: 2, MaxWaitSec: 3}
	sizes := make([]int64, 8)
	m, _ := scriptedMonitor(t, cfg, sizes)

	err := m.WaitForStable(context.Background(), "empty.ts")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not stable after")
}

func TestWaitForStableTimesOut(t *testing.T) {
	cfg := types.UploaderConfig{PollIntervalMs: 1000, StableReads: 3, MaxWaitSec: 2}
	// Keeps growing forever.
	m := NewStabilityMonitor(cfg)
	size := int64(0)
	m.stat = func(string) (int64, error) {
		size += 100
		return size, nil
	}
	m.sleep = func(time.Duration) {}

	err := m.WaitForStable(context.Background(), "grower.ts")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not stable after 2s")
}

func TestWaitForStableContextCancelled(t *testing.T) {
	m := NewStabilityMonitor(types.UploaderConfig{})
	m.stat = func(string) (int64, error) { return 0, nil }
	m.sleep = func(time.Duration) {}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := m.WaitForStable(ctx, "any.ts")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewStabilityMonitorDefaults(t *testing.T) {
	m := NewStabilityMonitor(types.UploaderConfig{})
	assert.Equal(t, defaultPollInterval, m.pollInterval)
	assert.Equal(t, defaultStableReads, m.stableReads)
	assert.Equal(t, defaultMaxWait, m.maxWait)
}
