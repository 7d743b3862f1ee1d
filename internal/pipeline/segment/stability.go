package segment

import (
	"context"
	"fmt"
	"os"
	"time"

	types "AssetForge/pkg"
)

const (
	defaultPollInterval = 200 * time.Millisecond
	defaultStableReads  = 3
	defaultMaxWait      = 5 * time.Second
)

// StabilityMonitor decides when an encoder has finished writing a file. A
// file counts as stable once its size has been observed identical and
// non-zero for a fixed number of consecutive reads. A missing file is not an
// error: the encoder may not have created it yet, so polling continues until
// the wait budget runs out.
//
// stat and sleep are swappable so tests can drive the monitor without real
// time passing.
type StabilityMonitor struct {
	pollInterval time.Duration
	stableReads  int
	maxWait      time.Duration

	stat  func(path string) (int64, error)
	sleep func(d time.Duration)
}

func NewStabilityMonitor(cfg types.UploaderConfig) *StabilityMonitor {
	m := &StabilityMonitor{
		pollInterval: defaultPollInterval,
		stableReads:  defaultStableReads,
		maxWait:      defaultMaxWait,
		stat:         statSize,
		sleep:        time.Sleep,
	}
	if cfg.PollIntervalMs > 0 {
		m.pollInterval = time.Duration(cfg.PollIntervalMs) * time.Millisecond
	}
	if cfg.StableReads > 0 {
		m.stableReads = int(cfg.StableReads)
	}
	if cfg.MaxWaitSec > 0 {
		m.maxWait = time.Duration(cfg.MaxWaitSec) * time.Second
	}
	return m
}

func statSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// WaitForStable blocks until path is write-stable, the wait budget is
// exhausted, or ctx is cancelled.
func (m *StabilityMonitor) WaitForStable(ctx context.Context, path string) error {
	var (
		lastSize    int64 = -1
		stableCount int
		elapsed     time.Duration
	)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		size, err := m.stat(path)
		switch {
		case err != nil && os.IsNotExist(err):
			// Not created yet; not stable, keep waiting.
			lastSize, stableCount = -1, 0
		case err != nil:
			return fmt.Errorf("failed to stat %s: %w", path, err)
		case size > 0 && size == lastSize:
			stableCount++
			if stableCount >= m.stableReads {
				return nil
			}
		default:
			lastSize = size
			stableCount = 1
			if size > 0 && m.stableReads <= 1 {
				return nil
			}
		}

		if elapsed >= m.maxWait {
			return fmt.Errorf("file %s not stable after %s", path, m.maxWait)
		}
		m.sleep(m.pollInterval)
		elapsed += m.pollInterval
	}
}
