package pipeline

import (
	"context"
	"time"

	types "AssetForge/pkg"
	"go.uber.org/zap"
)

// Retry runs fn until it succeeds, the attempt limit is reached, or the
// context is cancelled. The backoff between attempts grows by the configured
// coefficient, and the wait itself honours cancellation.
func Retry(ctx context.Context, logger *zap.Logger, cfg types.RetryConfig, operation string, fn func() error) error {
	interval := time.Duration(cfg.InitialIntervalSec * float64(time.Second))

	for attempt := int32(1); ; attempt++ {
		if err := ctx.Err(); err != nil {
			logger.Warn("Retry cancelled", zap.String("operation", operation), zap.Error(err))
			return err
		}

		err := fn()
		if err == nil {
			return nil
		}
		if attempt >= cfg.MaxAttempts {
			logger.Error("Retry limit reached", zap.String("operation", operation), zap.Int32("attempts", attempt), zap.Error(err))
			return err
		}
		logger.Warn("Retry attempt failed", zap.String("operation", operation), zap.Int32("attempt", attempt), zap.Error(err))

		select {
		case <-time.After(interval):
		case <-ctx.Done():
			logger.Warn("Retry cancelled during backoff", zap.String("operation", operation), zap.Error(ctx.Err()))
			return ctx.Err()
		}
		interval = time.Duration(float64(interval) * cfg.BackoffCoefficient)
	}
}
