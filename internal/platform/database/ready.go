package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// ErrNotReady is returned once every readiness attempt has failed.
var ErrNotReady = errors.New("database connection failed after maximum retries")

// Pinger runs a trivial liveness query against the database.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RetryPolicy bounds the readiness probe.
type RetryPolicy struct {
	Attempts int
	Delay    time.Duration
}

// DefaultRetryPolicy polls once a second for thirty seconds.
var DefaultRetryPolicy = RetryPolicy{Attempts: 30, Delay: time.Second}

// WaitReady pings until the first success or until policy.Attempts pings have
// failed, sleeping policy.Delay between attempts. Exhaustion yields a single
// error wrapping ErrNotReady and the last ping failure.
func WaitReady(ctx context.Context, p Pinger, policy RetryPolicy, logger *zap.Logger) error {
	if policy.Attempts < 1 {
		policy.Attempts = 1
	}

	var lastErr error
	for i := 0; i < policy.Attempts; i++ {
		if i > 0 {
			timer := time.NewTimer(policy.Delay)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			}
		}

		if lastErr = p.Ping(ctx); lastErr == nil {
			logger.Info("database connection established", zap.Int("attempt", i+1))
			return nil
		}
		logger.Info("waiting for database",
			zap.Int("attempt", i+1),
			zap.Int("max_attempts", policy.Attempts),
			zap.Error(lastErr),
		)
	}
	return fmt.Errorf("%w: %w", ErrNotReady, lastErr)
}
