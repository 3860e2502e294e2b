// Package retry wraps escrow-affecting network calls with bounded
// exponential backoff. Used only on the client-initiated payment path;
// the webhook handler relies on the gateway's own redelivery instead.
package retry

import (
	"context"
	"time"

	"github.com/Mokete-tech/spaan-backend/internal/apperror"
)

const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = 1 * time.Second
)

type Config struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

func (c Config) withDefaults() Config {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = DefaultBaseDelay
	}
	return c
}

// OnRetry is invoked before each re-attempt with the attempt number about
// to run and the error from the previous one.
type OnRetry func(attempt int, err error)

// Do runs op up to cfg.MaxAttempts times with delay base*2^(attempt-1)
// before attempts 2..max. Terminal errors (anything not retryable per the
// taxonomy) stop immediately. The last error is returned after all
// attempts are exhausted; no delay follows the final failure.
func Do(ctx context.Context, cfg Config, op func(context.Context) error, onRetry OnRetry) error {
	cfg = cfg.withDefaults()

	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if attempt > 1 {
			if onRetry != nil {
				onRetry(attempt, lastErr)
			}
			delay := cfg.BaseDelay << (attempt - 2)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if !apperror.IsRetryable(lastErr) {
			return lastErr
		}
	}
	return lastErr
}
