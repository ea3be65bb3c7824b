package engine

import (
	"context"
	"fmt"
	"time"

	"telescout/internal/ratelimit"
	"telescout/internal/telegram"
)

// RetryConfig holds retry behavior for transient search failures
type RetryConfig struct {
	MaxRetries        int           // Maximum number of retries (default: 3)
	InitialBackoff    time.Duration // Initial backoff duration (default: 1s)
	MaxBackoff        time.Duration // Maximum backoff duration (default: 30s)
	BackoffMultiplier float64       // Backoff multiplier (default: 2.0)
}

// DefaultRetryConfig returns the default retry configuration
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:        3,
		InitialBackoff:    1 * time.Second,
		MaxBackoff:        30 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

// withRetry executes a Telegram call with bounded retries.
//
// Retryable errors back off exponentially up to MaxRetries. A flood
// wait is reported to the rate controller and the call is retried once
// after the enforced wait. Fatal errors return immediately.
func (e *Engine) withRetry(ctx context.Context, cat ratelimit.Category, operation string, fn func(context.Context) error) error {
	var lastErr error
	backoff := e.retry.InitialBackoff
	floodRetried := false

	for attempt := 0; attempt <= e.retry.MaxRetries; attempt++ {
		err := fn(ctx)
		if err == nil {
			if attempt > 0 {
				e.log.Info("call succeeded after retry", "operation", operation, "attempts", attempt+1)
			}
			return nil
		}
		lastErr = err

		if fw, ok := telegram.AsFloodWait(err); ok {
			e.rates.ReportBackoff(cat, fw.Duration())
			if floodRetried {
				return fmt.Errorf("%s failed: repeated flood wait: %w", operation, err)
			}
			floodRetried = true
			e.log.Warn("flood wait imposed", "operation", operation, "seconds", fw.Seconds)
			// Re-acquire so the retry waits out the enforced backoff.
			if err := e.rates.Acquire(ctx, cat); err != nil {
				return err
			}
			attempt--
			continue
		}

		if telegram.IsFatal(err) {
			return fmt.Errorf("%s failed: %w", operation, err)
		}
		if !telegram.IsRetryable(err) {
			return fmt.Errorf("%s failed: %w", operation, err)
		}
		if attempt == e.retry.MaxRetries {
			break
		}
		if ctx.Err() != nil {
			return fmt.Errorf("%s failed: %w", operation, ctx.Err())
		}

		e.log.Warn("transient failure, retrying",
			"operation", operation, "attempt", attempt+1, "backoff", backoff, "error", err)

		select {
		case <-time.After(backoff):
			backoff = time.Duration(float64(backoff) * e.retry.BackoffMultiplier)
			if backoff > e.retry.MaxBackoff {
				backoff = e.retry.MaxBackoff
			}
		case <-ctx.Done():
			return fmt.Errorf("%s failed: %w", operation, ctx.Err())
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operation, e.retry.MaxRetries+1, lastErr)
}
