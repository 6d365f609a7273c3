package engine

import (
	"context"
	"fmt"
	"time"
)

// withRetry runs fn with a per-attempt timeout and bounded retries with
// linear backoff. It addresses transient infrastructure failures (timeouts,
// malformed responses); content-quality failures never pass through here.
//
// The attempt context is detached from the caller's cancellation so an abort
// never interrupts an in-flight call; the abort is observed between
// attempts and at the next transition boundary.
func (e *Engine) withRetry(ctx context.Context, name string, timeout time.Duration, fn func(ctx context.Context) error) error {
	attempts := e.cfg.MaxRetries + 1
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			e.logger.Printf("[RETRY] %s attempt %d/%d after: %v", name, attempt, attempts, lastErr)
			select {
			case <-time.After(e.cfg.RetryBackoff * time.Duration(attempt-1)):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
		err := fn(callCtx)
		cancel()
		if err == nil {
			return nil
		}
		lastErr = err
	}

	return fmt.Errorf("%s failed after %d attempts: %w", name, attempts, lastErr)
}
