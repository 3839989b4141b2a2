package retry

import (
	"context"
	"fmt"
	"time"
)

// Config controls retry behavior. With Backoff set, the delay grows linearly
// with the attempt number.
type Config struct {
	MaxAttempts int
	Delay       time.Duration
	Backoff     bool
}

// Do runs fn up to MaxAttempts times, sleeping between attempts. It honors
// context cancellation while waiting.
func Do(ctx context.Context, cfg Config, fn func() error) error {
	attempts := cfg.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if lastErr = fn(); lastErr == nil {
			return nil
		}
		if attempt == attempts {
			break
		}

		delay := cfg.Delay
		if cfg.Backoff {
			delay = time.Duration(attempt) * cfg.Delay
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return fmt.Errorf("failed after %d attempts: %w", attempts, lastErr)
}
