// Package retry implements the bounded exponential backoff used for webhook
// delivery and other downstream calls. Whether an error is worth retrying is
// decided by the error itself (see internal/errors).
package retry

import (
	"context"
	"math/rand"
	"time"

	cerrors "contextd/internal/errors"
)

// Config bounds a retry loop.
type Config struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Jitter      bool
}

// DefaultConfig returns the defaults used when the caller does not tune the loop.
func DefaultConfig() Config {
	return Config{
		MaxAttempts: 3,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    10 * time.Second,
		Jitter:      true,
	}
}

// Do runs fn up to cfg.MaxAttempts times, sleeping between attempts. It
// returns early on success, on a non-retryable error, or when ctx is done
// during a backoff wait.
func Do(ctx context.Context, cfg Config, fn func(ctx context.Context) error) error {
	for attempt := 1; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if !cerrors.IsRetryable(err) || attempt >= cfg.MaxAttempts {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoffDelay(cfg, attempt)):
		}
	}
}

// backoffDelay doubles BaseDelay per attempt, clamped to MaxDelay, with
// optional jitter in [delay/2, delay].
func backoffDelay(cfg Config, attempt int) time.Duration {
	delay := cfg.BaseDelay << (attempt - 1)
	if delay > cfg.MaxDelay || delay <= 0 {
		delay = cfg.MaxDelay
	}
	if cfg.Jitter && delay > 0 {
		delay = delay/2 + time.Duration(rand.Int63n(int64(delay/2)+1))
	}
	return delay
}
