package resilience

import (
	"context"
	"math/rand"
	"time"
)

// RetryConfig tunes [Retry]. Zero-value fields take defaults.
type RetryConfig struct {
	// MaxAttempts is the total number of attempts including the first.
	// Default: 3.
	MaxAttempts int

	// BaseDelay is the delay before the first retry; each further retry
	// doubles it. Default: 500ms.
	BaseDelay time.Duration

	// MaxDelay caps the per-retry delay. Default: 10s.
	MaxDelay time.Duration
}

func (c RetryConfig) withDefaults() RetryConfig {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = 500 * time.Millisecond
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = 10 * time.Second
	}
	return c
}

// Retry runs fn up to cfg.MaxAttempts times with exponentially growing,
// jittered delays between attempts. retryable decides whether an error is
// worth another attempt (e.g. provider throttling); a non-retryable error is
// returned immediately.
//
// Context cancellation is honored between attempts and while waiting out a
// delay, never by interrupting an in-flight fn call.
func Retry(ctx context.Context, cfg RetryConfig, retryable func(error) bool, fn func() error) error {
	cfg = cfg.withDefaults()

	var err error
	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		if attempt > 0 {
			delay := backoffDelay(cfg, attempt)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		if err = fn(); err == nil {
			return nil
		}
		if retryable != nil && !retryable(err) {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return err
}

// backoffDelay computes the delay before the given retry attempt (1-based):
// base·2^(attempt-1), capped at MaxDelay, with up to 25% random jitter to
// spread out retry storms.
func backoffDelay(cfg RetryConfig, attempt int) time.Duration {
	delay := cfg.BaseDelay << (attempt - 1)
	if delay > cfg.MaxDelay || delay <= 0 {
		delay = cfg.MaxDelay
	}
	jitter := time.Duration(rand.Int63n(int64(delay)/4 + 1))
	return delay + jitter
}
