// Package retry runs an operation with exponential backoff, retrying only
// errors classified as recoverable.
package retry

import (
	"context"
	"math/rand"
	"time"
)

type config struct {
	maxRetries int
	baseWait   time.Duration
	maxWait    time.Duration
}

// Option configures a call to Do.
type Option func(*config)

// WithMaxRetries sets how many times the operation is retried after the first
// attempt. Zero means a single attempt.
func WithMaxRetries(n int) Option {
	return func(c *config) { c.maxRetries = n }
}

// WithBaseWait sets the wait before the first retry. Each subsequent retry
// doubles the wait, up to the maximum.
func WithBaseWait(d time.Duration) Option {
	return func(c *config) { c.baseWait = d }
}

// WithMaxWait caps the wait between retries.
func WithMaxWait(d time.Duration) Option {
	return func(c *config) { c.maxWait = d }
}

// Do invokes fn, retrying with jittered exponential backoff while fn returns
// a recoverable error. The last error from fn is returned unwrapped.
func Do(ctx context.Context, fn func() error, opts ...Option) error {
	cfg := config{
		maxRetries: 3,
		baseWait:   time.Second,
		maxWait:    30 * time.Second,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	wait := cfg.baseWait
	for attempt := 0; ; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		if attempt >= cfg.maxRetries || !IsRecoverable(err) {
			return err
		}
		// Jitter between 50% and 100% of the current wait.
		sleep := wait/2 + time.Duration(rand.Int63n(int64(wait/2)+1))
		timer := time.NewTimer(sleep)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		wait *= 2
		if wait > cfg.maxWait {
			wait = cfg.maxWait
		}
	}
}
