package gemini

import (
	"fmt"
	"time"
)

// RetryConfig bounds the describe retry loop. Backoff is linear: the delay
// before attempt k+1 is BaseDelay*k. The original service used linear rather
// than exponential growth on purpose; the total wait stays under a Telegram
// user's patience for an album reply.
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// DefaultRetryConfig returns the production policy: 3 attempts, 1s base.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{MaxAttempts: 3, BaseDelay: time.Second}
}

// retryState is the explicit attempt/delay machine driving Describe. Keeping
// it separate from the sleep itself lets tests step through the schedule
// synchronously.
type retryState struct {
	cfg   RetryConfig
	tried int
}

// next records a failed attempt and returns the delay to wait before the
// following one; ok is false once attempts are exhausted.
func (r *retryState) next() (delay time.Duration, ok bool) {
	r.tried++
	if r.tried >= r.cfg.MaxAttempts {
		return 0, false
	}
	return r.cfg.BaseDelay * time.Duration(r.tried), true
}

// DescribeError is returned once every attempt has failed. Callers must not
// retry further; the wrapped error is the last one observed.
type DescribeError struct {
	Attempts int
	Err      error
}

func (e *DescribeError) Error() string {
	return fmt.Sprintf("describe failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *DescribeError) Unwrap() error { return e.Err }
