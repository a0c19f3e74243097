package dispatch

import (
	"fmt"
	"math"
	"time"
)

// DefaultTimeout is the fixed per-attempt network timeout.
const DefaultTimeout = 60 * time.Second

// RetryPolicy bounds transport retries. Retries only happen when no
// response was received.
type RetryPolicy struct {
	// Timeout applies to each attempt separately.
	Timeout    time.Duration
	MaxRetries int
	// Backoff is the delay before the first retry. Later retries wait
	// Backoff * Multiplier^(n-1).
	Backoff    time.Duration
	Multiplier float64
}

// DefaultRetryPolicy is one retry, no delay growth, 60s per attempt.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Timeout:    DefaultTimeout,
		MaxRetries: 1,
		Multiplier: 1.0,
	}
}

// Validate reports configuration that cannot be used.
func (p RetryPolicy) Validate() error {
	if p.Timeout <= 0 {
		return fmt.Errorf("retry policy timeout must be positive, got %s", p.Timeout)
	}
	if p.MaxRetries < 0 {
		return fmt.Errorf("retry policy max retries must not be negative, got %d", p.MaxRetries)
	}
	if p.Multiplier < 1 {
		return fmt.Errorf("retry policy multiplier must be >= 1, got %v", p.Multiplier)
	}
	return nil
}

// Delay returns how long to wait before retry n (n >= 1).
func (p RetryPolicy) Delay(n int) time.Duration {
	if n < 1 || p.Backoff <= 0 {
		return 0
	}
	return time.Duration(float64(p.Backoff) * math.Pow(p.Multiplier, float64(n-1)))
}
