package async

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// ErrInvalidPolicy is returned by RetryPolicy.Validate.
var ErrInvalidPolicy = errors.New("invalid retry policy")

// RetryPolicy bounds monitor polling.
type RetryPolicy struct {
	// MaxAttempts is the number of monitor polls, including the first.
	// Default: 5
	MaxAttempts int

	// InitialDelay is the wait after the first pending poll.
	// Default: 1s
	InitialDelay time.Duration

	// Multiplier grows the delay after each wait.
	// Default: 2.0
	Multiplier float64

	// MaxDelay caps a single wait.
	// Default: 30s
	MaxDelay time.Duration
}

// DefaultRetryPolicy returns 5 polls with delays of 1s, 2s, 4s and 8s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:  5,
		InitialDelay: time.Second,
		Multiplier:   2.0,
		MaxDelay:     30 * time.Second,
	}
}

// Validate checks the policy for values that cannot drive a poll loop.
func (p RetryPolicy) Validate() error {
	switch {
	case p.MaxAttempts < 1:
		return fmt.Errorf("%w: max attempts must be at least 1, got %d", ErrInvalidPolicy, p.MaxAttempts)
	case p.InitialDelay < 0:
		return fmt.Errorf("%w: initial delay must not be negative", ErrInvalidPolicy)
	case p.Multiplier < 1.0:
		return fmt.Errorf("%w: multiplier must be at least 1, got %g", ErrInvalidPolicy, p.Multiplier)
	case p.MaxDelay < p.InitialDelay:
		return fmt.Errorf("%w: max delay %s is below initial delay %s", ErrInvalidPolicy, p.MaxDelay, p.InitialDelay)
	}
	return nil
}

// backOff returns a jitter-free exponential schedule for the policy.
func (p RetryPolicy) backOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialDelay
	b.Multiplier = p.Multiplier
	b.MaxInterval = p.MaxDelay
	b.RandomizationFactor = 0
	b.Reset()
	return b
}

// Delays returns the waits between polls when every poll is pending and no
// Retry-After hint arrives.
func (p RetryPolicy) Delays() []time.Duration {
	if p.MaxAttempts <= 1 {
		return nil
	}
	b := p.backOff()
	out := make([]time.Duration, p.MaxAttempts-1)
	for i := range out {
		out[i] = b.NextBackOff()
	}
	return out
}

// Sleeper waits between polls.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// RealSleeper waits on the wall clock and stops early when ctx ends.
type RealSleeper struct{}

// Sleep implements Sleeper.
func (RealSleeper) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
