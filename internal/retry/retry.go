// Package retry provides the bounded-retry policy shared by the relay's
// socket send helper and the outbound webhook delivery service.
package retry

import (
	"context"
	"time"
)

// Policy describes a bounded retry schedule. When Backoff is set it computes
// the delay after a given 1-based attempt; otherwise Delay is used between
// every attempt.
type Policy struct {
	MaxAttempts int
	Delay       time.Duration
	Backoff     func(attempt int) time.Duration
}

// NextDelay returns the wait after the given 1-based attempt fails.
func (p Policy) NextDelay(attempt int) time.Duration {
	if p.Backoff != nil {
		return p.Backoff(attempt)
	}
	return p.Delay
}

// Do runs op until it succeeds, the attempts are exhausted, or ctx is
// cancelled. The last error is returned after exhaustion.
func (p Policy) Do(ctx context.Context, op func() error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = op(); err == nil {
			return nil
		}
		if attempt == attempts {
			break
		}

		timer := time.NewTimer(p.NextDelay(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return err
}

// ExponentialSeconds returns 2^attempt seconds, the schedule used for
// customer webhook redelivery.
func ExponentialSeconds(attempt int) time.Duration {
	return time.Duration(1<<attempt) * time.Second
}
