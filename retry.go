package securecomm

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryPolicy describes the exponential backoff wrapped around every
// request: waits grow from InitialInterval by Multiplier up to MaxInterval,
// and at most MaxAttempts requests are made.
type RetryPolicy struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
	MaxAttempts     uint64
}

// DefaultRetryPolicy makes 5 attempts, waiting from 4s up to 30s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		InitialInterval: 4 * time.Second,
		MaxInterval:     30 * time.Second,
		Multiplier:      2,
		MaxAttempts:     5,
	}
}

// NoRetry makes a single attempt.
func NoRetry() RetryPolicy {
	return RetryPolicy{MaxAttempts: 1}
}

func (p RetryPolicy) backOff(ctx context.Context) backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		bo.InitialInterval = p.InitialInterval
	}
	if p.MaxInterval > 0 {
		bo.MaxInterval = p.MaxInterval
	}
	if p.Multiplier > 0 {
		bo.Multiplier = p.Multiplier
	}
	bo.MaxElapsedTime = 0

	if p.MaxAttempts <= 1 {
		return backoff.WithContext(&backoff.StopBackOff{}, ctx)
	}
	return backoff.WithContext(backoff.WithMaxRetries(bo, p.MaxAttempts-1), ctx)
}

// Do runs fn until it succeeds, returns a permanent error, or the attempts
// are exhausted. ProtocolErrors are never retried.
func (p RetryPolicy) Do(ctx context.Context, fn func() error, notify func(err error, wait time.Duration)) error {
	return backoff.RetryNotify(func() error {
		err := fn()
		var perr *ProtocolError
		if errors.As(err, &perr) {
			return backoff.Permanent(err)
		}
		return err
	}, p.backOff(ctx), notify)
}
