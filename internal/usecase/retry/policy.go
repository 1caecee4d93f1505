package retry

import (
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Policy bounds a retry loop.
type Policy struct {
	MaxAttempts int
	MinDelay    time.Duration
	MaxDelay    time.Duration
	Multiplier  float64
	// Jitter is the backoff randomization factor: each wait varies by up to ±Jitter of its interval.
	Jitter float64
}

// DefaultPolicy allows 3 attempts with backoff between 1s and 5s.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		MinDelay:    1 * time.Second,
		MaxDelay:    5 * time.Second,
		Multiplier:  2.0,
		Jitter:      0.1,
	}
}

// WithMaxAttempts returns a copy with a different attempt limit.
func (p Policy) WithMaxAttempts(n int) Policy {
	p.MaxAttempts = n
	return p
}

// WithDelays returns a copy with a different backoff window.
func (p Policy) WithDelays(minDelay, maxDelay time.Duration) Policy {
	p.MinDelay = minDelay
	p.MaxDelay = maxDelay
	return p
}

func (p Policy) normalized() Policy {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	if p.MinDelay < 0 {
		p.MinDelay = 0
	}
	if p.MaxDelay < p.MinDelay {
		p.MaxDelay = p.MinDelay
	}
	if p.Multiplier < 1 {
		p.Multiplier = 1
	}
	if p.Jitter < 0 {
		p.Jitter = 0
	}
	if p.Jitter > 1 {
		p.Jitter = 1
	}
	return p
}

// NewBackOff returns a fresh exponential backoff for one retry loop. Intervals start
// at MinDelay and grow by Multiplier up to MaxDelay; callers clamp each wait back into
// [MinDelay, MaxDelay] after randomization.
func (p Policy) NewBackOff() *backoff.ExponentialBackOff {
	p = p.normalized()
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = p.MinDelay
	bo.MaxInterval = p.MaxDelay
	bo.Multiplier = p.Multiplier
	bo.RandomizationFactor = p.Jitter
	bo.Reset()
	return bo
}

// nextDelay draws the next wait from bo, kept inside the policy window.
func (p Policy) nextDelay(bo *backoff.ExponentialBackOff) time.Duration {
	return p.clamp(bo.NextBackOff())
}

func (p Policy) clamp(d time.Duration) time.Duration {
	if d < p.MinDelay {
		return p.MinDelay
	}
	if d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}
