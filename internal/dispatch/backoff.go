package dispatch

import (
	"math"
	"math/rand/v2"
	"time"
)

// Backoff computes the delay before a retry attempt. Attempt 1 is the
// first retry after the initial failure. Implementations are stateless
// and safe for concurrent use.
type Backoff interface {
	Delay(attempt int) time.Duration
}

// ConstantBackoff always returns the same delay.
type ConstantBackoff struct {
	Interval time.Duration
}

func (c ConstantBackoff) Delay(_ int) time.Duration { return c.Interval }

// ExponentialBackoff doubles the delay each attempt:
// min(Initial * 2^(attempt-1), Max).
type ExponentialBackoff struct {
	Initial time.Duration
	Max     time.Duration
}

func (e ExponentialBackoff) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := time.Duration(float64(e.Initial) * math.Pow(2, float64(attempt-1)))
	if e.Max > 0 && d > e.Max {
		return e.Max
	}
	return d
}

// JitterBackoff applies full jitter to an exponential base, spreading
// simultaneous retries apart.
type JitterBackoff struct {
	Initial time.Duration
	Max     time.Duration
}

func (j JitterBackoff) Delay(attempt int) time.Duration {
	base := float64(ExponentialBackoff{Initial: j.Initial, Max: j.Max}.Delay(attempt))
	return time.Duration(rand.Float64() * base)
}

// DefaultBackoff is the dispatcher default: exponential from 1s capped
// at 1m.
func DefaultBackoff() Backoff {
	return ExponentialBackoff{Initial: time.Second, Max: time.Minute}
}
