// Package backoff provides delay strategies applied by the poller after
// consecutive failed status requests. Strategies are stateless and safe for
// concurrent use.
package backoff

import (
	"math"
	"math/rand/v2"
	"time"
)

// Strategy maps a count of consecutive failures to a delay.
type Strategy interface {
	// Delay returns how long to wait after the n-th consecutive failure
	// (n starts at 1).
	Delay(failures int) time.Duration
}

// Func adapts an ordinary function to a Strategy.
type Func func(failures int) time.Duration

// Delay calls f.
func (f Func) Delay(failures int) time.Duration { return f(failures) }

// ──────────────────────────────────────────────────
// Constant
// ──────────────────────────────────────────────────

// Constant waits the same amount after every failure.
type Constant struct {
	Interval time.Duration
}

// NewConstant creates a constant strategy.
func NewConstant(interval time.Duration) *Constant {
	return &Constant{Interval: interval}
}

func (c *Constant) Delay(_ int) time.Duration { return c.Interval }

// ──────────────────────────────────────────────────
// Linear
// ──────────────────────────────────────────────────

// Linear grows by Step per failure, capped at Max when Max > 0.
type Linear struct {
	Step time.Duration
	Max  time.Duration
}

// NewLinear creates a linear strategy.
func NewLinear(step, maxDelay time.Duration) *Linear {
	return &Linear{Step: step, Max: maxDelay}
}

func (l *Linear) Delay(failures int) time.Duration {
	return clamp(l.Step*time.Duration(max(failures, 1)), l.Max)
}

// ──────────────────────────────────────────────────
// Exponential
// ──────────────────────────────────────────────────

// Exponential doubles Initial per failure, capped at Max when Max > 0.
type Exponential struct {
	Initial time.Duration
	Max     time.Duration
}

// NewExponential creates an exponential strategy.
func NewExponential(initial, maxDelay time.Duration) *Exponential {
	return &Exponential{Initial: initial, Max: maxDelay}
}

func (e *Exponential) Delay(failures int) time.Duration {
	exp := float64(max(failures, 1) - 1)
	d := float64(e.Initial) * math.Pow(2, exp)
	if e.Max > 0 && d >= float64(e.Max) {
		return e.Max
	}
	if d >= math.MaxInt64 {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(d)
}

// ──────────────────────────────────────────────────
// Jitter
// ──────────────────────────────────────────────────

// Jitter spreads another strategy's delay uniformly over
// [Base.Delay(n)*(1-Fraction), Base.Delay(n)].
type Jitter struct {
	Base     Strategy
	Fraction float64
}

// WithJitter wraps base with the given jitter fraction in [0, 1].
func WithJitter(base Strategy, fraction float64) *Jitter {
	return &Jitter{Base: base, Fraction: math.Min(math.Max(fraction, 0), 1)}
}

func (j *Jitter) Delay(failures int) time.Duration {
	d := float64(j.Base.Delay(failures))
	spread := d * j.Fraction
	return time.Duration(d - rand.Float64()*spread) //nolint:gosec // jitter does not need crypto rand
}

// DefaultStrategy is the delay used when a poller is asked to back off
// without an explicit strategy: exponential from 2s to 30s with 20% jitter.
func DefaultStrategy() Strategy {
	return WithJitter(NewExponential(2*time.Second, 30*time.Second), 0.2)
}

func clamp(d, maxDelay time.Duration) time.Duration {
	if maxDelay > 0 && d > maxDelay {
		return maxDelay
	}
	return d
}
