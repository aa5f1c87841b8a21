// Package reconnect computes the backoff schedule for automatic
// reconnection after an abnormal close.
package reconnect

import (
	"errors"
	"math"
	"time"
)

// Defaults for the reconnect policy.
const (
	DefaultBaseDelay   = 1 * time.Second
	DefaultMultiplier  = 1.5
	DefaultMaxDelay    = 30 * time.Second
	DefaultMaxAttempts = 10
)

// Policy is a deterministic capped exponential backoff.
type Policy struct {
	BaseDelay   time.Duration // Delay before the first retry
	Multiplier  float64       // Growth factor per attempt
	MaxDelay    time.Duration // Ceiling for any single delay
	MaxAttempts int           // Retries allowed before giving up
}

// DefaultPolicy returns the 1s * 1.5^n policy capped at 30s, 10 attempts.
func DefaultPolicy() Policy {
	return Policy{
		BaseDelay:   DefaultBaseDelay,
		Multiplier:  DefaultMultiplier,
		MaxDelay:    DefaultMaxDelay,
		MaxAttempts: DefaultMaxAttempts,
	}
}

// NextDelay returns min(BaseDelay * Multiplier^(attempts-1), MaxDelay).
// Attempts below 1 are treated as 1.
func (p Policy) NextDelay(attempts int) time.Duration {
	if attempts < 1 {
		attempts = 1
	}

	delay := float64(p.BaseDelay) * math.Pow(p.Multiplier, float64(attempts-1))
	if delay >= float64(p.MaxDelay) || math.IsInf(delay, 1) || math.IsNaN(delay) {
		return p.MaxDelay
	}
	return time.Duration(delay)
}

// ShouldRetry reports whether another automatic attempt is permitted.
func (p Policy) ShouldRetry(attempts int, manuallyStopped bool) bool {
	if manuallyStopped {
		return false
	}
	return attempts < p.MaxAttempts
}

// Schedule returns the delay before each permitted retry, in order.
func (p Policy) Schedule() []time.Duration {
	if p.MaxAttempts <= 0 {
		return nil
	}
	out := make([]time.Duration, 0, p.MaxAttempts)
	for n := 1; n <= p.MaxAttempts; n++ {
		out = append(out, p.NextDelay(n))
	}
	return out
}

// Validate checks that the policy produces a sane schedule.
func (p Policy) Validate() error {
	if p.BaseDelay <= 0 {
		return errors.New("base_delay must be > 0")
	}
	if p.Multiplier < 1 {
		return errors.New("multiplier must be >= 1")
	}
	if p.MaxDelay < p.BaseDelay {
		return errors.New("max_delay must be >= base_delay")
	}
	if p.MaxAttempts < 0 {
		return errors.New("max_attempts must be >= 0")
	}
	return nil
}
