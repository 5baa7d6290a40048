package jobwatch

import (
	"fmt"
	"time"
)

// Config holds configuration for a job session and its poller.
type Config struct {
	// PollInterval is the cadence of status requests, measured from the
	// start of one request to the start of the next.
	PollInterval time.Duration

	// RequestTimeout bounds every individual call to the submission service.
	// Zero leaves calls bounded only by their context.
	RequestTimeout time.Duration

	// MinTargetChars and MaxTargetChars bound Request.TargetChars, inclusive.
	MinTargetChars int
	MaxTargetChars int

	// MaxPollFailures stops observing a job after this many consecutive
	// failed status requests. Zero retries forever.
	MaxPollFailures int
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		PollInterval:    2 * time.Second,
		RequestTimeout:  30 * time.Second,
		MinTargetChars:  100,
		MaxTargetChars:  20000,
		MaxPollFailures: 0,
	}
}

// Validate reports the first inconsistent setting.
func (c Config) Validate() error {
	switch {
	case c.PollInterval <= 0:
		return fmt.Errorf("%w: poll interval must be positive, got %s", ErrInvalidConfig, c.PollInterval)
	case c.RequestTimeout < 0:
		return fmt.Errorf("%w: request timeout must not be negative", ErrInvalidConfig)
	case c.MinTargetChars < 0:
		return fmt.Errorf("%w: min target chars must not be negative", ErrInvalidConfig)
	case c.MaxTargetChars < c.MinTargetChars:
		return fmt.Errorf("%w: max target chars %d below min %d", ErrInvalidConfig, c.MaxTargetChars, c.MinTargetChars)
	case c.MaxPollFailures < 0:
		return fmt.Errorf("%w: max poll failures must not be negative", ErrInvalidConfig)
	}
	return nil
}
