package webcheck

import (
	"fmt"
	"time"
)

const (
	// DefaultTimeout bounds every wait unless overridden per call.
	DefaultTimeout = 10 * time.Second
	// DefaultInterval is the polling interval of every wait.
	DefaultInterval = 100 * time.Millisecond
	// DefaultNewWindowGrace is how long a link check waits for a new window
	// before looking for an in-place navigation instead.
	DefaultNewWindowGrace = 2 * time.Second
)

// Config holds the timing parameters of a Harness.
type Config struct {
	Timeout        time.Duration
	Interval       time.Duration
	NewWindowGrace time.Duration
}

// DefaultConfig returns the configuration used when none is supplied.
func DefaultConfig() Config {
	return Config{
		Timeout:        DefaultTimeout,
		Interval:       DefaultInterval,
		NewWindowGrace: DefaultNewWindowGrace,
	}
}

// withDefaults fills unset fields from DefaultConfig.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Timeout == 0 {
		c.Timeout = d.Timeout
	}
	if c.Interval == 0 {
		c.Interval = d.Interval
	}
	if c.NewWindowGrace == 0 {
		c.NewWindowGrace = d.NewWindowGrace
	}
	return c
}

// Validate reports whether the configuration is usable. Zero fields are
// valid and mean "use the default".
func (c Config) Validate() error {
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative, got %v", c.Timeout)
	}
	if c.Interval < 0 {
		return fmt.Errorf("interval must not be negative, got %v", c.Interval)
	}
	if c.NewWindowGrace < 0 {
		return fmt.Errorf("new window grace must not be negative, got %v", c.NewWindowGrace)
	}
	c = c.withDefaults()
	if c.Interval > c.Timeout {
		return fmt.Errorf("interval %v exceeds timeout %v", c.Interval, c.Timeout)
	}
	if c.NewWindowGrace > c.Timeout {
		return fmt.Errorf("new window grace %v exceeds timeout %v", c.NewWindowGrace, c.Timeout)
	}
	return nil
}
