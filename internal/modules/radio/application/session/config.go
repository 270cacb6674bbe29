package session

import "time"

// Config tunes reconnects, timeouts and reaping of guild sessions.
// Zero fields fall back to DefaultConfig.
type Config struct {
	// BackoffBase is the delay before the first reconnect attempt.
	BackoffBase time.Duration
	// BackoffMax caps the reconnect delay.
	BackoffMax time.Duration
	// MaxAttempts is how many reconnects are tried before giving up. Negative disables reconnects.
	MaxAttempts int
	// StabilityWindow is how long a session must stream before its backoff resets.
	StabilityWindow time.Duration

	ConnectTimeout    time.Duration
	StreamOpenTimeout time.Duration
	TeardownTimeout   time.Duration

	// IdleReapAfter is how long a session may sit idle before the supervisor drops it.
	IdleReapAfter time.Duration
	// ReapInterval is the period of the idle sweep.
	ReapInterval time.Duration
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		BackoffBase:       time.Second,
		BackoffMax:        time.Minute,
		MaxAttempts:       8,
		StabilityWindow:   30 * time.Second,
		ConnectTimeout:    15 * time.Second,
		StreamOpenTimeout: 15 * time.Second,
		TeardownTimeout:   10 * time.Second,
		IdleReapAfter:     10 * time.Minute,
		ReapInterval:      time.Minute,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.BackoffBase <= 0 {
		c.BackoffBase = d.BackoffBase
	}
	if c.BackoffMax <= 0 {
		c.BackoffMax = d.BackoffMax
	}
	if c.MaxAttempts == 0 {
		c.MaxAttempts = d.MaxAttempts
	}
	if c.MaxAttempts < 0 {
		c.MaxAttempts = 0
	}
	if c.StabilityWindow <= 0 {
		c.StabilityWindow = d.StabilityWindow
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = d.ConnectTimeout
	}
	if c.StreamOpenTimeout <= 0 {
		c.StreamOpenTimeout = d.StreamOpenTimeout
	}
	if c.TeardownTimeout <= 0 {
		c.TeardownTimeout = d.TeardownTimeout
	}
	if c.IdleReapAfter <= 0 {
		c.IdleReapAfter = d.IdleReapAfter
	}
	if c.ReapInterval <= 0 {
		c.ReapInterval = d.ReapInterval
	}
	return c
}
