package radio

import (
	"errors"
	"fmt"
	"time"

	"github.com/sglre6355/sgrradio/internal/modules/radio/application/session"
	"github.com/sglre6355/sgrradio/internal/modules/radio/infrastructure"
)

// Audio backends.
const (
	BackendLavalink = "lavalink"
	BackendNative   = "native"
)

// Config holds the radio module configuration.
type Config struct {
	Backend string `env:"RADIO_BACKEND" envDefault:"lavalink"`

	LavalinkAddress  string `env:"LAVALINK_ADDRESS"`
	LavalinkPassword string `env:"LAVALINK_PASSWORD"`
	LavalinkSecure   bool   `env:"LAVALINK_SECURE" envDefault:"false"`

	// Redis is optional. Without an address stations and autoplay live in memory.
	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	StationsFile string `env:"RADIO_STATIONS_FILE"`

	ReconnectBaseDelay      time.Duration `env:"RADIO_RECONNECT_BASE_DELAY" envDefault:"1s"`
	ReconnectMaxDelay       time.Duration `env:"RADIO_RECONNECT_MAX_DELAY" envDefault:"1m"`
	ReconnectMaxAttempts    int           `env:"RADIO_RECONNECT_MAX_ATTEMPTS" envDefault:"8"`
	ReconnectStabilityAfter time.Duration `env:"RADIO_RECONNECT_STABILITY_WINDOW" envDefault:"30s"`

	ConnectTimeout    time.Duration `env:"RADIO_CONNECT_TIMEOUT" envDefault:"15s"`
	StreamOpenTimeout time.Duration `env:"RADIO_STREAM_OPEN_TIMEOUT" envDefault:"15s"`
	TeardownTimeout   time.Duration `env:"RADIO_TEARDOWN_TIMEOUT" envDefault:"10s"`

	IdleReapAfter    time.Duration `env:"RADIO_IDLE_REAP_AFTER" envDefault:"10m"`
	IdleReapInterval time.Duration `env:"RADIO_IDLE_REAP_INTERVAL" envDefault:"1m"`

	StreamGracePeriod   time.Duration `env:"RADIO_STREAM_GRACE_PERIOD" envDefault:"5s"`
	StreamRetryInterval time.Duration `env:"RADIO_STREAM_RETRY_INTERVAL" envDefault:"1s"`

	AutoplayInterval time.Duration `env:"RADIO_AUTOPLAY_INTERVAL" envDefault:"10s"`
	AutoplayRate     time.Duration `env:"RADIO_AUTOPLAY_RATE" envDefault:"1s"`
}

// Validate checks settings that depend on each other.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendLavalink:
		if c.LavalinkAddress == "" || c.LavalinkPassword == "" {
			return errors.New("LAVALINK_ADDRESS and LAVALINK_PASSWORD are required for the lavalink backend")
		}
	case BackendNative:
	default:
		return fmt.Errorf("unknown RADIO_BACKEND %q, want %q or %q", c.Backend, BackendLavalink, BackendNative)
	}

	if c.ReconnectBaseDelay > c.ReconnectMaxDelay {
		return fmt.Errorf("RADIO_RECONNECT_BASE_DELAY (%s) exceeds RADIO_RECONNECT_MAX_DELAY (%s)",
			c.ReconnectBaseDelay, c.ReconnectMaxDelay)
	}
	if c.AutoplayInterval <= 0 || c.AutoplayRate <= 0 {
		return errors.New("RADIO_AUTOPLAY_INTERVAL and RADIO_AUTOPLAY_RATE must be positive")
	}
	return nil
}

// SessionConfig returns the guild session settings.
func (c *Config) SessionConfig() session.Config {
	attempts := c.ReconnectMaxAttempts
	if attempts == 0 {
		// session.Config reads zero as unset and negative as no reconnects.
		attempts = -1
	}
	return session.Config{
		BackoffBase:       c.ReconnectBaseDelay,
		BackoffMax:        c.ReconnectMaxDelay,
		MaxAttempts:       attempts,
		StabilityWindow:   c.ReconnectStabilityAfter,
		ConnectTimeout:    c.ConnectTimeout,
		StreamOpenTimeout: c.StreamOpenTimeout,
		TeardownTimeout:   c.TeardownTimeout,
		IdleReapAfter:     c.IdleReapAfter,
		ReapInterval:      c.IdleReapInterval,
	}
}

// LavalinkConfig returns the Lavalink node and stream settings.
func (c *Config) LavalinkConfig() infrastructure.LavalinkConfig {
	return infrastructure.LavalinkConfig{
		Address:             c.LavalinkAddress,
		Password:            c.LavalinkPassword,
		Secure:              c.LavalinkSecure,
		StreamGracePeriod:   c.StreamGracePeriod,
		StreamRetryInterval: c.StreamRetryInterval,
	}
}

// OggStreamConfig returns the HTTP stream settings of the native backend.
func (c *Config) OggStreamConfig() infrastructure.OggStreamConfig {
	return infrastructure.OggStreamConfig{
		GracePeriod:   c.StreamGracePeriod,
		RetryInterval: c.StreamRetryInterval,
		UserAgent:     userAgent,
	}
}
