package config

import "time"

// Config is the startup configuration for the resilience core. Stores read
// it once at construction; the only setting applied live on reload is the
// logging section.
//
// All durations are Go duration strings (e.g. "500ms", "10s", "1m").
type Config struct {
	Stream   StreamConfig   `json:"stream"`
	Buffer   BufferConfig   `json:"buffer,omitempty"`
	Breaker  BreakerConfig  `json:"breaker,omitempty"`
	Notices  NoticesConfig  `json:"notices,omitempty"`
	Security SecurityConfig `json:"security,omitempty"`
	Push     PushConfig     `json:"push,omitempty"`
	Logging  LoggingConfig  `json:"logging,omitempty"`
}

// StreamConfig points the SSE client at the backend event stream.
type StreamConfig struct {
	URL string `json:"url"`

	// ReconnectBase is the first retry delay; it doubles per attempt up to
	// ReconnectMax.
	ReconnectBase string `json:"reconnect_base,omitempty"`
	ReconnectMax  string `json:"reconnect_max,omitempty"`
}

type BufferConfig struct {
	// Capacity bounds the event history (default 20).
	Capacity int `json:"capacity,omitempty"`
}

type BreakerConfig struct {
	// Threshold is the failure count a component may reach before its
	// breaker opens (default 5).
	Threshold int    `json:"threshold,omitempty"`
	Cooldown  string `json:"cooldown,omitempty"`
}

type NoticesConfig struct {
	DefaultDuration string `json:"default_duration,omitempty"`
	RatePerSec      int    `json:"rate_per_sec,omitempty"`
}

type SecurityConfig struct {
	// AllowedOrigins is the handshake origin allow-list for push
	// connections. Empty means nothing is accepted outside dev mode.
	AllowedOrigins []string `json:"allowed_origins,omitempty"`

	// DevMode disables origin checking entirely (local development only).
	DevMode bool `json:"dev_mode,omitempty"`
}

// PushConfig optionally runs a local listener that accepts websocket pushes
// from the backend instead of (or alongside) the SSE pull.
type PushConfig struct {
	Enabled bool   `json:"enabled,omitempty"`
	Listen  string `json:"listen,omitempty"`
	Path    string `json:"path,omitempty"`
}

type LoggingConfig struct {
	Level   string     `json:"level,omitempty"`
	Console bool       `json:"console,omitempty"`
	File    FileConfig `json:"file,omitempty"`
}

type FileConfig struct {
	Enabled bool   `json:"enabled,omitempty"`
	Path    string `json:"path,omitempty"`
}

// Default returns a config with every knob at its documented default.
func Default() *Config {
	return &Config{
		Stream: StreamConfig{
			ReconnectBase: "1s",
			ReconnectMax:  "30s",
		},
		Buffer:  BufferConfig{Capacity: 20},
		Breaker: BreakerConfig{Threshold: 5, Cooldown: "60s"},
		Notices: NoticesConfig{DefaultDuration: "5s", RatePerSec: 3},
		Push:    PushConfig{Path: "/push"},
		Logging: LoggingConfig{Level: "info", Console: true},
	}
}

// Validate parses every duration field so bad values fail at startup, not
// mid-reconnect.
func (c *Config) Validate() error {
	if _, err := ParseDurationOrDefault("stream.reconnect_base", c.Stream.ReconnectBase, time.Second); err != nil {
		return err
	}
	if _, err := ParseDurationOrDefault("stream.reconnect_max", c.Stream.ReconnectMax, 30*time.Second); err != nil {
		return err
	}
	if _, err := ParseDurationOrDefault("breaker.cooldown", c.Breaker.Cooldown, 60*time.Second); err != nil {
		return err
	}
	if _, err := ParseDurationOrDefault("notices.default_duration", c.Notices.DefaultDuration, 5*time.Second); err != nil {
		return err
	}
	return nil
}

// Parsed duration accessors. Safe after Validate; on a value that never went
// through Validate they fall back to the default silently.

func (c *Config) ReconnectBase() time.Duration {
	d, _ := ParseDurationOrDefault("stream.reconnect_base", c.Stream.ReconnectBase, time.Second)
	return d
}

func (c *Config) ReconnectMax() time.Duration {
	d, _ := ParseDurationOrDefault("stream.reconnect_max", c.Stream.ReconnectMax, 30*time.Second)
	return d
}

func (c *Config) BreakerCooldown() time.Duration {
	d, _ := ParseDurationOrDefault("breaker.cooldown", c.Breaker.Cooldown, 60*time.Second)
	return d
}

func (c *Config) NoticeDuration() time.Duration {
	d, _ := ParseDurationOrDefault("notices.default_duration", c.Notices.DefaultDuration, 5*time.Second)
	return d
}
