package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"
)

var (
	ErrConfigNotFound = errors.New("configuration not found")
	ErrInvalidConfig  = errors.New("invalid configuration")
)

const (
	DefaultURL            = "ws://localhost:3000/ws"
	DefaultReconnectDelay = 3 * time.Second

	// Time allowed to write a message to the server.
	DefaultWriteWait = 10 * time.Second

	// Time allowed to read the next pong message from the server.
	DefaultPongWait = 60 * time.Second

	// Maximum inbound frame size. GameState snapshots carry the whole room.
	DefaultMaxMessageSize = 64 * 1024

	DefaultHandshakeTimeout = 10 * time.Second
	DefaultSendBuffer       = 256
)

// Duration is a time.Duration that reads "3s" or 3000 (milliseconds) from JSON
type Duration time.Duration

// UnmarshalJSON implements json.Unmarshaler
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*d = Duration(parsed)
		return nil
	}

	var ms int64
	if err := json.Unmarshal(data, &ms); err != nil {
		return fmt.Errorf("invalid duration %s", data)
	}
	*d = Duration(time.Duration(ms) * time.Millisecond)
	return nil
}

// MarshalJSON implements json.Marshaler
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// Std returns the value as a time.Duration
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config describes one game server endpoint and how to stay connected to it
type Config struct {
	Name              string   `json:"name,omitempty"`
	URL               string   `json:"url"`
	ReconnectDelay    Duration `json:"reconnect_delay"`
	MaxReconnectDelay Duration `json:"max_reconnect_delay"`
	ReconnectFactor   float64  `json:"reconnect_factor"`
	WriteWait         Duration `json:"write_wait"`
	PongWait          Duration `json:"pong_wait"`
	MaxMessageSize    int64    `json:"max_message_size"`
	HandshakeTimeout  Duration `json:"handshake_timeout"`
	SendBuffer        int      `json:"send_buffer"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Name:              "default",
		URL:               DefaultURL,
		ReconnectDelay:    Duration(DefaultReconnectDelay),
		MaxReconnectDelay: Duration(DefaultReconnectDelay),
		ReconnectFactor:   1,
		WriteWait:         Duration(DefaultWriteWait),
		PongWait:          Duration(DefaultPongWait),
		MaxMessageSize:    DefaultMaxMessageSize,
		HandshakeTimeout:  Duration(DefaultHandshakeTimeout),
		SendBuffer:        DefaultSendBuffer,
	}
}

// PingPeriod is how often the client pings. Must be less than PongWait.
func (c *Config) PingPeriod() time.Duration {
	return (c.PongWait.Std() * 9) / 10
}

// Validate checks the configuration for usable values
func (c *Config) Validate() error {
	u, err := url.Parse(c.URL)
	if err != nil {
		return fmt.Errorf("%w: url: %v", ErrInvalidConfig, err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("%w: url scheme must be ws or wss, got %q", ErrInvalidConfig, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: url has no host", ErrInvalidConfig)
	}

	if c.ReconnectDelay <= 0 {
		return fmt.Errorf("%w: reconnect_delay must be positive", ErrInvalidConfig)
	}
	if c.MaxReconnectDelay < c.ReconnectDelay {
		return fmt.Errorf("%w: max_reconnect_delay must be >= reconnect_delay", ErrInvalidConfig)
	}
	if c.ReconnectFactor < 1 {
		return fmt.Errorf("%w: reconnect_factor must be >= 1", ErrInvalidConfig)
	}
	if c.WriteWait <= 0 || c.PongWait <= 0 || c.HandshakeTimeout <= 0 {
		return fmt.Errorf("%w: timeouts must be positive", ErrInvalidConfig)
	}
	if c.MaxMessageSize <= 0 {
		return fmt.Errorf("%w: max_message_size must be positive", ErrInvalidConfig)
	}
	if c.SendBuffer <= 0 {
		return fmt.Errorf("%w: send_buffer must be positive", ErrInvalidConfig)
	}
	return nil
}

// Parse reads a JSON profile on top of the defaults and validates it
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// A profile that only raises the delay keeps a fixed backoff
	if cfg.MaxReconnectDelay < cfg.ReconnectDelay {
		cfg.MaxReconnectDelay = cfg.ReconnectDelay
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile reads and validates a single JSON profile
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// ApplyEnv overrides fields from SCRIBBLE_URL and SCRIBBLE_RECONNECT_DELAY
// (a duration string or milliseconds).
func (c *Config) ApplyEnv() error {
	if v := os.Getenv("SCRIBBLE_URL"); v != "" {
		c.URL = v
	}
	if v := os.Getenv("SCRIBBLE_RECONNECT_DELAY"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			ms, convErr := strconv.ParseInt(v, 10, 64)
			if convErr != nil {
				return fmt.Errorf("%w: SCRIBBLE_RECONNECT_DELAY: %v", ErrInvalidConfig, err)
			}
			d = time.Duration(ms) * time.Millisecond
		}
		c.ReconnectDelay = Duration(d)
		if c.MaxReconnectDelay < c.ReconnectDelay {
			c.MaxReconnectDelay = c.ReconnectDelay
		}
	}
	return c.Validate()
}
