package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultListen          = ":3001"
	DefaultSendBuffer      = 256
	DefaultPingInterval    = 30 * time.Second
	DefaultMaxMessageBytes = 1 << 20
	DefaultRedisChannel    = "collabboard:events"
)

// BoardConfig represents the top-level collabboard.yml configuration
type BoardConfig struct {
	Version   string           `yaml:"version"`
	LogLevel  string           `yaml:"log_level,omitempty"`
	Relay     *RelayConfig     `yaml:"relay,omitempty"`
	Discovery *DiscoveryConfig `yaml:"discovery,omitempty"`
	Redis     *RedisConfig     `yaml:"redis,omitempty"`
}

// RelayConfig controls the websocket relay.
type RelayConfig struct {
	Listen          string    `yaml:"listen"`
	SendBuffer      int       `yaml:"send_buffer,omitempty"`       // Per-peer outbound queue length
	PingInterval    *Duration `yaml:"ping_interval,omitempty"`     // 0 disables heartbeats
	MaxMessageBytes int64     `yaml:"max_message_bytes,omitempty"` // Frames above this close the connection
	SeedWelcomeNote *bool     `yaml:"seed_welcome_note,omitempty"`
}

// Duration is a time.Duration that reads either a Go duration string ("30s")
// or a bare integer number of seconds from YAML.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: duration must be a scalar", node.Line)
	}
	if node.Tag == "!!int" {
		secs, err := strconv.ParseInt(node.Value, 0, 64)
		if err != nil {
			return fmt.Errorf("line %d: invalid duration %q: %w", node.Line, node.Value, err)
		}
		*d = Duration(time.Duration(secs) * time.Second)
		return nil
	}
	parsed, err := time.ParseDuration(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: invalid duration %q: %w", node.Line, node.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// DiscoveryConfig controls mDNS advertisement of the relay.
type DiscoveryConfig struct {
	MDNS     *bool  `yaml:"mdns,omitempty"`
	Instance string `yaml:"instance,omitempty"` // Defaults to the hostname
}

// RedisConfig enables the optional event tap.
type RedisConfig struct {
	URL     string `yaml:"url,omitempty"`
	Channel string `yaml:"channel,omitempty"`
}

// Default returns a configuration with every default applied.
func Default() *BoardConfig {
	c := &BoardConfig{Version: "1.0"}
	if err := c.Validate(); err != nil {
		panic(err)
	}
	return c
}

// Validate checks the configuration and fills in defaults for anything left unset.
func (c *BoardConfig) Validate() error {
	if c.Version == "" {
		c.Version = "1.0"
	}
	if c.Version != "1.0" {
		return fmt.Errorf("unsupported version: %s (expected: 1.0)", c.Version)
	}

	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}

	if c.Relay == nil {
		c.Relay = &RelayConfig{}
	}
	if err := c.Relay.validate(); err != nil {
		return err
	}

	if c.Discovery == nil {
		c.Discovery = &DiscoveryConfig{}
	}
	if c.Discovery.MDNS == nil {
		enabled := true
		c.Discovery.MDNS = &enabled
	}

	if c.Redis == nil {
		c.Redis = &RedisConfig{}
	}
	if c.Redis.Channel == "" {
		c.Redis.Channel = DefaultRedisChannel
	}

	return nil
}

func (r *RelayConfig) validate() error {
	if r.Listen == "" {
		r.Listen = DefaultListen
	}
	if r.SendBuffer == 0 {
		r.SendBuffer = DefaultSendBuffer
	}
	if r.SendBuffer < 0 {
		return fmt.Errorf("relay.send_buffer must be > 0, got %d", r.SendBuffer)
	}
	if r.PingInterval == nil {
		interval := Duration(DefaultPingInterval)
		r.PingInterval = &interval
	}
	if *r.PingInterval < 0 {
		return fmt.Errorf("relay.ping_interval must be >= 0 (0 or 0s = disabled), got %s", time.Duration(*r.PingInterval))
	}
	if r.MaxMessageBytes == 0 {
		r.MaxMessageBytes = DefaultMaxMessageBytes
	}
	if r.MaxMessageBytes < 0 {
		return fmt.Errorf("relay.max_message_bytes must be > 0, got %d", r.MaxMessageBytes)
	}
	if r.SeedWelcomeNote == nil {
		seed := true
		r.SeedWelcomeNote = &seed
	}
	return nil
}

// SlogLevel maps log_level onto a slog level.
func (c *BoardConfig) SlogLevel() (slog.Level, error) {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log_level: %s (expected debug, info, warn or error)", c.LogLevel)
}

// Heartbeat returns the relay ping interval; 0 means disabled.
func (c *BoardConfig) Heartbeat() time.Duration {
	if c.Relay == nil || c.Relay.PingInterval == nil {
		return 0
	}
	return time.Duration(*c.Relay.PingInterval)
}

// MDNSEnabled reports whether the relay should advertise itself.
func (c *BoardConfig) MDNSEnabled() bool {
	return c.Discovery != nil && c.Discovery.MDNS != nil && *c.Discovery.MDNS
}

// SeedWelcomeNote reports whether a fresh store starts with the welcome note.
func (c *BoardConfig) SeedWelcomeNote() bool {
	return c.Relay != nil && c.Relay.SeedWelcomeNote != nil && *c.Relay.SeedWelcomeNote
}

// Load reads, parses and validates a configuration file.
func Load(path string) (*BoardConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config BoardConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}
