// Package config loads and validates the YAML configuration of a USRP link.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dbehnke/usrp-link/internal/logging"
	"github.com/dbehnke/usrp-link/pkg/engine"
)

// Config represents the complete link configuration
type Config struct {
	Node        string         `yaml:"node"`
	AudioDevice string         `yaml:"audio_device"` // [USRP/]HOST:OUTPORT:INPORT
	BindAddress string         `yaml:"bind_address"`
	PipeDir     string         `yaml:"pipe_dir"`
	AudioPort   string         `yaml:"audio_port,omitempty"` // device path replacing the named pipes
	Identity    IdentityConfig `yaml:"identity"`
	Timing      TimingConfig   `yaml:"timing"`
	VOX         VOXConfig      `yaml:"vox"`
	Metrics     MetricsConfig  `yaml:"metrics"`
	Logging     logging.Config `yaml:"logging"`
}

// IdentityConfig is announced to the peer at every key-up
type IdentityConfig struct {
	Callsign   string `yaml:"callsign"`
	DMRID      uint32 `yaml:"dmr_id"`
	RepeaterID uint32 `yaml:"repeater_id"`
	TalkGroup  uint32 `yaml:"talkgroup"`
}

// TimingConfig holds the receive wait intervals
type TimingConfig struct {
	IdleInterval   time.Duration `yaml:"idle_interval"`
	ActiveInterval time.Duration `yaml:"active_interval"`
}

// VOXConfig controls voice-operated keying of local audio
type VOXConfig struct {
	HangTime time.Duration `yaml:"hang_time"` // silence before unkeying
}

// MetricsConfig contains the Prometheus endpoint configuration
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
}

// Default returns a configuration matching a stock AllStarLink USRP channel.
func Default() *Config {
	return &Config{
		Node:        "1999",
		AudioDevice: "USRP/127.0.0.1:34001:32001",
		BindAddress: "0.0.0.0",
		PipeDir:     "/tmp",
		Identity: IdentityConfig{
			Callsign: "N0CALL",
		},
		Timing: TimingConfig{
			IdleInterval:   engine.DefaultIdleInterval,
			ActiveInterval: engine.DefaultActiveInterval,
		},
		VOX: VOXConfig{
			HangTime: 500 * time.Millisecond,
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Address: ":9090",
		},
		Logging: logging.Config{
			Level:  "info",
			Format: "text",
			Output: "stdout",
		},
	}
}

// Load reads the configuration file. Missing fields keep their Default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", path, err)
	}
	return nil
}

// Validate performs validation of every section
func (c *Config) Validate() error {
	if c.Node == "" {
		return fmt.Errorf("node cannot be empty")
	}
	if _, err := engine.ParseDevice(c.AudioDevice); err != nil {
		return err
	}
	if c.AudioPort != "" && !filepath.IsAbs(c.AudioPort) {
		return fmt.Errorf("audio_port must be an absolute path, got %q", c.AudioPort)
	}
	if err := c.Identity.Validate(); err != nil {
		return fmt.Errorf("identity config: %w", err)
	}
	if err := c.Timing.Validate(); err != nil {
		return fmt.Errorf("timing config: %w", err)
	}
	if c.VOX.HangTime <= 0 {
		return fmt.Errorf("vox config: hang_time must be positive, got %s", c.VOX.HangTime)
	}
	if c.Metrics.Enabled && c.Metrics.Address == "" {
		return fmt.Errorf("metrics config: address cannot be empty when enabled")
	}
	if err := validateLogging(c.Logging); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}
	return nil
}

// Validate validates the station identity
func (i *IdentityConfig) Validate() error {
	if len(i.Callsign) > 15 {
		return fmt.Errorf("callsign must be at most 15 characters, got %q", i.Callsign)
	}
	if i.DMRID > 0xFFFFFF {
		return fmt.Errorf("dmr_id must fit in 24 bits, got %d", i.DMRID)
	}
	if i.TalkGroup > 0xFFFFFF {
		return fmt.Errorf("talkgroup must fit in 24 bits, got %d", i.TalkGroup)
	}
	return nil
}

// Validate validates the receive intervals
func (t *TimingConfig) Validate() error {
	if t.IdleInterval <= 0 {
		return fmt.Errorf("idle_interval must be positive, got %s", t.IdleInterval)
	}
	if t.ActiveInterval < t.IdleInterval {
		return fmt.Errorf("active_interval must be at least idle_interval, got %s", t.ActiveInterval)
	}
	return nil
}

func validateLogging(l logging.Config) error {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[l.Level] {
		return fmt.Errorf("level must be one of [debug, info, warn, error], got '%s'", l.Level)
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("format must be 'json' or 'text', got '%s'", l.Format)
	}
	return nil
}

// EngineConfig converts the file configuration to the engine's.
func (c *Config) EngineConfig() engine.Config {
	return engine.Config{
		Node:        c.Node,
		AudioDevice: c.AudioDevice,
		BindAddress: c.BindAddress,
		PipeDir:     c.PipeDir,
		AudioPort:   c.AudioPort,
		Identity: engine.Identity{
			Callsign:   c.Identity.Callsign,
			DMRID:      c.Identity.DMRID,
			RepeaterID: c.Identity.RepeaterID,
			TalkGroup:  c.Identity.TalkGroup,
		},
		IdleInterval:   c.Timing.IdleInterval,
		ActiveInterval: c.Timing.ActiveInterval,
	}
}
