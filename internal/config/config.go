// internal/config/config.go
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the top-level genvexctl configuration: one entry per
// physically distinct controller, plus an optional shared history sink.
type Config struct {
	Devices []DeviceConfig `yaml:"devices"`
	History HistoryConfig  `yaml:"history"`
}

// DeviceConfig describes one controller to poll. Either IP is set
// (fixed address) or Discover is true (resolved via broadcast discovery
// by DeviceID at startup) — never both, never neither.
type DeviceConfig struct {
	ID       string `yaml:"id"`
	IP       string `yaml:"ip"`
	Discover bool   `yaml:"discover"`
	Email    string `yaml:"email"`
	Model    string `yaml:"model"` // "optima270" or "optima251"
	Port     int    `yaml:"port"`

	PollIntervalMs       int `yaml:"poll_interval_ms"`
	MaxConsecutiveErrors int `yaml:"max_consecutive_errors"`

	Discovery DiscoveryConfig `yaml:"discovery"`
	Connect   ConnectConfig   `yaml:"connect"`
}

// DiscoveryConfig tunes the broadcast/unicast discovery retry schedule.
type DiscoveryConfig struct {
	TimeoutMs       int `yaml:"timeout_ms"`
	Retries         int `yaml:"retries"`
	RetryIntervalMs int `yaml:"retry_interval_ms"`
}

// ConnectConfig tunes the session's U_CONNECT handshake retry schedule.
type ConnectConfig struct {
	Retries         int `yaml:"retries"`
	RetryIntervalMs int `yaml:"retry_interval_ms"`
}

// HistoryConfig gates the optional sqlite diagnostics sink.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Load reads and unmarshals a YAML config file. It performs no
// validation; call Validate and then Normalize on the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return &cfg, nil
}
