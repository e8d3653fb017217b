// Package config loads the YAML application configuration.
package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// NTPConfig tunes the network time client.
type NTPConfig struct {
	// Server is the NTP pool or host to query.
	Server string `yaml:"server"`
	// TimeoutMS bounds a single exchange.
	TimeoutMS int `yaml:"timeout_ms"`
	// ResyncMinutes spaces sync attempts (and reconnect retries after a
	// failure).
	ResyncMinutes int `yaml:"resync_minutes"`
}

// SPIConfig selects the hardware port.
type SPIConfig struct {
	// Port is a periph spireg name, e.g. "SPI0.0". Empty picks the first
	// registered port.
	Port string `yaml:"port"`
}

// Config is the top-level application configuration.
type Config struct {
	Driver  string `yaml:"driver"` // "spi" | "sim"
	Listen  string `yaml:"listen"`
	Modules int    `yaml:"modules"` // cascaded 8x8 modules

	// SettingsPath locates the persisted user-settings blob.
	SettingsPath string `yaml:"settings_path"`

	// DST applies a one-hour daylight-saving shift before formatting.
	DST bool `yaml:"dst"`

	NTP NTPConfig `yaml:"ntp"`
	SPI SPIConfig `yaml:"spi,omitempty"`
}

// DefaultConfig returns the in-memory defaults: a 4-module chain synced
// against pool.ntp.org every five minutes.
func DefaultConfig() *Config {
	return &Config{
		Driver:       "spi",
		Listen:       "127.0.0.1:8080",
		Modules:      4,
		SettingsPath: "/var/lib/matrixclock/settings.bin",
		NTP: NTPConfig{
			Server:        "pool.ntp.org",
			TimeoutMS:     2000,
			ResyncMinutes: 5,
		},
	}
}

// Normalize fills missing or zero values so partial config files keep
// working.
func (c *Config) Normalize() {
	d := DefaultConfig()
	if c.Driver == "" {
		c.Driver = d.Driver
	}
	if c.Listen == "" {
		c.Listen = d.Listen
	}
	if c.Modules <= 0 {
		c.Modules = d.Modules
	}
	if c.SettingsPath == "" {
		c.SettingsPath = d.SettingsPath
	}
	if c.NTP.Server == "" {
		c.NTP.Server = d.NTP.Server
	}
	if c.NTP.TimeoutMS <= 0 {
		c.NTP.TimeoutMS = d.NTP.TimeoutMS
	}
	if c.NTP.ResyncMinutes <= 0 {
		c.NTP.ResyncMinutes = d.NTP.ResyncMinutes
	}
}

func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}
	c.Normalize()
	return &c, nil
}

func Save(path string, c *Config) error {
	b, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}
