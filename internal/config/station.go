package config

import (
	"fmt"
	"net/url"
	"os"
	"time"
)

const (
	EnvStationServerURL    = "RANCOQC_STATION_SERVER_URL"
	EnvStationTimeout      = "RANCOQC_STATION_TIMEOUT"
	EnvStationStreamBudget = "RANCOQC_STATION_STREAM_BUDGET"
	EnvStationStatePath    = "RANCOQC_STATION_STATE_PATH"
	EnvStationToken        = "RANCOQC_STATION_TOKEN"
)

// StationConfig configures the operator workstation client.
type StationConfig struct {
	ServerURL    string `toml:"server_url"`
	Timeout      string `toml:"timeout"`
	StreamBudget string `toml:"stream_budget"`
	StatePath    string `toml:"state_path"`
	Token        string `toml:"token"`
}

// TimeoutDuration returns Timeout as a time.Duration.
func (c *StationConfig) TimeoutDuration() time.Duration {
	return duration(c.Timeout)
}

// StreamBudgetDuration returns StreamBudget as a time.Duration.
func (c *StationConfig) StreamBudgetDuration() time.Duration {
	return duration(c.StreamBudget)
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *StationConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *StationConfig) Merge(overlay *StationConfig) {
	for dst, v := range map[*string]string{
		&c.ServerURL:    overlay.ServerURL,
		&c.Timeout:      overlay.Timeout,
		&c.StreamBudget: overlay.StreamBudget,
		&c.StatePath:    overlay.StatePath,
		&c.Token:        overlay.Token,
	} {
		if v != "" {
			*dst = v
		}
	}
}

func (c *StationConfig) loadDefaults() {
	if c.ServerURL == "" {
		c.ServerURL = "http://localhost:8080"
	}
	if c.Timeout == "" {
		c.Timeout = "30s"
	}
	if c.StreamBudget == "" {
		c.StreamBudget = "1m"
	}
	if c.StatePath == "" {
		c.StatePath = ".rancoqc/station.json"
	}
}

func (c *StationConfig) loadEnv() {
	for dst, name := range map[*string]string{
		&c.ServerURL:    EnvStationServerURL,
		&c.Timeout:      EnvStationTimeout,
		&c.StreamBudget: EnvStationStreamBudget,
		&c.StatePath:    EnvStationStatePath,
		&c.Token:        EnvStationToken,
	} {
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}
}

func (c *StationConfig) validate() error {
	if _, err := url.ParseRequestURI(c.ServerURL); err != nil {
		return fmt.Errorf("invalid server_url: %w", err)
	}
	if d, err := time.ParseDuration(c.Timeout); err != nil || d <= 0 {
		return fmt.Errorf("invalid timeout: %q", c.Timeout)
	}
	if _, err := time.ParseDuration(c.StreamBudget); err != nil {
		return fmt.Errorf("invalid stream_budget: %w", err)
	}
	return nil
}
