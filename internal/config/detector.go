package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"
)

const (
	EnvDetectorURL          = "RANCOQC_DETECTOR_URL"
	EnvDetectorTimeout      = "RANCOQC_DETECTOR_TIMEOUT"
	EnvDetectorStreamBudget = "RANCOQC_DETECTOR_STREAM_BUDGET"
	EnvDetectorWarmupFrames = "RANCOQC_DETECTOR_WARMUP_FRAMES"
	EnvDetectorConfidence   = "RANCOQC_DETECTOR_CONFIDENCE"
)

// DetectorConfig locates the detection engine the backend forwards images to.
type DetectorConfig struct {
	URL          string  `toml:"url"`
	Timeout      string  `toml:"timeout"`
	StreamBudget string  `toml:"stream_budget"`
	WarmupFrames int     `toml:"warmup_frames"`
	Confidence   float64 `toml:"confidence"`
}

// TimeoutDuration returns Timeout as a time.Duration.
func (c *DetectorConfig) TimeoutDuration() time.Duration {
	return duration(c.Timeout)
}

// StreamBudgetDuration bounds a stream capture: connection plus warm-up frames.
func (c *DetectorConfig) StreamBudgetDuration() time.Duration {
	return duration(c.StreamBudget)
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *DetectorConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *DetectorConfig) Merge(overlay *DetectorConfig) {
	if overlay.URL != "" {
		c.URL = overlay.URL
	}
	if overlay.Timeout != "" {
		c.Timeout = overlay.Timeout
	}
	if overlay.StreamBudget != "" {
		c.StreamBudget = overlay.StreamBudget
	}
	if overlay.WarmupFrames != 0 {
		c.WarmupFrames = overlay.WarmupFrames
	}
	if overlay.Confidence != 0 {
		c.Confidence = overlay.Confidence
	}
}

func (c *DetectorConfig) loadDefaults() {
	if c.URL == "" {
		c.URL = "http://localhost:5001"
	}
	if c.Timeout == "" {
		c.Timeout = "2m"
	}
	if c.StreamBudget == "" {
		c.StreamBudget = "45s"
	}
	if c.WarmupFrames == 0 {
		c.WarmupFrames = 8
	}
	if c.Confidence == 0 {
		c.Confidence = 0.8
	}
}

func (c *DetectorConfig) loadEnv() {
	if v := os.Getenv(EnvDetectorURL); v != "" {
		c.URL = v
	}
	if v := os.Getenv(EnvDetectorTimeout); v != "" {
		c.Timeout = v
	}
	if v := os.Getenv(EnvDetectorStreamBudget); v != "" {
		c.StreamBudget = v
	}
	if v := os.Getenv(EnvDetectorWarmupFrames); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.WarmupFrames = n
		}
	}
	if v := os.Getenv(EnvDetectorConfidence); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Confidence = f
		}
	}
}

func (c *DetectorConfig) validate() error {
	if _, err := url.ParseRequestURI(c.URL); err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	if _, err := time.ParseDuration(c.Timeout); err != nil {
		return fmt.Errorf("invalid timeout: %w", err)
	}
	if _, err := time.ParseDuration(c.StreamBudget); err != nil {
		return fmt.Errorf("invalid stream_budget: %w", err)
	}
	if c.WarmupFrames < 0 {
		return fmt.Errorf("warmup_frames must not be negative")
	}
	if c.Confidence <= 0 || c.Confidence > 1 {
		return fmt.Errorf("confidence must be in (0, 1]")
	}
	return nil
}
