package config

import (
	"fmt"
	"os"
	"strconv"
)

const (
	EnvCachePath        = "RANCOQC_CACHE_PATH"
	EnvCacheInMemory    = "RANCOQC_CACHE_IN_MEMORY"
	EnvCacheMaxAttempts = "RANCOQC_CACHE_MAX_ATTEMPTS"
)

// CacheConfig holds the degraded-mode pending cache settings.
type CacheConfig struct {
	Path        string `toml:"path"`
	InMemory    bool   `toml:"in_memory"`
	MaxAttempts int    `toml:"max_attempts"`
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *CacheConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites fields from overlay. InMemory always applies.
func (c *CacheConfig) Merge(overlay *CacheConfig) {
	c.InMemory = overlay.InMemory
	if overlay.Path != "" {
		c.Path = overlay.Path
	}
	if overlay.MaxAttempts != 0 {
		c.MaxAttempts = overlay.MaxAttempts
	}
}

func (c *CacheConfig) loadDefaults() {
	if c.Path == "" {
		c.Path = "data/pending"
	}
	if c.MaxAttempts == 0 {
		c.MaxAttempts = 3
	}
}

func (c *CacheConfig) loadEnv() {
	if v := os.Getenv(EnvCachePath); v != "" {
		c.Path = v
	}
	if v := os.Getenv(EnvCacheInMemory); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.InMemory = b
		}
	}
	if v := os.Getenv(EnvCacheMaxAttempts); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxAttempts = n
		}
	}
}

func (c *CacheConfig) validate() error {
	if c.MaxAttempts < 1 {
		return fmt.Errorf("max_attempts must be positive")
	}
	return nil
}
