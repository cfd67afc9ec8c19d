// Package pagination sizes list reads: numbered pages for browsing and
// capped limits for newest-first history reads.
package pagination

import (
	"fmt"
	"os"
	"strconv"
)

// Config bounds page sizes and history limits.
type Config struct {
	DefaultPageSize int `toml:"default_page_size"`
	MaxPageSize     int `toml:"max_page_size"`
	DefaultLimit    int `toml:"default_limit"`
	MaxLimit        int `toml:"max_limit"`
}

// ConfigEnv names the environment variables that override Config.
type ConfigEnv struct {
	DefaultPageSize string
	MaxPageSize     string
	DefaultLimit    string
	MaxLimit        string
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize(env *ConfigEnv) error {
	c.loadDefaults()
	if env != nil {
		c.loadEnv(env)
	}
	return c.validate()
}

// Merge applies non-zero values from overlay.
func (c *Config) Merge(overlay *Config) {
	for dst, v := range c.fields(overlay) {
		if v != 0 {
			*dst = v
		}
	}
}

// Limit parses a requested row cap. Missing, malformed or non-positive
// values yield DefaultLimit; larger values are clamped to MaxLimit.
func (c Config) Limit(raw string) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return c.DefaultLimit
	}
	return min(n, c.MaxLimit)
}

func (c *Config) fields(o *Config) map[*int]int {
	return map[*int]int{
		&c.DefaultPageSize: o.DefaultPageSize,
		&c.MaxPageSize:     o.MaxPageSize,
		&c.DefaultLimit:    o.DefaultLimit,
		&c.MaxLimit:        o.MaxLimit,
	}
}

func (c *Config) loadDefaults() {
	defaults := Config{DefaultPageSize: 20, MaxPageSize: 100, DefaultLimit: 50, MaxLimit: 500}
	for dst, v := range c.fields(&defaults) {
		if *dst <= 0 {
			*dst = v
		}
	}
}

func (c *Config) loadEnv(env *ConfigEnv) {
	for dst, name := range map[*int]string{
		&c.DefaultPageSize: env.DefaultPageSize,
		&c.MaxPageSize:     env.MaxPageSize,
		&c.DefaultLimit:    env.DefaultLimit,
		&c.MaxLimit:        env.MaxLimit,
	} {
		if name == "" {
			continue
		}
		if n, err := strconv.Atoi(os.Getenv(name)); err == nil {
			*dst = n
		}
	}
}

func (c *Config) validate() error {
	if c.DefaultPageSize < 1 || c.MaxPageSize < 1 {
		return fmt.Errorf("page sizes must be positive")
	}
	if c.DefaultPageSize > c.MaxPageSize {
		return fmt.Errorf("default_page_size cannot exceed max_page_size")
	}
	if c.DefaultLimit < 1 || c.MaxLimit < 1 {
		return fmt.Errorf("history limits must be positive")
	}
	if c.DefaultLimit > c.MaxLimit {
		return fmt.Errorf("default_limit cannot exceed max_limit")
	}
	return nil
}
