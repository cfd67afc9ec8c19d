package events

import (
	"fmt"
	"os"
	"strings"
)

// Config holds NATS connection parameters. An empty URL disables publishing.
type Config struct {
	URL           string `toml:"url"`
	SubjectPrefix string `toml:"subject_prefix"`
	ClientName    string `toml:"client_name"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	URL           string
	SubjectPrefix string
	ClientName    string
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize(env *Env) error {
	c.loadDefaults()
	if env != nil {
		c.loadEnv(env)
	}
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *Config) Merge(overlay *Config) {
	if overlay.URL != "" {
		c.URL = overlay.URL
	}
	if overlay.SubjectPrefix != "" {
		c.SubjectPrefix = overlay.SubjectPrefix
	}
	if overlay.ClientName != "" {
		c.ClientName = overlay.ClientName
	}
}

// Enabled reports whether a NATS URL is configured.
func (c *Config) Enabled() bool {
	return c.URL != ""
}

func (c *Config) loadDefaults() {
	if c.SubjectPrefix == "" {
		c.SubjectPrefix = "rancoqc"
	}
	if c.ClientName == "" {
		c.ClientName = "rancoqc-server"
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.URL != "" {
		if v := os.Getenv(env.URL); v != "" {
			c.URL = v
		}
	}
	if env.SubjectPrefix != "" {
		if v := os.Getenv(env.SubjectPrefix); v != "" {
			c.SubjectPrefix = v
		}
	}
	if env.ClientName != "" {
		if v := os.Getenv(env.ClientName); v != "" {
			c.ClientName = v
		}
	}
}

func (c *Config) validate() error {
	if strings.ContainsAny(c.SubjectPrefix, " *>") {
		return fmt.Errorf("invalid subject_prefix: %q", c.SubjectPrefix)
	}
	return nil
}
