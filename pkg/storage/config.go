package storage

import (
	"fmt"
	"os"
	"strconv"
)

// Providers supported by New.
const (
	ProviderAzure = "azure"
	ProviderS3    = "s3"
)

// Config holds blob storage parameters for either provider. Container names
// the Azure container or the S3 bucket.
type Config struct {
	Provider         string `toml:"provider"`
	Container        string `toml:"container"`
	ConnectionString string `toml:"connection_string"`
	MaxRetries       int32  `toml:"max_retries"`
	Region           string `toml:"region"`
	Endpoint         string `toml:"endpoint"`
	AccessKey        string `toml:"access_key"`
	SecretKey        string `toml:"secret_key"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	Provider         string
	Container        string
	ConnectionString string
	MaxRetries       string
	Region           string
	Endpoint         string
	AccessKey        string
	SecretKey        string
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
	for dst, v := range map[*string]string{
		&c.Provider:         overlay.Provider,
		&c.Container:        overlay.Container,
		&c.ConnectionString: overlay.ConnectionString,
		&c.Region:           overlay.Region,
		&c.Endpoint:         overlay.Endpoint,
		&c.AccessKey:        overlay.AccessKey,
		&c.SecretKey:        overlay.SecretKey,
	} {
		if v != "" {
			*dst = v
		}
	}
	if overlay.MaxRetries != 0 {
		c.MaxRetries = overlay.MaxRetries
	}
}

func (c *Config) loadDefaults() {
	if c.Provider == "" {
		c.Provider = ProviderAzure
	}
	if c.Container == "" {
		c.Container = "analysis-images"
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.Region == "" {
		c.Region = "us-east-1"
	}
}

func (c *Config) loadEnv(env *Env) {
	for dst, name := range map[*string]string{
		&c.Provider:         env.Provider,
		&c.Container:        env.Container,
		&c.ConnectionString: env.ConnectionString,
		&c.Region:           env.Region,
		&c.Endpoint:         env.Endpoint,
		&c.AccessKey:        env.AccessKey,
		&c.SecretKey:        env.SecretKey,
	} {
		if name == "" {
			continue
		}
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}
	if env.MaxRetries != "" {
		if v := os.Getenv(env.MaxRetries); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n >= 0 {
				c.MaxRetries = int32(n)
			}
		}
	}
}

func (c *Config) validate() error {
	if c.Container == "" {
		return fmt.Errorf("container required")
	}
	switch c.Provider {
	case ProviderAzure:
		if c.ConnectionString == "" {
			return fmt.Errorf("connection_string required for azure provider")
		}
	case ProviderS3:
		if c.AccessKey == "" || c.SecretKey == "" {
			return fmt.Errorf("access_key and secret_key required for s3 provider")
		}
	default:
		return fmt.Errorf("unknown provider: %q", c.Provider)
	}
	return nil
}
