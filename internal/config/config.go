// Package config loads layered TOML configuration for the rancoqc binaries.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"github.com/JaimeStill/rancoqc/pkg/database"
	"github.com/JaimeStill/rancoqc/pkg/events"
	"github.com/JaimeStill/rancoqc/pkg/storage"
	"github.com/JaimeStill/rancoqc/pkg/telemetry"
)

const (
	BaseConfigFile       = "config.toml"
	OverlayConfigPattern = "config.%s.toml"

	EnvRancoEnv             = "RANCOQC_ENV"
	EnvRancoShutdownTimeout = "RANCOQC_SHUTDOWN_TIMEOUT"
	EnvRancoVersion         = "RANCOQC_VERSION"
)

var databaseEnv = &database.Env{
	Host:            "RANCOQC_DB_HOST",
	Port:            "RANCOQC_DB_PORT",
	Name:            "RANCOQC_DB_NAME",
	User:            "RANCOQC_DB_USER",
	Password:        "RANCOQC_DB_PASSWORD",
	SSLMode:         "RANCOQC_DB_SSL_MODE",
	MaxOpenConns:    "RANCOQC_DB_MAX_OPEN_CONNS",
	MaxIdleConns:    "RANCOQC_DB_MAX_IDLE_CONNS",
	ConnMaxLifetime: "RANCOQC_DB_CONN_MAX_LIFETIME",
	ConnTimeout:     "RANCOQC_DB_CONN_TIMEOUT",
}

var storageEnv = &storage.Env{
	Provider:         "RANCOQC_STORAGE_PROVIDER",
	Container:        "RANCOQC_STORAGE_CONTAINER",
	ConnectionString: "RANCOQC_STORAGE_CONNECTION_STRING",
	MaxRetries:       "RANCOQC_STORAGE_MAX_RETRIES",
	Region:           "RANCOQC_STORAGE_REGION",
	Endpoint:         "RANCOQC_STORAGE_ENDPOINT",
	AccessKey:        "RANCOQC_STORAGE_ACCESS_KEY",
	SecretKey:        "RANCOQC_STORAGE_SECRET_KEY",
}

var eventsEnv = &events.Env{
	URL:           "RANCOQC_NATS_URL",
	SubjectPrefix: "RANCOQC_NATS_SUBJECT_PREFIX",
	ClientName:    "RANCOQC_NATS_CLIENT_NAME",
}

var telemetryEnv = &telemetry.Env{
	Enabled:     "RANCOQC_TRACING_ENABLED",
	ServiceName: "RANCOQC_TRACING_SERVICE_NAME",
}

// Config is the root configuration shared by the server and station binaries.
type Config struct {
	Server          ServerConfig     `toml:"server"`
	Database        database.Config  `toml:"database"`
	Storage         storage.Config   `toml:"storage"`
	API             APIConfig        `toml:"api"`
	Auth            AuthConfig       `toml:"auth"`
	Detector        DetectorConfig   `toml:"detector"`
	Cache           CacheConfig      `toml:"cache"`
	Events          events.Config    `toml:"events"`
	Telemetry       telemetry.Config `toml:"telemetry"`
	Station         StationConfig    `toml:"station"`
	ShutdownTimeout string           `toml:"shutdown_timeout"`
	Version         string           `toml:"version"`
}

// Env returns the RANCOQC_ENV value, defaulting to "local".
func (c *Config) Env() string {
	if env := os.Getenv(EnvRancoEnv); env != "" {
		return env
	}
	return "local"
}

// ShutdownTimeoutDuration returns ShutdownTimeout as a time.Duration.
func (c *Config) ShutdownTimeoutDuration() time.Duration {
	return duration(c.ShutdownTimeout)
}

// Load reads the base config (if present), applies any environment overlay,
// and finalizes every section the server needs. If no config.toml exists,
// defaults and environment variables provide all configuration.
func Load() (*Config, error) {
	cfg, err := read()
	if err != nil {
		return nil, err
	}

	if err := cfg.finalize(); err != nil {
		return nil, fmt.Errorf("finalize config: %w", err)
	}

	return cfg, nil
}

// LoadStation reads the same layered files as Load but finalizes only the
// root and station sections. Server-side credentials are never required to
// run an operator workstation.
func LoadStation() (*Config, error) {
	cfg, err := read()
	if err != nil {
		return nil, err
	}

	cfg.loadDefaults()
	cfg.loadEnv()
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("finalize config: %w", err)
	}
	if err := cfg.Telemetry.Finalize(telemetryEnv); err != nil {
		return nil, fmt.Errorf("finalize config: telemetry: %w", err)
	}
	if err := cfg.Station.Finalize(); err != nil {
		return nil, fmt.Errorf("finalize config: station: %w", err)
	}

	return cfg, nil
}

// LoadDatabase reads the layered files and finalizes only the database
// section, for tools that talk to PostgreSQL and nothing else.
func LoadDatabase() (*database.Config, error) {
	cfg, err := read()
	if err != nil {
		return nil, err
	}
	if err := cfg.Database.Finalize(databaseEnv); err != nil {
		return nil, fmt.Errorf("finalize config: database: %w", err)
	}
	return &cfg.Database, nil
}

// Merge overwrites non-zero fields from overlay across all sub-configs.
func (c *Config) Merge(overlay *Config) {
	if overlay.ShutdownTimeout != "" {
		c.ShutdownTimeout = overlay.ShutdownTimeout
	}
	if overlay.Version != "" {
		c.Version = overlay.Version
	}
	c.Server.Merge(&overlay.Server)
	c.Database.Merge(&overlay.Database)
	c.Storage.Merge(&overlay.Storage)
	c.API.Merge(&overlay.API)
	c.Auth.Merge(&overlay.Auth)
	c.Detector.Merge(&overlay.Detector)
	c.Cache.Merge(&overlay.Cache)
	c.Events.Merge(&overlay.Events)
	c.Telemetry.Merge(&overlay.Telemetry)
	c.Station.Merge(&overlay.Station)
}

func (c *Config) finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if err := c.validate(); err != nil {
		return err
	}
	if err := c.Server.Finalize(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := c.Database.Finalize(databaseEnv); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := c.Storage.Finalize(storageEnv); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	if err := c.API.Finalize(); err != nil {
		return fmt.Errorf("api: %w", err)
	}
	if err := c.Auth.Finalize(); err != nil {
		return fmt.Errorf("auth: %w", err)
	}
	if err := c.Detector.Finalize(); err != nil {
		return fmt.Errorf("detector: %w", err)
	}
	if err := c.Cache.Finalize(); err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	if err := c.Events.Finalize(eventsEnv); err != nil {
		return fmt.Errorf("events: %w", err)
	}
	if err := c.Telemetry.Finalize(telemetryEnv); err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	return nil
}

func (c *Config) loadDefaults() {
	if c.ShutdownTimeout == "" {
		c.ShutdownTimeout = "30s"
	}
	if c.Version == "" {
		c.Version = "0.1.0"
	}
}

func (c *Config) loadEnv() {
	if v := os.Getenv(EnvRancoShutdownTimeout); v != "" {
		c.ShutdownTimeout = v
	}
	if v := os.Getenv(EnvRancoVersion); v != "" {
		c.Version = v
	}
}

func (c *Config) validate() error {
	if _, err := time.ParseDuration(c.ShutdownTimeout); err != nil {
		return fmt.Errorf("invalid shutdown_timeout: %w", err)
	}
	return nil
}

// read loads .env files, then the base and overlay TOML files. Variables
// already present in the process environment take precedence over .env.
func read() (*Config, error) {
	for _, name := range []string{".env", ".env.local"} {
		if _, err := os.Stat(name); err == nil {
			if err := godotenv.Load(name); err != nil {
				return nil, fmt.Errorf("load %s: %w", name, err)
			}
		}
	}

	cfg := &Config{}

	if _, err := os.Stat(BaseConfigFile); err == nil {
		loaded, err := load(BaseConfigFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if path := overlayPath(); path != "" {
		overlay, err := load(path)
		if err != nil {
			return nil, fmt.Errorf("load overlay %s: %w", path, err)
		}
		cfg.Merge(overlay)
	}

	return cfg, nil
}

func load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return &cfg, nil
}

func overlayPath() string {
	if env := os.Getenv(EnvRancoEnv); env != "" {
		path := fmt.Sprintf(OverlayConfigPattern, env)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
