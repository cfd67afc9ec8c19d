package config

import (
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	EnvServerHost              = "RANCOQC_SERVER_HOST"
	EnvServerPort              = "RANCOQC_SERVER_PORT"
	EnvServerReadTimeout       = "RANCOQC_SERVER_READ_TIMEOUT"
	EnvServerReadHeaderTimeout = "RANCOQC_SERVER_READ_HEADER_TIMEOUT"
	EnvServerWriteTimeout      = "RANCOQC_SERVER_WRITE_TIMEOUT"
	EnvServerIdleTimeout       = "RANCOQC_SERVER_IDLE_TIMEOUT"
	EnvServerShutdownTimeout   = "RANCOQC_SERVER_SHUTDOWN_TIMEOUT"
	EnvServerLogLevel          = "RANCOQC_LOG_LEVEL"
	EnvServerLogFormat         = "RANCOQC_LOG_FORMAT"
)

// ServerConfig holds the backend listener and its log output.
//
// ReadTimeout covers full image uploads from the stations, so it is larger
// than ReadHeaderTimeout. WriteTimeout must outlast a detector round trip.
type ServerConfig struct {
	Host              string `toml:"host"`
	Port              int    `toml:"port"`
	ReadTimeout       string `toml:"read_timeout"`
	ReadHeaderTimeout string `toml:"read_header_timeout"`
	WriteTimeout      string `toml:"write_timeout"`
	IdleTimeout       string `toml:"idle_timeout"`
	ShutdownTimeout   string `toml:"shutdown_timeout"`
	LogLevel          string `toml:"log_level"`
	LogFormat         string `toml:"log_format"`
}

func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func (c *ServerConfig) ReadTimeoutDuration() time.Duration       { return duration(c.ReadTimeout) }
func (c *ServerConfig) ReadHeaderTimeoutDuration() time.Duration { return duration(c.ReadHeaderTimeout) }
func (c *ServerConfig) WriteTimeoutDuration() time.Duration      { return duration(c.WriteTimeout) }
func (c *ServerConfig) IdleTimeoutDuration() time.Duration       { return duration(c.IdleTimeout) }
func (c *ServerConfig) ShutdownTimeoutDuration() time.Duration   { return duration(c.ShutdownTimeout) }

// Logger builds the process logger from LogLevel and LogFormat.
func (c *ServerConfig) Logger(w io.Writer) *slog.Logger {
	var level slog.Level
	_ = level.UnmarshalText([]byte(c.LogLevel))

	opts := &slog.HandlerOptions{Level: level}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *ServerConfig) Finalize() error {
	c.loadDefaults()
	if err := c.loadEnv(); err != nil {
		return err
	}
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *ServerConfig) Merge(overlay *ServerConfig) {
	if overlay.Port != 0 {
		c.Port = overlay.Port
	}
	for dst, v := range c.stringFields(overlay) {
		if v != "" {
			*dst = v
		}
	}
}

// stringFields pairs each string field of c with the matching field of src.
func (c *ServerConfig) stringFields(src *ServerConfig) map[*string]string {
	return map[*string]string{
		&c.Host:              src.Host,
		&c.ReadTimeout:       src.ReadTimeout,
		&c.ReadHeaderTimeout: src.ReadHeaderTimeout,
		&c.WriteTimeout:      src.WriteTimeout,
		&c.IdleTimeout:       src.IdleTimeout,
		&c.ShutdownTimeout:   src.ShutdownTimeout,
		&c.LogLevel:          src.LogLevel,
		&c.LogFormat:         src.LogFormat,
	}
}

func (c *ServerConfig) loadDefaults() {
	defaults := ServerConfig{
		Host:              "0.0.0.0",
		Port:              8080,
		ReadTimeout:       "1m",
		ReadHeaderTimeout: "10s",
		WriteTimeout:      "3m",
		IdleTimeout:       "2m",
		ShutdownTimeout:   "30s",
		LogLevel:          "info",
		LogFormat:         "text",
	}
	if c.Port == 0 {
		c.Port = defaults.Port
	}
	for dst, v := range c.stringFields(&defaults) {
		if *dst == "" {
			*dst = v
		}
	}
}

func (c *ServerConfig) loadEnv() error {
	env := ServerConfig{
		Host:              os.Getenv(EnvServerHost),
		ReadTimeout:       os.Getenv(EnvServerReadTimeout),
		ReadHeaderTimeout: os.Getenv(EnvServerReadHeaderTimeout),
		WriteTimeout:      os.Getenv(EnvServerWriteTimeout),
		IdleTimeout:       os.Getenv(EnvServerIdleTimeout),
		ShutdownTimeout:   os.Getenv(EnvServerShutdownTimeout),
		LogLevel:          os.Getenv(EnvServerLogLevel),
		LogFormat:         os.Getenv(EnvServerLogFormat),
	}
	if v := os.Getenv(EnvServerPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvServerPort, err)
		}
		env.Port = port
	}
	c.Merge(&env)
	return nil
}

func (c *ServerConfig) validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}

	for name, v := range map[string]string{
		"read_timeout":        c.ReadTimeout,
		"read_header_timeout": c.ReadHeaderTimeout,
		"write_timeout":       c.WriteTimeout,
		"idle_timeout":        c.IdleTimeout,
		"shutdown_timeout":    c.ShutdownTimeout,
	} {
		if _, err := time.ParseDuration(v); err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return fmt.Errorf("invalid log_level: %w", err)
	}

	c.LogFormat = strings.ToLower(c.LogFormat)
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("invalid log_format: %q", c.LogFormat)
	}
	return nil
}

func duration(v string) time.Duration {
	d, _ := time.ParseDuration(v)
	return d
}
