package config

import (
	"fmt"
	"os"

	"github.com/JaimeStill/rancoqc/pkg/formatting"
	"github.com/JaimeStill/rancoqc/pkg/middleware"
	"github.com/JaimeStill/rancoqc/pkg/openapi"
	"github.com/JaimeStill/rancoqc/pkg/pagination"
)

const (
	EnvAPIBasePath      = "RANCOQC_API_BASE_PATH"
	EnvAPIMaxUploadSize = "RANCOQC_API_MAX_UPLOAD_SIZE"
	EnvAPIMaxBodySize   = "RANCOQC_API_MAX_BODY_SIZE"
)

var corsEnv = &middleware.CORSEnv{
	Enabled:          "RANCOQC_CORS_ENABLED",
	Origins:          "RANCOQC_CORS_ORIGINS",
	AllowedMethods:   "RANCOQC_CORS_ALLOWED_METHODS",
	AllowedHeaders:   "RANCOQC_CORS_ALLOWED_HEADERS",
	AllowCredentials: "RANCOQC_CORS_ALLOW_CREDENTIALS",
	MaxAge:           "RANCOQC_CORS_MAX_AGE",
}

var paginationEnv = &pagination.ConfigEnv{
	DefaultPageSize: "RANCOQC_PAGINATION_DEFAULT_PAGE_SIZE",
	MaxPageSize:     "RANCOQC_PAGINATION_MAX_PAGE_SIZE",
	DefaultLimit:    "RANCOQC_PAGINATION_DEFAULT_LIMIT",
	MaxLimit:        "RANCOQC_PAGINATION_MAX_LIMIT",
}

var openapiEnv = &openapi.ConfigEnv{
	Title:       "RANCOQC_OPENAPI_TITLE",
	Description: "RANCOQC_OPENAPI_DESCRIPTION",
	Servers:     "RANCOQC_OPENAPI_SERVERS",
}

// APIConfig holds API routing, request limits, CORS, pagination and OpenAPI settings.
type APIConfig struct {
	BasePath      string                `toml:"base_path"`
	MaxUploadSize string                `toml:"max_upload_size"`
	MaxBodySize   string                `toml:"max_body_size"`
	CORS          middleware.CORSConfig `toml:"cors"`
	Pagination    pagination.Config     `toml:"pagination"`
	OpenAPI       openapi.Config        `toml:"openapi"`
}

// MaxUploadSizeBytes bounds multipart image uploads.
func (c *APIConfig) MaxUploadSizeBytes() int64 {
	size, _ := formatting.ParseBytes(c.MaxUploadSize)
	return size
}

// MaxBodySizeBytes bounds JSON request bodies.
func (c *APIConfig) MaxBodySizeBytes() int64 {
	size, _ := formatting.ParseBytes(c.MaxBodySize)
	return size
}

// Finalize applies defaults, environment variable overrides, and validation
// for the API config and its nested configs.
func (c *APIConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if err := c.validate(); err != nil {
		return err
	}
	if err := c.CORS.Finalize(corsEnv); err != nil {
		return fmt.Errorf("cors: %w", err)
	}
	if err := c.Pagination.Finalize(paginationEnv); err != nil {
		return fmt.Errorf("pagination: %w", err)
	}
	if err := c.OpenAPI.Finalize(openapiEnv); err != nil {
		return fmt.Errorf("openapi: %w", err)
	}
	return nil
}

// Merge overwrites non-zero fields from overlay across nested configs.
func (c *APIConfig) Merge(overlay *APIConfig) {
	if overlay.BasePath != "" {
		c.BasePath = overlay.BasePath
	}
	if overlay.MaxUploadSize != "" {
		c.MaxUploadSize = overlay.MaxUploadSize
	}
	if overlay.MaxBodySize != "" {
		c.MaxBodySize = overlay.MaxBodySize
	}

	c.CORS.Merge(&overlay.CORS)
	c.Pagination.Merge(&overlay.Pagination)
	c.OpenAPI.Merge(&overlay.OpenAPI)
}

func (c *APIConfig) loadDefaults() {
	if c.BasePath == "" {
		c.BasePath = "/api"
	}
	if c.MaxUploadSize == "" {
		c.MaxUploadSize = "25MB"
	}
	if c.MaxBodySize == "" {
		c.MaxBodySize = "2MB"
	}
}

func (c *APIConfig) loadEnv() {
	if v := os.Getenv(EnvAPIBasePath); v != "" {
		c.BasePath = v
	}
	if v := os.Getenv(EnvAPIMaxUploadSize); v != "" {
		c.MaxUploadSize = v
	}
	if v := os.Getenv(EnvAPIMaxBodySize); v != "" {
		c.MaxBodySize = v
	}
}

func (c *APIConfig) validate() error {
	if _, err := formatting.ParseBytes(c.MaxUploadSize); err != nil {
		return fmt.Errorf("invalid max_upload_size: %w", err)
	}
	if _, err := formatting.ParseBytes(c.MaxBodySize); err != nil {
		return fmt.Errorf("invalid max_body_size: %w", err)
	}
	return nil
}
