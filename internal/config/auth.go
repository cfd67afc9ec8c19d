package config

import (
	"fmt"
	"os"
)

// Auth modes. ModeDisabled rejects every credential, so session checks
// report unauthenticated.
const (
	AuthModeHMAC     = "hmac"
	AuthModeOIDC     = "oidc"
	AuthModeDisabled = "disabled"
)

const (
	EnvAuthMode       = "RANCOQC_AUTH_MODE"
	EnvAuthSecret     = "RANCOQC_AUTH_SECRET"
	EnvAuthIssuer     = "RANCOQC_AUTH_ISSUER"
	EnvAuthAudience   = "RANCOQC_AUTH_AUDIENCE"
	EnvAuthCookieName = "RANCOQC_AUTH_COOKIE_NAME"
)

// AuthConfig selects how the backend verifies session tokens issued elsewhere.
type AuthConfig struct {
	Mode       string `toml:"mode"`
	Secret     string `toml:"secret"`
	Issuer     string `toml:"issuer"`
	Audience   string `toml:"audience"`
	CookieName string `toml:"cookie_name"`
}

// Finalize applies defaults, environment variable overrides, and validation.
// An empty mode is inferred: issuer selects oidc, secret selects hmac.
func (c *AuthConfig) Finalize() error {
	c.loadEnv()
	c.loadDefaults()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *AuthConfig) Merge(overlay *AuthConfig) {
	for dst, v := range map[*string]string{
		&c.Mode:       overlay.Mode,
		&c.Secret:     overlay.Secret,
		&c.Issuer:     overlay.Issuer,
		&c.Audience:   overlay.Audience,
		&c.CookieName: overlay.CookieName,
	} {
		if v != "" {
			*dst = v
		}
	}
}

func (c *AuthConfig) loadDefaults() {
	if c.CookieName == "" {
		c.CookieName = "rancoqc_session"
	}
	if c.Mode != "" {
		return
	}
	switch {
	case c.Issuer != "":
		c.Mode = AuthModeOIDC
	case c.Secret != "":
		c.Mode = AuthModeHMAC
	default:
		c.Mode = AuthModeDisabled
	}
}

func (c *AuthConfig) loadEnv() {
	for dst, name := range map[*string]string{
		&c.Mode:       EnvAuthMode,
		&c.Secret:     EnvAuthSecret,
		&c.Issuer:     EnvAuthIssuer,
		&c.Audience:   EnvAuthAudience,
		&c.CookieName: EnvAuthCookieName,
	} {
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}
}

func (c *AuthConfig) validate() error {
	switch c.Mode {
	case AuthModeHMAC:
		if c.Secret == "" {
			return fmt.Errorf("secret required for hmac mode")
		}
	case AuthModeOIDC:
		if c.Issuer == "" || c.Audience == "" {
			return fmt.Errorf("issuer and audience required for oidc mode")
		}
	case AuthModeDisabled:
	default:
		return fmt.Errorf("unknown mode: %q", c.Mode)
	}
	return nil
}
