// Package auth verifies session tokens issued by the identity provider,
// attaches operator claims to requests, and guards mutating routes.
package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"

	"github.com/JaimeStill/rancoqc/internal/config"
)

// Verifier turns a raw session token into operator claims.
type Verifier interface {
	Verify(ctx context.Context, raw string) (Claims, error)
	Enabled() bool
}

// NewVerifier builds the verifier selected by cfg.Mode. OIDC discovery
// contacts the issuer, so ctx bounds the provider lookup.
func NewVerifier(ctx context.Context, cfg *config.AuthConfig) (Verifier, error) {
	switch cfg.Mode {
	case config.AuthModeHMAC:
		return HMAC(cfg.Secret, cfg.Issuer, cfg.Audience), nil
	case config.AuthModeOIDC:
		provider, err := oidc.NewProvider(ctx, cfg.Issuer)
		if err != nil {
			return nil, fmt.Errorf("oidc discovery: %w", err)
		}
		return OIDC(provider.Verifier(&oidc.Config{ClientID: cfg.Audience})), nil
	case config.AuthModeDisabled:
		return Disabled(), nil
	}
	return nil, fmt.Errorf("unknown auth mode: %q", cfg.Mode)
}

type tokenClaims struct {
	jwt.RegisteredClaims
	Email   string `json:"email"`
	Name    string `json:"name"`
	Role    string `json:"role"`
	IsAdmin bool   `json:"is_admin"`
}

func (t tokenClaims) claims(subject string) Claims {
	return Claims{
		Subject: subject,
		Email:   t.Email,
		Name:    t.Name,
		Role:    t.Role,
		IsAdmin: t.IsAdmin,
	}
}

type hmacVerifier struct {
	secret []byte
	opts   []jwt.ParserOption
}

// HMAC verifies HS256/384/512 tokens signed with secret. Empty issuer or
// audience skip the corresponding check.
func HMAC(secret, issuer, audience string) Verifier {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}),
		jwt.WithExpirationRequired(),
	}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	if audience != "" {
		opts = append(opts, jwt.WithAudience(audience))
	}
	return &hmacVerifier{secret: []byte(secret), opts: opts}
}

func (v *hmacVerifier) Verify(_ context.Context, raw string) (Claims, error) {
	var tc tokenClaims
	_, err := jwt.ParseWithClaims(raw, &tc, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, v.opts...)
	if err != nil {
		return Claims{}, errors.Join(ErrInvalidToken, err)
	}
	if tc.Subject == "" && tc.Email == "" {
		return Claims{}, fmt.Errorf("%w: no subject", ErrInvalidToken)
	}
	return tc.claims(tc.Subject), nil
}

func (v *hmacVerifier) Enabled() bool { return true }

type oidcVerifier struct {
	verifier *oidc.IDTokenVerifier
}

// OIDC verifies ID tokens with a go-oidc verifier.
func OIDC(v *oidc.IDTokenVerifier) Verifier {
	return &oidcVerifier{verifier: v}
}

func (v *oidcVerifier) Verify(ctx context.Context, raw string) (Claims, error) {
	token, err := v.verifier.Verify(ctx, raw)
	if err != nil {
		return Claims{}, errors.Join(ErrInvalidToken, err)
	}

	var tc tokenClaims
	if err := token.Claims(&tc); err != nil {
		return Claims{}, errors.Join(ErrInvalidToken, err)
	}
	return tc.claims(token.Subject), nil
}

func (v *oidcVerifier) Enabled() bool { return true }

type disabled struct{}

// Disabled rejects every token. Session checks report unauthenticated and
// route guards let requests through.
func Disabled() Verifier {
	return disabled{}
}

func (disabled) Verify(context.Context, string) (Claims, error) {
	return Claims{}, ErrAuthDisabled
}

func (disabled) Enabled() bool { return false }
