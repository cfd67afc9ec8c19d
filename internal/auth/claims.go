package auth

import "context"

// RoleAdmin grants administrative access regardless of the is_admin claim.
const RoleAdmin = "admin"

// Claims is the operator identity carried by a verified session token.
type Claims struct {
	Subject string `json:"sub"`
	Email   string `json:"email,omitempty"`
	Name    string `json:"name,omitempty"`
	Role    string `json:"role,omitempty"`
	IsAdmin bool   `json:"is_admin"`
}

// Admin reports whether the claims carry administrative rights.
func (c Claims) Admin() bool {
	return c.IsAdmin || c.Role == RoleAdmin
}

// DisplayName is the name shown to operators, falling back to the email
// and then the subject.
func (c Claims) DisplayName() string {
	switch {
	case c.Name != "":
		return c.Name
	case c.Email != "":
		return c.Email
	}
	return c.Subject
}

type claimsKey struct{}

// WithClaims returns a context carrying c.
func WithClaims(ctx context.Context, c Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, c)
}

// FromContext returns the claims attached by Middleware, if any.
func FromContext(ctx context.Context) (Claims, bool) {
	c, ok := ctx.Value(claimsKey{}).(Claims)
	return c, ok
}
