package auth

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/JaimeStill/rancoqc/pkg/handlers"
	"github.com/JaimeStill/rancoqc/pkg/middleware"
	"github.com/JaimeStill/rancoqc/pkg/routes"
)

// Middleware attaches verified claims to the request context. The token is
// read from the Authorization bearer header, then from the session cookie.
// Requests without a valid token pass through unauthenticated.
func Middleware(v Verifier, cookieName string, logger *slog.Logger) middleware.Func {
	logger = logger.With("middleware", "auth")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := Token(r, cookieName)
			if raw == "" || !v.Enabled() {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := v.Verify(r.Context(), raw)
			if err != nil {
				logger.Debug("token rejected", "path", r.URL.Path, "error", err)
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// Token extracts the raw session token from r.
func Token(r *http.Request, cookieName string) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if raw, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(raw)
		}
	}
	if c, err := r.Cookie(cookieName); err == nil {
		return c.Value
	}
	return ""
}

// Guard rejects unauthenticated calls to mutating routes. A guard built
// over a disabled verifier lets everything through.
type Guard struct {
	enabled bool
	logger  *slog.Logger
}

// NewGuard creates a Guard enforcing authentication when v is enabled.
func NewGuard(v Verifier, logger *slog.Logger) Guard {
	return Guard{
		enabled: v.Enabled(),
		logger:  logger.With("guard", "auth"),
	}
}

// Require wraps next so it only runs for authenticated requests.
func (g Guard) Require(next http.HandlerFunc) http.HandlerFunc {
	if !g.enabled {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := FromContext(r.Context()); !ok {
			handlers.RespondFailure(w, g.logger, http.StatusUnauthorized, ErrUnauthenticated)
			return
		}
		next(w, r)
	}
}

// Protect returns a copy of group whose non-GET routes, including those of
// nested groups, require authentication. Wrapped routes are marked Secured
// when the guard is enforcing.
func (g Guard) Protect(group routes.Group) routes.Group {
	out := routes.Group{Prefix: group.Prefix}

	for _, route := range group.Routes {
		if route.Method != http.MethodGet {
			route.Handler = g.Require(route.Handler)
			route.Secured = g.enabled
		}
		out.Routes = append(out.Routes, route)
	}
	for _, child := range group.Children {
		out.Children = append(out.Children, g.Protect(child))
	}
	return out
}
