package auth

import (
	"log/slog"
	"net/http"

	"github.com/JaimeStill/rancoqc/pkg/handlers"
	"github.com/JaimeStill/rancoqc/pkg/routes"
)

// Handler provides the session endpoints polled by operator stations.
type Handler struct {
	cookieName string
	logger     *slog.Logger
}

// SessionCheck is the body of the session check endpoint.
type SessionCheck struct {
	Authenticated bool   `json:"authenticated"`
	Email         string `json:"email,omitempty"`
	Role          string `json:"role,omitempty"`
	IsAdmin       bool   `json:"is_admin"`
	Name          string `json:"name,omitempty"`
}

// NewHandler creates a Handler that clears cookieName on logout.
func NewHandler(cookieName string, logger *slog.Logger) *Handler {
	return &Handler{
		cookieName: cookieName,
		logger:     logger.With("handler", "auth"),
	}
}

// Routes returns the route group for session endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "/session_check", Handler: h.SessionCheck, Summary: "Report the caller's session"},
			{Method: "POST", Pattern: "/logout", Handler: h.Logout, Summary: "Clear the session cookie"},
		},
	}
}

// SessionCheck reports the identity attached to the request, or 401.
func (h *Handler) SessionCheck(w http.ResponseWriter, r *http.Request) {
	c, ok := FromContext(r.Context())
	if !ok {
		handlers.RespondJSON(w, http.StatusUnauthorized, SessionCheck{})
		return
	}

	handlers.RespondJSON(w, http.StatusOK, SessionCheck{
		Authenticated: true,
		Email:         c.Email,
		Role:          c.Role,
		IsAdmin:       c.Admin(),
		Name:          c.DisplayName(),
	})
}

// Logout expires the session cookie. Token revocation belongs to the
// identity provider.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	if c, ok := FromContext(r.Context()); ok {
		h.logger.Info("operator logged out", "subject", c.Subject)
	}

	handlers.RespondSuccess(w, http.StatusOK, map[string]any{
		"message": "session closed",
	})
}
