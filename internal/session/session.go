// Package session resolves and caches the identity of the operator using a
// station, and stamps submitted records with a safe display name.
package session

import (
	"strings"
	"time"
)

// Role is the operator's authorization level.
type Role string

const (
	RoleStandard Role = "standard"
	RoleAdmin    Role = "admin"
)

// Session identifies the authenticated operator.
type Session struct {
	Operator        string    `json:"operator"`
	Name            string    `json:"name"`
	Role            Role      `json:"role"`
	AuthenticatedAt time.Time `json:"authenticated_at"`
}

// Check is the session-check response of the remote authority.
type Check struct {
	Authenticated bool   `json:"authenticated"`
	Email         string `json:"email,omitempty"`
	Role          string `json:"role,omitempty"`
	IsAdmin       bool   `json:"is_admin"`
	Name          string `json:"name,omitempty"`
}

// Session converts a successful check into a Session authenticated at now.
func (c Check) Session(now time.Time) *Session {
	role := RoleStandard
	if c.IsAdmin || Role(c.Role) == RoleAdmin {
		role = RoleAdmin
	}
	return &Session{
		Operator:        c.Email,
		Name:            c.Name,
		Role:            role,
		AuthenticatedAt: now,
	}
}

// SafeDisplayName returns the trimmed name, falling back to the trimmed
// operator id. It reports false when both are blank.
func SafeDisplayName(s *Session) (string, bool) {
	if s == nil {
		return "", false
	}
	if name := strings.TrimSpace(s.Name); name != "" {
		return name, true
	}
	if op := strings.TrimSpace(s.Operator); op != "" {
		return op, true
	}
	return "", false
}
