package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Authority validates network credentials and is notified of logouts.
type Authority interface {
	Check(ctx context.Context) (Check, error)
	Logout(ctx context.Context) error
}

// Context resolves the current session and owns the cached workflow state.
type Context struct {
	authority Authority
	cache     Cache
	logger    *slog.Logger
	now       func() time.Time
}

// New creates a session context.
func New(authority Authority, cache Cache, logger *slog.Logger) *Context {
	return &Context{
		authority: authority,
		cache:     cache,
		logger:    logger.With("system", "session"),
		now:       time.Now,
	}
}

// Resolve returns the cached session, or asks the authority to validate the
// existing credential and caches the result. An unauthenticated check
// clears any stale cached state.
func (c *Context) Resolve(ctx context.Context) (*Session, error) {
	state, err := c.cache.Load()
	if err != nil {
		c.logger.Warn("session cache unreadable", "error", err)
		state = State{}
	}
	if state.Session != nil {
		return state.Session, nil
	}

	check, err := c.authority.Check(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSession, err)
	}
	if !check.Authenticated {
		if err := c.cache.Clear(); err != nil {
			c.logger.Warn("session cache clear failed", "error", err)
		}
		return nil, ErrInvalidSession
	}

	state.Session = check.Session(c.now())
	if err := c.cache.Save(state); err != nil {
		c.logger.Warn("session cache write failed", "error", err)
	}

	c.logger.Info("session resolved", "operator", state.Session.Operator, "role", state.Session.Role)
	return state.Session, nil
}

// RequireName returns the safe display name of s or ErrUnsafeName.
func (c *Context) RequireName(s *Session) (string, error) {
	name, ok := SafeDisplayName(s)
	if !ok {
		return "", ErrUnsafeName
	}
	return name, nil
}

// Remember caches the workflow hints used to restore the station.
func (c *Context) Remember(profile, analysisType string) error {
	state, err := c.cache.Load()
	if err != nil {
		return err
	}
	state.Profile = profile
	state.AnalysisType = analysisType
	return c.cache.Save(state)
}

// Workflow returns the cached profile and analysis-type hints.
func (c *Context) Workflow() (profile, analysisType string) {
	state, err := c.cache.Load()
	if err != nil {
		return "", ""
	}
	return state.Profile, state.AnalysisType
}

// End clears the cached session and workflow state, then notifies the
// authority. A failed notification is logged; the local clear always happens.
func (c *Context) End(ctx context.Context) error {
	clearErr := c.cache.Clear()
	if clearErr != nil {
		c.logger.Error("session cache clear failed", "error", clearErr)
	}

	if err := c.authority.Logout(ctx); err != nil {
		c.logger.Warn("logout notification failed", "error", err)
	}

	c.logger.Info("session ended")
	return clearErr
}
