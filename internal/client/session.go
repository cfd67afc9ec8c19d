package client

import (
	"context"
	"errors"
	"net/http"

	"github.com/JaimeStill/rancoqc/internal/session"
)

// Check asks the backend whether the current credential is authenticated.
// A 401 is an unauthenticated answer, not a failure.
func (c *Client) Check(ctx context.Context) (session.Check, error) {
	var check session.Check
	err := c.getJSON(ctx, "/api/session_check", nil, &check)

	var rerr *RemoteError
	if errors.As(err, &rerr) && rerr.Status == http.StatusUnauthorized {
		return session.Check{}, nil
	}
	return check, err
}

// Logout notifies the backend that the session ended.
func (c *Client) Logout(ctx context.Context) error {
	return c.postJSON(ctx, "/api/logout", nil, nil)
}
