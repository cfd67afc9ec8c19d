package client

import (
	"context"
	"net/url"
)

// Labels fetches the stored label set of a profile by wire id.
func (c *Client) Labels(ctx context.Context, profile string) ([]string, error) {
	var out struct {
		Defects []string `json:"defects"`
	}
	if err := c.getJSON(ctx, "/api/defects/"+url.PathEscape(profile), nil, &out); err != nil {
		return nil, err
	}
	return out.Defects, nil
}

// AddLabel persists a new label for a profile.
func (c *Client) AddLabel(ctx context.Context, profile, label string) error {
	in := map[string]string{"defect": label}
	return c.postJSON(ctx, "/api/profiles/"+url.PathEscape(profile)+"/defects", in, nil)
}
