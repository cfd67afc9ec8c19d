package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/JaimeStill/rancoqc/internal/analysis"
	"github.com/JaimeStill/rancoqc/internal/history"
)

// Upload sends a finished analysis to the remote store and returns its id.
// Numeric and string ids are both accepted.
func (c *Client) Upload(ctx context.Context, payload analysis.UploadPayload) (string, error) {
	var out struct {
		AnalysisID json.RawMessage `json:"analysis_id"`
	}
	if err := c.postJSON(ctx, "/force_upload_analysis", payload, &out); err != nil {
		return "", err
	}

	id := strings.Trim(string(out.AnalysisID), `"`)
	if id == "" || id == "null" {
		return "", fmt.Errorf("%w: response carries no analysis id", ErrRemote)
	}
	return id, nil
}

// Save writes an analysis to the backend's local pending cache.
func (c *Client) Save(ctx context.Context, payload analysis.UploadPayload) error {
	return c.postJSON(ctx, "/save_to_cache", payload, nil)
}

// History lists stored analyses, newest first.
func (c *Client) History(ctx context.Context, f history.Filters) ([]analysis.Record, error) {
	q := url.Values{}
	if f.Operator != "" {
		q.Set("user_name", f.Operator)
	}
	if f.AnalysisType != "" {
		q.Set("analysis_type", f.AnalysisType)
	}
	if !f.From.IsZero() {
		q.Set("from", f.From.Format(time.DateOnly))
	}
	if !f.To.IsZero() {
		q.Set("to", f.To.Format(time.DateOnly))
	}
	if f.Limit > 0 {
		q.Set("limit", strconv.Itoa(f.Limit))
	}

	var out struct {
		History []analysis.Record `json:"history"`
		Count   int               `json:"count"`
	}
	if err := c.getJSON(ctx, "/get_analysis_history", q, &out); err != nil {
		return nil, err
	}
	return out.History, nil
}

// ClearSynced drops cache entries that already reached the remote store.
func (c *Client) ClearSynced(ctx context.Context) (analysis.ClearReport, error) {
	var out analysis.ClearReport
	err := c.postJSON(ctx, "/clear_local_cache", nil, &out)
	return out, err
}

// SyncPending pushes pending cache entries to the remote store.
func (c *Client) SyncPending(ctx context.Context, user string) (analysis.SyncReport, error) {
	var out struct {
		SyncResult analysis.SyncReport `json:"sync_result"`
	}
	in := map[string]string{"user_name": user}
	if err := c.postJSON(ctx, "/sync_pending_data", in, &out); err != nil {
		return analysis.SyncReport{}, err
	}
	return out.SyncResult, nil
}

// DatabaseStatus reports remote store reachability and cache counts.
func (c *Client) DatabaseStatus(ctx context.Context) (analysis.DatabaseStatus, error) {
	var out analysis.DatabaseStatus
	err := c.getJSON(ctx, "/database_status", nil, &out)
	return out, err
}
