package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"

	"github.com/JaimeStill/rancoqc/internal/analysis"
)

// Analyze uploads an image with its capture metadata for detection.
func (c *Client) Analyze(ctx context.Context, img analysis.Image, meta analysis.CaptureMetadata) (analysis.AnalyzeResponse, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	contentType := img.ContentType
	if contentType == "" {
		contentType = http.DetectContentType(img.Data)
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename=%q`, img.Name))
	h.Set("Content-Type", contentType)

	part, err := mw.CreatePart(h)
	if err != nil {
		return analysis.AnalyzeResponse{}, fmt.Errorf("create image part: %w", err)
	}
	if _, err := part.Write(img.Data); err != nil {
		return analysis.AnalyzeResponse{}, fmt.Errorf("write image part: %w", err)
	}

	metadata, err := json.Marshal(meta)
	if err != nil {
		return analysis.AnalyzeResponse{}, fmt.Errorf("marshal metadata: %w", err)
	}

	for name, value := range map[string]string{
		"profile":      meta.Profile,
		"distribucion": meta.Distribution,
		"metadata":     string(metadata),
	} {
		if err := mw.WriteField(name, value); err != nil {
			return analysis.AnalyzeResponse{}, fmt.Errorf("write %s field: %w", name, err)
		}
	}

	if err := mw.Close(); err != nil {
		return analysis.AnalyzeResponse{}, fmt.Errorf("close multipart: %w", err)
	}

	var out analysis.AnalyzeResponse
	err = c.do(ctx, http.MethodPost, c.endpoint("/analyze_cherries", nil), &buf, mw.FormDataContentType(), &out)
	return out, err
}

// AnalyzeStream asks the backend to grab and analyze a frame from a
// video stream. The caller bounds the wait through ctx.
func (c *Client) AnalyzeStream(ctx context.Context, req analysis.StreamRequest) (analysis.AnalyzeResponse, error) {
	var out analysis.AnalyzeResponse
	err := c.postJSON(ctx, "/analyze_rtsp", req, &out)
	return out, err
}

// Manual submits operator-entered counts. The backend persists them and
// reports where in the response's database status.
func (c *Client) Manual(ctx context.Context, req analysis.ManualRequest) (analysis.AnalyzeResponse, error) {
	var out analysis.AnalyzeResponse
	err := c.postJSON(ctx, "/manual_analysis", req, &out)
	return out, err
}
