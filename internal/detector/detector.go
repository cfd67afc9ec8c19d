// Package detector is the HTTP client of the detection engine that counts
// defects per zone on cherry images.
package detector

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/JaimeStill/rancoqc/internal/analysis"
	"github.com/JaimeStill/rancoqc/internal/config"
)

// Detection is the engine's answer for one image. Images are base64 JPEG.
type Detection struct {
	Results          analysis.Counts `json:"results"`
	ConfidenceUsed   float64         `json:"confidence_used"`
	ZonesLoaded      int             `json:"zones_loaded"`
	ZonesAvailable   []string        `json:"zones_available"`
	DetectionsByZone json.RawMessage `json:"detections_by_zone"`
	ImageSize        string          `json:"image_size"`
	ProcessedImage   string          `json:"processed_image"`
	OriginalImage    string          `json:"original_image,omitempty"`
}

// StreamCapture asks the engine to grab a frame from a video stream.
type StreamCapture struct {
	URL          string  `json:"rtsp_url"`
	Profile      string  `json:"profile"`
	Distribution string  `json:"distribucion"`
	TimeoutSec   float64 `json:"timeout_sec"`
	WarmupFrames int     `json:"warmup_frames"`
	Retries      int     `json:"retries"`
	Confidence   float64 `json:"confidence"`
}

// Client calls the detection engine.
type Client struct {
	base         *url.URL
	hc           *http.Client
	timeout      time.Duration
	streamBudget time.Duration
	warmupFrames int
	confidence   float64
	logger       *slog.Logger
}

// New creates a Client from cfg.
func New(cfg *config.DetectorConfig, logger *slog.Logger) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.URL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse detector url: %w", err)
	}

	return &Client{
		base:         base,
		hc:           &http.Client{},
		timeout:      cfg.TimeoutDuration(),
		streamBudget: cfg.StreamBudgetDuration(),
		warmupFrames: cfg.WarmupFrames,
		confidence:   cfg.Confidence,
		logger:       logger.With("client", "detector"),
	}, nil
}

// Confidence is the detection threshold sent with every request.
func (c *Client) Confidence() float64 {
	return c.confidence
}

// Detect counts defects on an uploaded image.
func (c *Client) Detect(ctx context.Context, img analysis.Image, profile, distribution string) (*Detection, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename=%q`, img.Name))
	h.Set("Content-Type", img.ContentType)
	part, err := mw.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("build image part: %w", err)
	}
	if _, err := part.Write(img.Data); err != nil {
		return nil, fmt.Errorf("write image part: %w", err)
	}

	for name, v := range map[string]string{
		"profile":      profile,
		"distribucion": distribution,
		"confidence":   strconv.FormatFloat(c.confidence, 'f', -1, 64),
	} {
		if err := mw.WriteField(name, v); err != nil {
			return nil, fmt.Errorf("write %s field: %w", name, err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close multipart body: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	return c.post(ctx, "/detect", &buf, mw.FormDataContentType())
}

// DetectStream grabs a frame from a stream and counts defects on it. Zero
// timeout and warm-up fields take the configured defaults. The whole call
// is bounded by the stream budget.
func (c *Client) DetectStream(ctx context.Context, req StreamCapture) (*Detection, error) {
	if req.WarmupFrames <= 0 {
		req.WarmupFrames = c.warmupFrames
	}
	if req.TimeoutSec <= 0 {
		req.TimeoutSec = c.streamBudget.Seconds()
	}
	if req.Confidence == 0 {
		req.Confidence = c.confidence
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal stream request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.streamBudget)
	defer cancel()

	det, err := c.post(ctx, "/detect_stream", bytes.NewReader(body), "application/json")
	if errors.Is(err, context.DeadlineExceeded) {
		return nil, errors.Join(ErrStreamTimeout, err)
	}
	return det, err
}

func (c *Client) post(ctx context.Context, path string, body io.Reader, contentType string) (*Detection, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base.JoinPath(path).String(), body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, errors.Join(ErrUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Join(ErrUnavailable, err)
	}

	c.logger.DebugContext(ctx, "detector call", "path", path, "status", resp.StatusCode, "elapsed", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &EngineError{Status: resp.StatusCode, Message: engineMessage(data)}
	}

	var out Detection
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
	}
	return &out, nil
}

func engineMessage(data []byte) string {
	var body struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(data, &body) == nil && body.Error != "" {
		return body.Error
	}
	msg := strings.TrimSpace(string(data))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	return msg
}
