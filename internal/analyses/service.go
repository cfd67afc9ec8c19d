package analyses

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/JaimeStill/rancoqc/internal/analysis"
	"github.com/JaimeStill/rancoqc/internal/detector"
	"github.com/JaimeStill/rancoqc/internal/profiles"
	"github.com/JaimeStill/rancoqc/internal/records"
	"github.com/JaimeStill/rancoqc/pkg/metrics"
	"github.com/JaimeStill/rancoqc/pkg/storage"
)

// Stream capture defaults applied when a request leaves them unset.
const (
	DefaultStreamTimeout = 12
	DefaultWarmupFrames  = 8
	DefaultRetries       = 2
)

const (
	imagePrefix = "analyses/"
	imageRoute  = "/api/images/"
)

type service struct {
	detector Detector
	recorder Recorder
	cache    Cache
	store    storage.System
	metrics  *metrics.Metrics
	logger   *slog.Logger
	tracer   trace.Tracer
	now      func() time.Time
}

// New creates the analysis system. Images are kept in store and served
// back through the images route.
func New(
	det Detector,
	rec Recorder,
	cache Cache,
	store storage.System,
	m *metrics.Metrics,
	logger *slog.Logger,
) System {
	return &service{
		detector: det,
		recorder: rec,
		cache:    cache,
		store:    store,
		metrics:  m,
		logger:   logger.With("system", "analyses"),
		tracer:   otel.Tracer("rancoqc/analyses"),
		now:      time.Now,
	}
}

func (s *service) Handler(maxUploadSize, maxBodySize int64) *Handler {
	return NewHandler(s, s.logger, maxUploadSize, maxBodySize)
}

func (s *service) AnalyzeImage(ctx context.Context, img analysis.Image, meta analysis.CaptureMetadata) (resp analysis.AnalyzeResponse, err error) {
	ctx, span := s.tracer.Start(ctx, "analyses.image", trace.WithAttributes(
		attribute.String("profile", meta.Profile),
		attribute.Int("image.bytes", len(img.Data)),
	))
	defer func() { endSpan(span, err) }()

	if len(img.Data) == 0 {
		return analysis.AnalyzeResponse{}, ErrMissingImage
	}
	ext, contentType, err := imageType(img.Data)
	if err != nil {
		return analysis.AnalyzeResponse{}, err
	}
	img.ContentType = contentType

	p, ok := profiles.Lookup(meta.Profile)
	if !ok {
		return analysis.AnalyzeResponse{}, fmt.Errorf("%w: %s", ErrUnknownProfile, meta.Profile)
	}

	det, err := s.detector.Detect(ctx, img, p.Wire, meta.Distribution)
	if err != nil {
		return analysis.AnalyzeResponse{}, fmt.Errorf("detect: %w", err)
	}

	dir := s.imageDir()
	resp = s.response(det)

	if key, err := s.put(ctx, dir+"original"+ext, img.Data, contentType); err != nil {
		s.logger.Warn("original image not stored", "error", err)
	} else {
		resp.OriginalImage = key
	}
	resp.ProcessedImage = s.putEncoded(ctx, dir+"processed.jpg", det.ProcessedImage)

	s.metrics.Analyses.WithLabelValues(p.Wire, analysis.SourceUploadedFile).Inc()
	s.logger.Info("image analyzed",
		"profile", p.Wire,
		"user", meta.User,
		"lot", meta.Lot,
		"total", resp.TotalCherries,
	)
	return resp, nil
}

func (s *service) AnalyzeStream(ctx context.Context, req analysis.StreamRequest) (resp analysis.AnalyzeResponse, err error) {
	ctx, span := s.tracer.Start(ctx, "analyses.stream", trace.WithAttributes(
		attribute.String("profile", req.Profile),
	))
	defer func() { endSpan(span, err) }()

	if strings.TrimSpace(req.URL) == "" {
		return analysis.AnalyzeResponse{}, ErrMissingStreamURL
	}
	p, ok := profiles.Lookup(req.Profile)
	if !ok {
		return analysis.AnalyzeResponse{}, fmt.Errorf("%w: %s", ErrUnknownProfile, req.Profile)
	}

	capture := detector.StreamCapture{
		URL:          req.URL,
		Profile:      p.Wire,
		Distribution: req.Distribution,
		TimeoutSec:   req.TimeoutSec,
		WarmupFrames: req.WarmupFrames,
		Retries:      req.Retries,
	}
	if capture.TimeoutSec <= 0 {
		capture.TimeoutSec = DefaultStreamTimeout
	}
	if capture.WarmupFrames <= 0 {
		capture.WarmupFrames = DefaultWarmupFrames
	}
	if capture.Retries <= 0 {
		capture.Retries = DefaultRetries
	}

	det, err := s.detector.DetectStream(ctx, capture)
	if err != nil {
		return analysis.AnalyzeResponse{}, fmt.Errorf("stream capture: %w", err)
	}

	dir := s.imageDir()
	resp = s.response(det)
	resp.OriginalImage = s.putEncoded(ctx, dir+"original.jpg", det.OriginalImage)
	resp.ProcessedImage = s.putEncoded(ctx, dir+"processed.jpg", det.ProcessedImage)

	s.metrics.Analyses.WithLabelValues(p.Wire, analysis.SourceStreamCapture).Inc()
	s.logger.Info("stream analyzed", "profile", p.Wire, "user", req.User, "total", resp.TotalCherries)
	return resp, nil
}

// Manual persists operator-entered counts, in the remote store when
// reachable and in the pending cache otherwise. Only a remote save yields
// an analysis id.
func (s *service) Manual(ctx context.Context, req analysis.ManualRequest) (analysis.AnalyzeResponse, error) {
	p, ok := profiles.Lookup(req.Profile)
	if !ok {
		return analysis.AnalyzeResponse{}, fmt.Errorf("%w: %s", ErrUnknownProfile, req.Profile)
	}
	if req.Defects.Total() <= 0 {
		return analysis.AnalyzeResponse{}, ErrEmptyCounts
	}

	form := req.FormData
	form.Profile = p.Wire
	if form.AnalysisType == "" {
		form.AnalysisType = p.AnalysisType
	}

	result := analysis.Result{
		Counts:         req.Defects.Clone(),
		ZonesAvailable: req.Defects.Labels(),
		ZonesLoaded:    req.Defects.Len(),
		Confidence:     s.detector.Confidence(),
		SourceType:     analysis.SourceManualEntry,
	}
	payload := analysis.Payload(result, form, analysis.SourceManualEntry)

	resp := analysis.AnalyzeResponse{
		Success:        true,
		Results:        result.Counts,
		TotalCherries:  result.Total(),
		ConfidenceUsed: result.Confidence,
		Timestamp:      s.now().Format(analysis.TimestampLayout),
		ZonesLoaded:    result.ZonesLoaded,
		ZonesAvailable: result.ZonesAvailable,
	}

	stored, err := s.recorder.Create(ctx, payload)
	switch {
	case err == nil:
		resp.AnalysisID = stored.ID.String()
		resp.DatabaseStatus = analysis.StatusSavedRemote
	case errors.Is(err, records.ErrInvalidPayload):
		return analysis.AnalyzeResponse{}, err
	default:
		s.logger.Warn("manual analysis not stored remotely, caching", "error", err)
		if _, cerr := s.cache.Save(ctx, payload); cerr != nil {
			s.logger.Error("manual analysis not saved", "store_error", err, "cache_error", cerr)
			return analysis.AnalyzeResponse{}, errors.Join(ErrNotSaved, err, cerr)
		}
		resp.DatabaseStatus = analysis.StatusSavedLocal
	}

	s.metrics.Analyses.WithLabelValues(p.Wire, analysis.SourceManualEntry).Inc()
	return resp, nil
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (s *service) Image(ctx context.Context, key string) (*storage.Blob, error) {
	if !strings.HasPrefix(key, imagePrefix) {
		return nil, ErrInvalidImageKey
	}
	return s.store.Download(ctx, key)
}

func (s *service) response(det *detector.Detection) analysis.AnalyzeResponse {
	return analysis.AnalyzeResponse{
		Success:          true,
		Results:          det.Results,
		TotalCherries:    det.Results.Total(),
		ConfidenceUsed:   det.ConfidenceUsed,
		Timestamp:        s.now().Format(analysis.TimestampLayout),
		ZonesLoaded:      det.ZonesLoaded,
		ZonesAvailable:   det.ZonesAvailable,
		ImageSize:        det.ImageSize,
		DetectionsByZone: det.DetectionsByZone,
	}
}

func (s *service) imageDir() string {
	return fmt.Sprintf("%s%s/%s/", imagePrefix, s.now().Format("2006-01-02"), uuid.New())
}

// putEncoded stores a base64 JPEG from the detector. A missing or
// unstorable image yields an empty reference.
func (s *service) putEncoded(ctx context.Context, key, encoded string) string {
	if encoded == "" {
		return ""
	}
	if i := strings.Index(encoded, ","); strings.HasPrefix(encoded, "data:") && i > 0 {
		encoded = encoded[i+1:]
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		s.logger.Warn("detector image not decodable", "key", key, "error", err)
		return ""
	}

	ref, err := s.put(ctx, key, data, "image/jpeg")
	if err != nil {
		s.logger.Warn("detector image not stored", "key", key, "error", err)
		return ""
	}
	return ref
}

func (s *service) put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if err := s.store.Upload(ctx, key, bytes.NewReader(data), contentType); err != nil {
		return "", err
	}
	return imageRoute + key, nil
}

func imageType(data []byte) (ext, contentType string, err error) {
	switch ct := http.DetectContentType(data); ct {
	case "image/jpeg":
		return ".jpg", ct, nil
	case "image/png":
		return ".png", ct, nil
	}
	return "", "", ErrUnsupportedImage
}
