// Package station is the operator workstation: it owns the session, the
// active profile, the active result and the history view, and runs each
// inspection step against the backend.
package station

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/JaimeStill/rancoqc/internal/analysis"
	"github.com/JaimeStill/rancoqc/internal/export"
	"github.com/JaimeStill/rancoqc/internal/history"
	"github.com/JaimeStill/rancoqc/internal/profiles"
	"github.com/JaimeStill/rancoqc/internal/session"
	"github.com/JaimeStill/rancoqc/internal/submission"
)

// Stream capture parameters sent to the backend.
const (
	StreamTimeoutSec   = 12
	StreamWarmupFrames = 8
	StreamRetries      = 2
)

// Analyzer runs detection on the backend.
type Analyzer interface {
	Analyze(ctx context.Context, img analysis.Image, meta analysis.CaptureMetadata) (analysis.AnalyzeResponse, error)
	AnalyzeStream(ctx context.Context, req analysis.StreamRequest) (analysis.AnalyzeResponse, error)
	Manual(ctx context.Context, req analysis.ManualRequest) (analysis.AnalyzeResponse, error)
}

// Components are the collaborators a station drives.
type Components struct {
	Sessions  *session.Context
	Registry  *profiles.Registry
	Workspace *analysis.Workspace
	Pipeline  *submission.Pipeline
	History   *history.Browser
	Analyzer  Analyzer
}

// Station holds all per-operator state. The zero value is not usable.
type Station struct {
	Components

	streamBudget time.Duration
	logger       *slog.Logger
	now          func() time.Time

	mu      sync.Mutex
	session *session.Session
}

// New creates a station. streamBudget bounds a stream capture end to end;
// zero leaves it to the caller's context.
func New(c Components, streamBudget time.Duration, logger *slog.Logger) *Station {
	return &Station{
		Components:   c,
		streamBudget: streamBudget,
		logger:       logger.With("system", "station"),
		now:          time.Now,
	}
}

// Begin resolves the session and restores the remembered profile. Nothing
// else works until it succeeds.
func (s *Station) Begin(ctx context.Context) (*session.Session, error) {
	sess, err := s.Sessions.Resolve(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.session = sess
	s.mu.Unlock()

	if profile, _ := s.Sessions.Workflow(); profile != "" {
		s.Registry.Select(profile)
	}
	return sess, nil
}

// Session returns the resolved session, or nil before Begin.
func (s *Station) Session() *session.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session
}

// Profile returns the active profile.
func (s *Station) Profile() profiles.Profile {
	return s.Registry.Active()
}

// SelectProfile changes the active profile and remembers it. It is
// rejected while a result is active, since the form and label set of
// the result belong to the current profile.
func (s *Station) SelectProfile(id string) (profiles.Profile, error) {
	if s.Workspace.Active() {
		return s.Registry.Active(), ErrProfileLocked
	}

	p := s.Registry.Select(id)
	if err := s.Sessions.Remember(p.Wire, p.AnalysisType); err != nil {
		s.logger.Warn("profile not remembered", "profile", p.ID, "error", err)
	}
	return p, nil
}

// Labels returns the available labels of the active profile.
func (s *Station) Labels(ctx context.Context) []string {
	return s.Registry.Labels(ctx, s.Registry.Active())
}

// AddLabel records count units of a label outside the active profile's set.
func (s *Station) AddLabel(ctx context.Context, label string, count int, persist bool) (analysis.AddOutcome, error) {
	return s.Workspace.AddNew(ctx, s.Registry.Active(), label, count, persist)
}

// Capture sends an image for detection and makes the response the active
// result. Session, form and image are checked before any network call.
func (s *Station) Capture(ctx context.Context, img analysis.Image, form analysis.Form) (analysis.Result, error) {
	p := s.Registry.Active()

	name, err := s.operatorName(ctx)
	if err != nil {
		return analysis.Result{}, err
	}
	if err := form.Validate(p); err != nil {
		return analysis.Result{}, err
	}
	if len(img.Data) == 0 {
		return analysis.Result{}, ErrNoImage
	}

	meta := analysis.CaptureMetadata{
		FormData:  form.Data(p, name),
		Module:    p.Module,
		Timestamp: s.now().UTC().Format(time.RFC3339),
	}

	resp, err := s.Analyzer.Analyze(ctx, img, meta)
	if err != nil {
		return analysis.Result{}, fmt.Errorf("analyze image: %w", err)
	}

	result := s.Workspace.Ingest(resp, analysis.SourceUploadedFile)
	s.logger.Info("image analyzed", "lot", form.Lot, "total", result.Total())
	return result, nil
}

// CaptureStream grabs a frame from a video stream through the backend.
// The whole exchange is bounded by the stream budget.
func (s *Station) CaptureStream(ctx context.Context, streamURL string, form analysis.Form) (analysis.Result, error) {
	p := s.Registry.Active()

	name, err := s.operatorName(ctx)
	if err != nil {
		return analysis.Result{}, err
	}
	if err := form.Validate(p); err != nil {
		return analysis.Result{}, err
	}
	streamURL = strings.TrimSpace(streamURL)
	if streamURL == "" {
		return analysis.Result{}, ErrNoStreamURL
	}

	if s.streamBudget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.streamBudget)
		defer cancel()
	}

	resp, err := s.Analyzer.AnalyzeStream(ctx, analysis.StreamRequest{
		URL:          streamURL,
		Profile:      p.Wire,
		Distribution: string(form.Distribution),
		TimeoutSec:   StreamTimeoutSec,
		WarmupFrames: StreamWarmupFrames,
		Retries:      StreamRetries,
		User:         name,
	})
	if err != nil {
		return analysis.Result{}, fmt.Errorf("analyze stream: %w", err)
	}

	result := s.Workspace.Ingest(resp, analysis.SourceStreamCapture)
	s.logger.Info("stream frame analyzed", "lot", form.Lot, "total", result.Total())
	return result, nil
}

// ManualEntry records operator-counted defects without an image. The
// backend persists the entry, so the resulting active result may already
// be synced.
func (s *Station) ManualEntry(ctx context.Context, form analysis.Form, counts analysis.Counts) (analysis.Result, error) {
	p := s.Registry.Active()

	name, err := s.operatorName(ctx)
	if err != nil {
		return analysis.Result{}, err
	}
	if err := form.Validate(p); err != nil {
		return analysis.Result{}, err
	}
	if counts.Total() <= 0 {
		return analysis.Result{}, ErrEmptyManualEntry
	}

	resp, err := s.Analyzer.Manual(ctx, analysis.ManualRequest{
		FormData: form.Data(p, name),
		Defects:  counts,
	})
	if err != nil {
		return analysis.Result{}, fmt.Errorf("manual analysis: %w", err)
	}

	result := s.Workspace.Ingest(resp, analysis.SourceManualEntry)
	s.logger.Info("manual analysis recorded", "lot", form.Lot, "status", resp.DatabaseStatus)
	return result, nil
}

// Submit sends the active result through the pipeline. A session that
// cannot stamp the submission is ended.
func (s *Station) Submit(ctx context.Context, form analysis.Form) (submission.Receipt, error) {
	receipt, err := s.Pipeline.Submit(ctx, s.Workspace, s.Registry.Active(), form, s.Session())
	if errors.Is(err, submission.ErrUnsafeSession) {
		s.forceLogout(ctx)
	}
	return receipt, err
}

// SubmitAsync starts Submit in the background. The caller may Wait on the
// task; nothing cancels it.
func (s *Station) SubmitAsync(ctx context.Context, form analysis.Form) (*submission.Task, error) {
	sess := s.Session()
	if _, ok := session.SafeDisplayName(sess); !ok {
		s.forceLogout(ctx)
		return nil, submission.ErrUnsafeSession
	}
	return s.Pipeline.SubmitAsync(ctx, s.Workspace, s.Registry.Active(), form, sess), nil
}

// Export writes the active result as a CSV report and returns its file name.
func (s *Station) Export(ctx context.Context, w io.Writer, form analysis.Form) (string, error) {
	name, err := s.operatorName(ctx)
	if err != nil {
		return "", err
	}

	result, err := s.Workspace.Snapshot()
	if err != nil {
		return "", err
	}

	now := s.now()
	if _, err := w.Write(export.Report(result, form, name, s.Registry.Active(), now)); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	return export.Filename(form.Lot, now), nil
}

// Discard drops the active result, unlocking the profile.
func (s *Station) Discard() {
	s.Workspace.Reset()
}

// Logout ends the session and clears all per-operator state.
func (s *Station) Logout(ctx context.Context) error {
	err := s.Sessions.End(ctx)
	s.reset()
	return err
}

func (s *Station) operatorName(ctx context.Context) (string, error) {
	sess := s.Session()
	if sess == nil {
		return "", ErrNoSession
	}

	name, err := s.Sessions.RequireName(sess)
	if err != nil {
		s.forceLogout(ctx)
		return "", err
	}
	return name, nil
}

func (s *Station) forceLogout(ctx context.Context) {
	s.logger.Warn("session unusable, forcing re-authentication")
	if err := s.Sessions.End(ctx); err != nil {
		s.logger.Warn("session end failed", "error", err)
	}
	s.reset()
}

func (s *Station) reset() {
	s.mu.Lock()
	s.session = nil
	s.mu.Unlock()

	s.Workspace.Reset()
	s.Registry.Select("")
}
