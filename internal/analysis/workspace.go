package analysis

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/JaimeStill/rancoqc/internal/profiles"
)

// Labels is the view of the profile registry the workspace needs.
type Labels interface {
	Has(p profiles.Profile, label string) bool
	AddLabel(ctx context.Context, p profiles.Profile, label string) error
}

// PersistStatus reports what happened to the label persistence side effect of AddNew.
type PersistStatus int

const (
	PersistNotRequested PersistStatus = iota
	Persisted
	PersistFailed
)

func (s PersistStatus) String() string {
	switch s {
	case Persisted:
		return "persisted"
	case PersistFailed:
		return "persist-failed"
	default:
		return "not-requested"
	}
}

// AddOutcome is the result of AddNew. Count is always applied; Persist and
// PersistErr describe the optional label persistence.
type AddOutcome struct {
	Count      int
	Persist    PersistStatus
	PersistErr error
}

// Workspace owns the single active result and serializes every edit.
type Workspace struct {
	labels Labels
	logger *slog.Logger
	now    func() time.Time

	mu     sync.Mutex
	gen    uint64
	active *Result
}

// NewWorkspace creates an empty workspace.
func NewWorkspace(labels Labels, logger *slog.Logger) *Workspace {
	return &Workspace{
		labels: labels,
		logger: logger.With("system", "workspace"),
		now:    time.Now,
	}
}

// Ingest replaces the active result with resp. The total is recomputed from
// the counts and the manual flag is cleared. A response that already carries
// an analysis id was persisted by the backend and starts synced.
func (w *Workspace) Ingest(resp AnalyzeResponse, sourceType string) Result {
	ts, err := time.ParseInLocation(TimestampLayout, resp.Timestamp, time.Local)
	if err != nil {
		ts = w.now()
	}

	r := Result{
		Counts:           resp.Results.Clone(),
		ZonesAvailable:   resp.ZonesAvailable,
		ZonesLoaded:      resp.ZonesLoaded,
		ProcessedImage:   resp.ProcessedImage,
		OriginalImage:    resp.OriginalImage,
		ImageSize:        resp.ImageSize,
		Confidence:       resp.ConfidenceUsed,
		DetectionsByZone: resp.DetectionsByZone,
		Timestamp:        ts,
		SourceType:       sourceType,
		State:            Unsynced,
	}
	if resp.AnalysisID != "" {
		r.State = Synced
		r.RemoteID = resp.AnalysisID
	}

	if resp.TotalCherries != r.Total() {
		w.logger.Warn("response total differs from counts",
			"reported", resp.TotalCherries,
			"computed", r.Total(),
		)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.gen++
	r.Generation = w.gen
	w.active = &r
	return r.clone()
}

// Adjust adds delta to label, clamping at zero. An absent label is treated
// as zero and kept as an explicit entry. The manual flag is not changed.
func (w *Workspace) Adjust(label string, delta int) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.active == nil {
		return 0, ErrNoActiveResult
	}
	return w.active.Counts.Add(label, delta), nil
}

// SetCount replaces the count of label, clamping negatives to zero.
func (w *Workspace) SetCount(label string, n int) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.active == nil {
		return 0, ErrNoActiveResult
	}
	return w.active.Counts.Set(label, n), nil
}

// SetCountInput parses raw operator input for SetCount. Text that is not
// an integer sets zero.
func (w *Workspace) SetCountInput(label, raw string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		n = 0
	}
	return w.SetCount(label, n)
}

// Add increments a label chosen from the profile's existing set and marks
// the result as manually altered.
func (w *Workspace) Add(label string, count int) (int, error) {
	if count < 1 {
		return 0, ErrInvalidCount
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.active == nil {
		return 0, ErrNoActiveResult
	}
	w.active.ManuallyAltered = true
	return w.active.Counts.Add(label, count), nil
}

// AddNew records a label that is not in p's available set. The count is
// applied before the optional persistence through the registry, and stays
// applied whatever persistence reports. Rejected input changes nothing and
// makes no network call.
func (w *Workspace) AddNew(ctx context.Context, p profiles.Profile, label string, count int, persist bool) (AddOutcome, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return AddOutcome{}, ErrEmptyLabel
	}
	if count < 1 {
		return AddOutcome{}, ErrInvalidCount
	}
	if w.labels.Has(p, label) {
		return AddOutcome{}, ErrLabelExists
	}

	w.mu.Lock()
	if w.active == nil {
		w.mu.Unlock()
		return AddOutcome{}, ErrNoActiveResult
	}
	w.active.ManuallyAltered = true
	outcome := AddOutcome{Count: w.active.Counts.Add(label, count)}
	w.mu.Unlock()

	if !persist {
		return outcome, nil
	}

	if err := w.labels.AddLabel(ctx, p, label); err != nil {
		w.logger.Warn("label not persisted", "profile", p.ID, "label", label, "error", err)
		outcome.Persist = PersistFailed
		outcome.PersistErr = err
		return outcome, nil
	}

	outcome.Persist = Persisted
	return outcome, nil
}

// Snapshot returns a copy of the active result.
func (w *Workspace) Snapshot() (Result, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.active == nil {
		return Result{}, ErrNoActiveResult
	}
	return w.active.clone(), nil
}

// Active reports whether a result is loaded.
func (w *Workspace) Active() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.active != nil
}

// Reset discards the active result.
func (w *Workspace) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.active = nil
}

// MarkSynced records remote acceptance of the result with generation gen.
// It returns ErrStaleResult if that result is no longer active.
func (w *Workspace) MarkSynced(gen uint64, id string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.current(gen); err != nil {
		return err
	}
	w.active.State = Synced
	w.active.RemoteID = id
	return nil
}

// MarkSyncFailed records that neither the remote store nor the local cache
// accepted the result with generation gen. A synced result stays synced.
func (w *Workspace) MarkSyncFailed(gen uint64) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.current(gen); err != nil {
		return err
	}
	if w.active.State != Synced {
		w.active.State = SyncFailed
	}
	return nil
}

// current must be called with mu held.
func (w *Workspace) current(gen uint64) error {
	if w.active == nil {
		return ErrNoActiveResult
	}
	if w.active.Generation != gen {
		return ErrStaleResult
	}
	return nil
}
