// Package history lists persisted analyses and resends the ones still
// held in the backend's local pending cache.
package history

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/JaimeStill/rancoqc/internal/analysis"
	"github.com/JaimeStill/rancoqc/internal/submission"
)

// DefaultLimit bounds a history load when no limit is given.
const DefaultLimit = 50

// Filters narrow a history load. Empty fields do not filter.
type Filters struct {
	Operator     string
	AnalysisType string
	From         time.Time
	To           time.Time
	Limit        int
}

// Source is the backend view of stored analyses and the pending cache.
type Source interface {
	History(ctx context.Context, f Filters) ([]analysis.Record, error)
	ClearSynced(ctx context.Context) (analysis.ClearReport, error)
	SyncPending(ctx context.Context, user string) (analysis.SyncReport, error)
	DatabaseStatus(ctx context.Context) (analysis.DatabaseStatus, error)
}

// Resubmitter resends a record to the remote store.
type Resubmitter interface {
	Resubmit(ctx context.Context, rec analysis.Record) (submission.Receipt, error)
}

// Stats summarizes the loaded records.
type Stats struct {
	Total   int `json:"total"`
	Synced  int `json:"synced"`
	Pending int `json:"pending"`
}

// Browser holds the last loaded history. The list is only ever replaced by
// a reload from the source.
type Browser struct {
	source   Source
	pipeline Resubmitter
	logger   *slog.Logger

	mu      sync.RWMutex
	filters Filters
	records []analysis.Record
}

// New creates a browser with nothing loaded.
func New(source Source, pipeline Resubmitter, logger *slog.Logger) *Browser {
	return &Browser{
		source:   source,
		pipeline: pipeline,
		logger:   logger.With("system", "history"),
	}
}

// Load replaces the loaded records with those matching f. An empty
// history is not an error.
func (b *Browser) Load(ctx context.Context, f Filters) ([]analysis.Record, error) {
	if f.Limit <= 0 {
		f.Limit = DefaultLimit
	}

	records, err := b.source.History(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	b.mu.Lock()
	b.filters = f
	b.records = records
	b.mu.Unlock()

	b.logger.Info("history loaded", "count", len(records))
	return slices.Clone(records), nil
}

// Records returns the loaded records.
func (b *Browser) Records() []analysis.Record {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return slices.Clone(b.records)
}

// Find returns the loaded record with id.
func (b *Browser) Find(id string) (analysis.Record, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	i := slices.IndexFunc(b.records, func(r analysis.Record) bool { return r.ID == id })
	if i < 0 {
		return analysis.Record{}, fmt.Errorf("%w: %s", ErrRecordNotFound, id)
	}
	return b.records[i], nil
}

// Resync resends one loaded record. After a successful upload the history
// is reloaded with the last filters.
func (b *Browser) Resync(ctx context.Context, id string) (submission.Receipt, error) {
	rec, err := b.Find(id)
	if err != nil {
		return submission.Receipt{Outcome: submission.OutcomeFailed}, err
	}

	receipt, err := b.pipeline.Resubmit(ctx, rec)
	if err != nil {
		return receipt, err
	}

	if receipt.Outcome == submission.OutcomeSynced {
		if _, err := b.reload(ctx); err != nil {
			return receipt, err
		}
	}
	return receipt, nil
}

// ClearSyncedCache drops synced entries from the backend cache and reloads.
func (b *Browser) ClearSyncedCache(ctx context.Context) (analysis.ClearReport, error) {
	report, err := b.source.ClearSynced(ctx)
	if err != nil {
		return report, fmt.Errorf("clear synced cache: %w", err)
	}

	if _, err := b.reload(ctx); err != nil {
		return report, err
	}
	return report, nil
}

// SyncPending asks the backend to push every pending cache entry to the
// remote store on behalf of user, then reloads.
func (b *Browser) SyncPending(ctx context.Context, user string) (analysis.SyncReport, error) {
	report, err := b.source.SyncPending(ctx, user)
	if err != nil {
		return report, fmt.Errorf("sync pending: %w", err)
	}

	if report.Errors > 0 {
		b.logger.Warn("pending sync incomplete", "synced", report.Synced, "errors", report.Errors)
	}

	if _, err := b.reload(ctx); err != nil {
		return report, err
	}
	return report, nil
}

// Stats counts the loaded records by sync state.
func (b *Browser) Stats() Stats {
	b.mu.RLock()
	defer b.mu.RUnlock()

	s := Stats{Total: len(b.records)}
	for _, r := range b.records {
		if r.Synced {
			s.Synced++
		}
	}
	s.Pending = s.Total - s.Synced
	return s
}

// DatabaseStatus reports remote store reachability and cache counts.
func (b *Browser) DatabaseStatus(ctx context.Context) (analysis.DatabaseStatus, error) {
	return b.source.DatabaseStatus(ctx)
}

func (b *Browser) reload(ctx context.Context) ([]analysis.Record, error) {
	b.mu.RLock()
	f := b.filters
	b.mu.RUnlock()
	return b.Load(ctx, f)
}
