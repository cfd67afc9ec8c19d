package pending

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/oklog/ulid/v2"
	"golang.org/x/sync/errgroup"

	"github.com/JaimeStill/rancoqc/internal/analysis"
	"github.com/JaimeStill/rancoqc/internal/records"
	"github.com/JaimeStill/rancoqc/pkg/database"
	"github.com/JaimeStill/rancoqc/pkg/lifecycle"
	"github.com/JaimeStill/rancoqc/pkg/metrics"
)

const (
	keyPrefix       = "pending/"
	syncConcurrency = 4
)

// Operator-facing sync messages.
const (
	msgNothingPending = "No hay datos pendientes"
	msgSyncFormat     = "Sincronizados: %d, Errores: %d"
)

type cache struct {
	db          *badger.DB
	recorder    Recorder
	metrics     *metrics.Metrics
	logger      *slog.Logger
	maxAttempts int

	syncMu sync.Mutex

	idMu    sync.Mutex
	entropy io.Reader
}

// New creates a badger-backed pending cache. Entries move to failed after
// maxAttempts unsuccessful syncs.
func New(
	db *badger.DB,
	recorder Recorder,
	m *metrics.Metrics,
	logger *slog.Logger,
	maxAttempts int,
) System {
	return &cache{
		db:          db,
		recorder:    recorder,
		metrics:     m,
		logger:      logger.With("system", "pending"),
		maxAttempts: maxAttempts,
		entropy:     ulid.Monotonic(rand.Reader, 0),
	}
}

func (c *cache) Handler(maxBodySize int64) *Handler {
	return NewHandler(c, c.logger, maxBodySize)
}

func (c *cache) newID(now time.Time) string {
	c.idMu.Lock()
	defer c.idMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(now), c.entropy).String()
}

func (c *cache) Save(ctx context.Context, payload analysis.UploadPayload) (*Entry, error) {
	if err := records.Validate(payload); err != nil {
		c.metrics.PendingSaves.WithLabelValues("rejected").Inc()
		return nil, err
	}

	now := time.Now().UTC()
	e := Entry{
		ID:        c.newID(now),
		CreatedAt: now,
		State:     StatePending,
		Payload:   payload,
	}

	err := c.db.Update(func(txn *badger.Txn) error {
		return put(txn, e)
	})
	c.metrics.PendingSaves.WithLabelValues(metrics.Outcome(err)).Inc()
	if err != nil {
		return nil, fmt.Errorf("save cache entry: %w", err)
	}

	c.logger.InfoContext(ctx, "analysis cached", "id", e.ID, "lote", payload.FormData.Lot)
	return &e, nil
}

func (c *cache) List(ctx context.Context, state State) ([]Entry, error) {
	switch state {
	case "", StatePending, StateSynced, StateFailed:
	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidState, state)
	}

	entries, err := c.entries(func(e Entry) bool {
		return state == "" || e.State == state
	})
	if err != nil {
		return nil, err
	}
	slices.Reverse(entries)
	return entries, nil
}

// Sync pushes pending entries to the remote store. Runs are serialized;
// a run started while another is in progress waits for it.
func (c *cache) Sync(ctx context.Context, user, kind string) (analysis.SyncReport, error) {
	c.syncMu.Lock()
	defer c.syncMu.Unlock()

	pending, err := c.entries(func(e Entry) bool { return e.State == StatePending })
	if err != nil {
		return analysis.SyncReport{}, err
	}

	if len(pending) == 0 {
		return analysis.SyncReport{Message: msgNothingPending}, nil
	}

	outcomes := make([]bool, len(pending))

	var g errgroup.Group
	g.SetLimit(syncConcurrency)

	for i := range pending {
		g.Go(func() error {
			outcomes[i] = c.syncOne(ctx, &pending[i]) == nil
			return c.db.Update(func(txn *badger.Txn) error {
				return put(txn, pending[i])
			})
		})
	}

	if err := g.Wait(); err != nil {
		return analysis.SyncReport{}, fmt.Errorf("update cache entries: %w", err)
	}

	var report analysis.SyncReport
	for _, ok := range outcomes {
		if ok {
			report.Synced++
		} else {
			report.Errors++
		}
	}
	report.Message = fmt.Sprintf(msgSyncFormat, report.Synced, report.Errors)

	c.logger.Info(
		"pending sync finished",
		"type", kind,
		"synced", report.Synced,
		"errors", report.Errors,
	)
	c.logSync(ctx, user, kind, report)
	return report, nil
}

// Resync pushes the entry with id to the remote store and returns its
// remote id. An entry that already synced returns its id without a new
// insert. Runs are serialized with Sync.
func (c *cache) Resync(ctx context.Context, id string) (string, error) {
	c.syncMu.Lock()
	defer c.syncMu.Unlock()

	e, err := c.get(id)
	if err != nil {
		return "", err
	}
	if e.State == StateSynced {
		return e.RemoteID, nil
	}

	syncErr := c.syncOne(ctx, &e)
	if err := c.db.Update(func(txn *badger.Txn) error {
		return put(txn, e)
	}); err != nil {
		return "", fmt.Errorf("update cache entry %s: %w", id, err)
	}
	if syncErr != nil {
		return "", fmt.Errorf("resync %s: %w", id, syncErr)
	}

	c.logger.InfoContext(ctx, "cache entry resynced", "id", id, "analysis_id", e.RemoteID)
	return e.RemoteID, nil
}

// syncOne attempts one entry and updates it in place.
func (c *cache) syncOne(ctx context.Context, e *Entry) error {
	now := time.Now().UTC()
	e.LastAttempt = &now

	a, err := c.recorder.Create(ctx, e.Payload)
	if err == nil {
		e.State = StateSynced
		e.RemoteID = a.ID.String()
		e.LastError = ""
		c.metrics.PendingSync.WithLabelValues("synced").Inc()
		return nil
	}

	e.Attempts++
	e.LastError = err.Error()
	if e.Attempts >= c.maxAttempts || errors.Is(err, records.ErrInvalidPayload) {
		e.State = StateFailed
		c.metrics.PendingSync.WithLabelValues("failed").Inc()
		c.logger.Warn("cache entry failed permanently", "id", e.ID, "attempts", e.Attempts, "error", err)
		return err
	}

	c.metrics.PendingSync.WithLabelValues("error").Inc()
	c.logger.Warn("cache entry sync failed", "id", e.ID, "attempts", e.Attempts, "error", err)
	return err
}

func (c *cache) logSync(ctx context.Context, user, kind string, report analysis.SyncReport) {
	status := records.SyncSuccess
	switch {
	case report.Errors > 0 && report.Synced > 0:
		status = records.SyncPartial
	case report.Errors > 0:
		status = records.SyncFailed
	}

	err := c.recorder.LogSync(ctx, records.SyncLog{
		UserName: user,
		Type:     kind,
		Synced:   report.Synced,
		Errors:   report.Errors,
		Status:   status,
		Message:  report.Message,
	})
	if err != nil {
		c.logger.Warn("sync history not written", "error", err)
	}
}

func (c *cache) ClearSynced(ctx context.Context) (int, error) {
	synced, err := c.entries(func(e Entry) bool { return e.State == StateSynced })
	if err != nil {
		return 0, err
	}

	wb := c.db.NewWriteBatch()
	defer wb.Cancel()

	for _, e := range synced {
		if err := wb.Delete(key(e.ID)); err != nil {
			return 0, fmt.Errorf("clear cache entry %s: %w", e.ID, err)
		}
	}
	if err := wb.Flush(); err != nil {
		return 0, fmt.Errorf("clear synced entries: %w", err)
	}

	c.logger.InfoContext(ctx, "synced cache entries cleared", "count", len(synced))
	return len(synced), nil
}

func (c *cache) History(ctx context.Context, filters records.Filters, limit int) ([]analysis.Record, error) {
	entries, err := c.entries(func(e Entry) bool {
		form := e.Payload.FormData
		if filters.UserName != nil && form.User != *filters.UserName {
			return false
		}
		if filters.AnalysisType != nil && form.AnalysisType != *filters.AnalysisType {
			return false
		}
		if filters.Profile != nil && form.Profile != *filters.Profile {
			return false
		}
		return true
	})
	if err != nil {
		return nil, err
	}

	slices.Reverse(entries)
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}

	out := make([]analysis.Record, len(entries))
	for i, e := range entries {
		out[i] = e.Record()
	}
	return out, nil
}

func (c *cache) Counts(ctx context.Context) (records.CacheCounts, error) {
	var counts records.CacheCounts
	_, err := c.entries(func(e Entry) bool {
		switch e.State {
		case StatePending:
			counts.Pending++
		case StateFailed:
			counts.Failed++
		case StateSynced:
			counts.Synced++
		}
		return false
	})
	return counts, err
}

// Start runs one startup sync once the database answers, so entries cached
// before a restart reach the store without operator action.
func (c *cache) Start(lc *lifecycle.Coordinator) error {
	lc.OnStartup("pending", func(ctx context.Context) error {
		report, err := c.Sync(ctx, "", records.SyncStartup)
		if err != nil {
			return fmt.Errorf("startup sync: %w", err)
		}
		if report.Synced+report.Errors > 0 {
			c.logger.Info("startup sync", "synced", report.Synced, "errors", report.Errors)
		}
		return nil
	}, database.Hook)
	return nil
}

// entries returns matching entries oldest first. ULID keys sort by time.
func (c *cache) entries(match func(Entry) bool) ([]Entry, error) {
	var out []Entry
	prefix := []byte(keyPrefix)

	err := c.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var e Entry
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &e)
			})
			if err != nil {
				return fmt.Errorf("decode %s: %w", it.Item().Key(), err)
			}
			if match(e) {
				out = append(out, e)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read cache: %w", err)
	}
	return out, nil
}

func (c *cache) get(id string) (Entry, error) {
	var e Entry
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		if err != nil {
			return fmt.Errorf("read cache entry %s: %w", id, err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &e)
		})
	})
	return e, err
}

func key(id string) []byte {
	return []byte(keyPrefix + id)
}

func put(txn *badger.Txn, e Entry) error {
	val, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode %s: %w", e.ID, err)
	}
	return txn.Set(key(e.ID), val)
}
