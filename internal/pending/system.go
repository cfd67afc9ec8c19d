package pending

import (
	"context"

	"github.com/JaimeStill/rancoqc/internal/analysis"
	"github.com/JaimeStill/rancoqc/internal/records"
	"github.com/JaimeStill/rancoqc/pkg/lifecycle"
)

// System defines the public contract for the pending cache. It also serves
// as the records fallback for history and cache counts.
type System interface {
	Handler(maxBodySize int64) *Handler

	Save(ctx context.Context, payload analysis.UploadPayload) (*Entry, error)
	List(ctx context.Context, state State) ([]Entry, error)
	Sync(ctx context.Context, user, kind string) (analysis.SyncReport, error)
	ClearSynced(ctx context.Context) (int, error)
	History(ctx context.Context, filters records.Filters, limit int) ([]analysis.Record, error)
	Counts(ctx context.Context) (records.CacheCounts, error)
	Resync(ctx context.Context, id string) (string, error)
	Start(lc *lifecycle.Coordinator) error
}

// Recorder stores synced payloads in the remote store.
type Recorder interface {
	Create(ctx context.Context, payload analysis.UploadPayload) (*records.Analysis, error)
	LogSync(ctx context.Context, log records.SyncLog) error
}
