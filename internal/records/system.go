package records

import (
	"context"

	"github.com/google/uuid"

	"github.com/JaimeStill/rancoqc/internal/analysis"
	"github.com/JaimeStill/rancoqc/pkg/pagination"
)

// System defines the public contract for analysis record operations.
type System interface {
	Handler(fallback Fallback, maxBodySize int64) *Handler

	Create(ctx context.Context, payload analysis.UploadPayload) (*Analysis, error)
	Find(ctx context.Context, id uuid.UUID) (*Analysis, error)
	List(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Analysis], error)
	History(ctx context.Context, filters Filters, limit int) ([]analysis.Record, error)
	LogSync(ctx context.Context, log SyncLog) error
	Ping(ctx context.Context) error
}

// Fallback serves history and counts from the degraded-mode cache when the
// remote store cannot. Resync stores one cache entry remotely and returns
// its remote id; an unknown entry yields ErrCacheEntryNotFound.
type Fallback interface {
	History(ctx context.Context, filters Filters, limit int) ([]analysis.Record, error)
	Counts(ctx context.Context) (CacheCounts, error)
	Resync(ctx context.Context, cacheID string) (string, error)
}
