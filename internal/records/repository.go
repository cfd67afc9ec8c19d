package records

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/JaimeStill/rancoqc/internal/analysis"
	"github.com/JaimeStill/rancoqc/pkg/events"
	"github.com/JaimeStill/rancoqc/pkg/metrics"
	"github.com/JaimeStill/rancoqc/pkg/pagination"
	"github.com/JaimeStill/rancoqc/pkg/query"
	"github.com/JaimeStill/rancoqc/pkg/repository"
)

type repo struct {
	db         *sql.DB
	events     events.Publisher
	metrics    *metrics.Metrics
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates an analysis record repository implementing the System interface.
func New(
	db *sql.DB,
	pub events.Publisher,
	m *metrics.Metrics,
	logger *slog.Logger,
	pagination pagination.Config,
) System {
	return &repo{
		db:         db,
		events:     pub,
		metrics:    m,
		logger:     logger.With("system", "records"),
		pagination: pagination,
	}
}

func (r *repo) Handler(fallback Fallback, maxBodySize int64) *Handler {
	return NewHandler(r, fallback, r.logger, r.pagination, maxBodySize)
}

// Create validates and stores payload. The stored total is recomputed from
// the counts, never taken from the payload.
func (r *repo) Create(ctx context.Context, payload analysis.UploadPayload) (*Analysis, error) {
	if err := Validate(payload); err != nil {
		r.metrics.Records.WithLabelValues("rejected").Inc()
		return nil, err
	}

	form := payload.FormData
	res := payload.ResultsData

	results, err := json.Marshal(res.Results)
	if err != nil {
		return nil, fmt.Errorf("encode results: %w", err)
	}

	detections := res.DetectionsByZone
	if len(detections) == 0 || string(detections) == "null" {
		detections = json.RawMessage("{}")
	}

	confidence := payload.AnalysisData.ConfidenceUsed
	if confidence == 0 {
		confidence = analysis.DefaultConfidence
	}

	const q = `
		INSERT INTO analysis_results(
			id, user_name, analysis_type, profile, distribucion, guia_sii, lote,
			num_frutos, num_proceso, id_caja, source_type, confidence_used,
			total_detections, zones_analyzed, results, detections_by_zone,
			processed_image_path, original_image_path, image_size)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		RETURNING id, created_at, user_name, analysis_type, profile, distribucion, guia_sii, lote,
			num_frutos, num_proceso, id_caja, source_type, confidence_used,
			total_detections, zones_analyzed, results, detections_by_zone,
			processed_image_path, original_image_path, image_size`

	args := []any{
		uuid.New(),
		form.User,
		form.AnalysisType,
		form.Profile,
		form.Distribution,
		form.ShippingGuide,
		form.Lot,
		form.FruitCount,
		form.ProcessNumber,
		form.BoxID,
		payload.AnalysisData.SourceType,
		confidence,
		res.Results.Total(),
		res.ZonesLoaded,
		string(results),
		string(detections),
		deref(res.ProcessedImage),
		deref(res.OriginalImage),
		deref(res.ImageSize),
	}

	a, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Analysis, error) {
		return repository.QueryOne(ctx, tx, q, args, scanAnalysis)
	})
	r.metrics.Records.WithLabelValues(metrics.Outcome(err)).Inc()
	if err != nil {
		return nil, errMap.Map(err)
	}

	r.logger.Info(
		"analysis recorded",
		"id", a.ID,
		"profile", a.Profile,
		"lote", a.Lot,
		"total", a.TotalDetections,
	)
	r.publish(ctx, a)
	return &a, nil
}

func (r *repo) publish(ctx context.Context, a Analysis) {
	err := r.events.Publish(ctx, EventRecorded, map[string]any{
		"id":               a.ID,
		"user_name":        a.UserName,
		"profile":          a.Profile,
		"lote":             a.Lot,
		"source_type":      a.SourceType,
		"total_detections": a.TotalDetections,
	})
	r.metrics.EventPublish.WithLabelValues(EventRecorded, metrics.Outcome(err)).Inc()
	if err != nil {
		r.logger.Warn("event publish failed", "subject", EventRecorded, "error", err)
	}
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*Analysis, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	a, err := repository.QueryOne(ctx, r.db, q, args, scanAnalysis)
	if err != nil {
		return nil, errMap.Map(err)
	}
	return &a, nil
}

func (r *repo) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Analysis], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(projection, defaultSort).
		WhereSearch(page.Search, "Lot", "ShippingGuide", "UserName")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	items, total, err := repository.QueryPage(
		ctx,
		r.db,
		repository.Stmt(qb.BuildCount()),
		repository.Stmt(qb.BuildPage(page.Page, page.PageSize)),
		scanAnalysis,
	)
	if err != nil {
		return nil, fmt.Errorf("list analyses: %w", err)
	}

	result := pagination.NewPageResult(items, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) History(ctx context.Context, filters Filters, limit int) ([]analysis.Record, error) {
	qb := query.NewBuilder(projection, defaultSort)
	filters.Apply(qb)

	q, args := qb.BuildLimit(limit)
	items, err := repository.QueryMany(ctx, r.db, q, args, scanAnalysis)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}

	out := make([]analysis.Record, len(items))
	for i, a := range items {
		out[i] = a.Record()
	}
	return out, nil
}

func (r *repo) LogSync(ctx context.Context, log SyncLog) error {
	err := repository.ExecExpectOne(
		ctx,
		r.db,
		`INSERT INTO sync_history(user_name, sync_type, synced, errors, status, message)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		log.UserName, log.Type, log.Synced, log.Errors, log.Status, log.Message,
	)
	if err != nil {
		return fmt.Errorf("log sync: %w", err)
	}
	return nil
}

func (r *repo) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
