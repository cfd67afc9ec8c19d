package records

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/rancoqc/internal/analysis"
	"github.com/JaimeStill/rancoqc/internal/export"
	"github.com/JaimeStill/rancoqc/pkg/handlers"
	"github.com/JaimeStill/rancoqc/pkg/pagination"
	"github.com/JaimeStill/rancoqc/pkg/routes"
)

// History sources reported by the history endpoint.
const (
	SourceDatabase   = "database"
	SourceLocalCache = "local_cache"
)

const pingTimeout = 3 * time.Second

// Handler provides HTTP endpoints for analysis records.
type Handler struct {
	sys         System
	fallback    Fallback
	logger      *slog.Logger
	pagination  pagination.Config
	maxBodySize int64
}

// NewHandler creates a Handler. fallback serves history and cache counts
// when the store is unreachable.
func NewHandler(
	sys System,
	fallback Fallback,
	logger *slog.Logger,
	pagination pagination.Config,
	maxBodySize int64,
) *Handler {
	return &Handler{
		sys:         sys,
		fallback:    fallback,
		logger:      logger.With("handler", "records"),
		pagination:  pagination,
		maxBodySize: maxBodySize,
	}
}

// Routes returns the paged analysis endpoints mounted under the API prefix.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/analyses",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: h.List, Summary: "Page through stored analyses"},
			{Method: "GET", Pattern: "/{id}", Handler: h.Find, Summary: "Fetch one analysis"},
			{Method: "GET", Pattern: "/{id}/export", Handler: h.Export, Summary: "Download an analysis as CSV"},
		},
	}
}

// Legacy returns the root-level endpoints polled by operator stations.
func (h *Handler) Legacy() routes.Group {
	return routes.Group{
		Routes: []routes.Route{
			{Method: "POST", Pattern: "/force_upload_analysis", Handler: h.Upload, Summary: "Store an analysis, caching it if the database is down", Body: "UploadPayload"},
			{Method: "GET", Pattern: "/get_analysis_history", Handler: h.History, Summary: "List recent analyses, newest first"},
			{Method: "GET", Pattern: "/database_status", Handler: h.Status, Summary: "Report database and cache health"},
		},
	}
}

// Upload stores a finished analysis and returns its id. A payload naming a
// cache entry is stored through the cache, which marks the entry synced.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	payload, err := handlers.DecodeJSON[analysis.UploadPayload](r, h.maxBodySize)
	if err != nil {
		handlers.RespondFailure(w, h.logger, http.StatusBadRequest, err)
		return
	}

	if cacheID := payload.AnalysisData.CacheID; cacheID != "" {
		id, err := h.fallback.Resync(r.Context(), cacheID)
		if err != nil {
			h.respondCreateError(w, err)
			return
		}
		handlers.RespondSuccess(w, http.StatusCreated, map[string]any{
			"analysis_id": id,
			"message":     "cached analysis stored",
		})
		return
	}

	a, err := h.sys.Create(r.Context(), payload)
	if err != nil {
		h.respondCreateError(w, err)
		return
	}

	handlers.RespondSuccess(w, http.StatusCreated, map[string]any{
		"analysis_id": a.ID.String(),
		"message":     "analysis stored",
	})
}

func (h *Handler) respondCreateError(w http.ResponseWriter, err error) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		h.logger.Warn("payload rejected", "details", verr.Details)
		handlers.RespondJSON(w, http.StatusBadRequest, map[string]any{
			"success": false,
			"error":   ErrInvalidPayload.Error(),
			"details": verr.Details,
		})
		return
	}
	handlers.RespondFailure(w, h.logger, MapHTTPStatus(err), err)
}

// History lists stored analyses newest first, falling back to cache
// entries when the store fails.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	filters := FiltersFromQuery(r.URL.Query())
	limit := h.pagination.Limit(r.URL.Query().Get("limit"))

	source := SourceDatabase
	items, err := h.sys.History(r.Context(), filters, limit)
	if err != nil {
		h.logger.Warn("history query failed, reading local cache", "error", err)
		source = SourceLocalCache
		items, err = h.fallback.History(r.Context(), filters, limit)
	}
	if err != nil {
		handlers.RespondFailure(w, h.logger, http.StatusInternalServerError, err)
		return
	}

	if items == nil {
		items = []analysis.Record{}
	}

	handlers.RespondSuccess(w, http.StatusOK, map[string]any{
		"history": items,
		"count":   len(items),
		"source":  source,
	})
}

// Status reports store reachability and cache entry counts.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
	defer cancel()

	connected := h.sys.Ping(ctx) == nil

	counts, err := h.fallback.Counts(r.Context())
	if err != nil {
		h.logger.Warn("cache counts unavailable", "error", err)
	}

	handlers.RespondSuccess(w, http.StatusOK, map[string]any{
		"db_connected":  connected,
		"local_pending": counts.Pending,
		"local_failed":  counts.Failed,
		"local_synced":  counts.Synced,
	})
}

// List returns a paginated list of stored analyses.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page := pagination.PageRequestFromQuery(r.URL.Query(), h.pagination)
	filters := FiltersFromQuery(r.URL.Query())

	result, err := h.sys.List(r.Context(), page, filters)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// Find returns a stored analysis by its UUID path parameter.
func (h *Handler) Find(w http.ResponseWriter, r *http.Request) {
	a, ok := h.find(w, r)
	if !ok {
		return
	}
	handlers.RespondJSON(w, http.StatusOK, a)
}

// Export downloads a stored analysis as a CSV report.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	a, ok := h.find(w, r)
	if !ok {
		return
	}

	rec := a.Record()
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set(
		"Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", export.RecordFilename(rec, time.Now())),
	)
	w.WriteHeader(http.StatusOK)
	w.Write(export.RecordReport(rec))
}

func (h *Handler) find(w http.ResponseWriter, r *http.Request) (*Analysis, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidID)
		return nil, false
	}

	a, err := h.sys.Find(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return nil, false
	}
	return a, true
}
