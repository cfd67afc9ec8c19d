package pending

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/JaimeStill/rancoqc/internal/analysis"
	"github.com/JaimeStill/rancoqc/internal/auth"
	"github.com/JaimeStill/rancoqc/internal/records"
	"github.com/JaimeStill/rancoqc/pkg/handlers"
	"github.com/JaimeStill/rancoqc/pkg/routes"
)

// Handler provides HTTP endpoints for the pending cache.
type Handler struct {
	sys         System
	logger      *slog.Logger
	maxBodySize int64
}

// SyncRequest is the optional body of the sync endpoint.
type SyncRequest struct {
	UserName string `json:"user_name"`
}

// NewHandler creates a Handler bounding request bodies by maxBodySize.
func NewHandler(sys System, logger *slog.Logger, maxBodySize int64) *Handler {
	return &Handler{
		sys:         sys,
		logger:      logger.With("handler", "pending"),
		maxBodySize: maxBodySize,
	}
}

// Routes returns the cache inspection endpoint mounted under the API prefix.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/pending",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: h.List, Summary: "List cached analyses awaiting sync"},
		},
	}
}

// Legacy returns the root-level cache endpoints polled by operator stations.
func (h *Handler) Legacy() routes.Group {
	return routes.Group{
		Routes: []routes.Route{
			{Method: "POST", Pattern: "/save_to_cache", Handler: h.Save, Summary: "Hold an analysis in the local cache", Body: "UploadPayload"},
			{Method: "POST", Pattern: "/sync_pending_data", Handler: h.Sync, Summary: "Replay cached analyses to the database", Body: "SyncRequest"},
			{Method: "POST", Pattern: "/clear_local_cache", Handler: h.Clear, Summary: "Drop cache entries that already synced"},
		},
	}
}

// Save caches an upload payload for a later sync.
func (h *Handler) Save(w http.ResponseWriter, r *http.Request) {
	payload, err := handlers.DecodeJSON[analysis.UploadPayload](r, h.maxBodySize)
	if err != nil {
		handlers.RespondFailure(w, h.logger, http.StatusBadRequest, err)
		return
	}

	e, err := h.sys.Save(r.Context(), payload)
	if err != nil {
		handlers.RespondFailure(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondSuccess(w, http.StatusCreated, map[string]any{
		"cache_id": e.ID,
		"message":  "analysis stored in local cache",
	})
}

// Sync moves pending entries to the remote store. The operator name comes
// from the body, or from the session when the body omits it.
func (h *Handler) Sync(w http.ResponseWriter, r *http.Request) {
	req, err := handlers.DecodeJSON[SyncRequest](r, h.maxBodySize)
	if err != nil && !errors.Is(err, io.EOF) {
		handlers.RespondFailure(w, h.logger, http.StatusBadRequest, err)
		return
	}

	user := req.UserName
	if c, ok := auth.FromContext(r.Context()); ok && user == "" {
		user = c.DisplayName()
	}

	report, err := h.sys.Sync(r.Context(), user, records.SyncManual)
	if err != nil {
		handlers.RespondFailure(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondSuccess(w, http.StatusOK, map[string]any{
		"sync_result": report,
	})
}

// Clear drops entries that already reached the remote store.
func (h *Handler) Clear(w http.ResponseWriter, r *http.Request) {
	n, err := h.sys.ClearSynced(r.Context())
	if err != nil {
		handlers.RespondFailure(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondSuccess(w, http.StatusOK, map[string]any{
		"cleared": n,
		"message": "synced cache entries cleared",
	})
}

// List returns cache entries newest first, optionally filtered by status.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	entries, err := h.sys.List(r.Context(), State(r.URL.Query().Get("status")))
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	if entries == nil {
		entries = []Entry{}
	}

	handlers.RespondJSON(w, http.StatusOK, map[string]any{
		"entries": entries,
		"count":   len(entries),
	})
}
