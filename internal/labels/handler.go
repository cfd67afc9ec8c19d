package labels

import (
	"log/slog"
	"net/http"

	"github.com/JaimeStill/rancoqc/internal/profiles"
	"github.com/JaimeStill/rancoqc/pkg/handlers"
	"github.com/JaimeStill/rancoqc/pkg/routes"
)

// Handler provides HTTP endpoints for profile labels.
type Handler struct {
	sys         System
	logger      *slog.Logger
	maxBodySize int64
}

// AddRequest is the body of the add-defect endpoint.
type AddRequest struct {
	Defect string `json:"defect"`
}

// NewHandler creates a Handler bounding request bodies by maxBodySize.
func NewHandler(sys System, logger *slog.Logger, maxBodySize int64) *Handler {
	return &Handler{
		sys:         sys,
		logger:      logger.With("handler", "labels"),
		maxBodySize: maxBodySize,
	}
}

// Routes returns the label endpoints mounted under the API prefix.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Children: []routes.Group{
			{
				Prefix: "/defects",
				Routes: []routes.Route{
					{Method: "GET", Pattern: "/{profile}", Handler: h.List, Summary: "List a profile's defect labels"},
				},
			},
			{
				Prefix: "/profiles/{profile}",
				Routes: []routes.Route{
					{Method: "POST", Pattern: "/defects", Handler: h.Add, Summary: "Add a defect label to a profile", Body: "AddDefectRequest"},
				},
			},
		},
	}
}

// Legacy returns the root-level profile and zone listings.
func (h *Handler) Legacy() routes.Group {
	return routes.Group{
		Routes: []routes.Route{
			{Method: "GET", Pattern: "/get_profiles", Handler: h.Profiles, Summary: "Describe the quality-control profiles"},
			{Method: "GET", Pattern: "/get_zones", Handler: h.Zones, Summary: "List the zones a profile reports counts for"},
		},
	}
}

// List returns the labels of the profile path parameter.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.sys.List(r.Context(), r.PathValue("profile"))
	if err != nil {
		handlers.RespondFailure(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondSuccess(w, http.StatusOK, map[string]any{
		"profile": list.Profile,
		"defects": list.Defects,
		"source":  list.Source,
	})
}

// Add stores a new label for the profile path parameter.
func (h *Handler) Add(w http.ResponseWriter, r *http.Request) {
	req, err := handlers.DecodeJSON[AddRequest](r, h.maxBodySize)
	if err != nil {
		handlers.RespondFailure(w, h.logger, http.StatusBadRequest, err)
		return
	}

	d, err := h.sys.Add(r.Context(), r.PathValue("profile"), req.Defect)
	if err != nil {
		handlers.RespondFailure(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondSuccess(w, http.StatusCreated, map[string]any{
		"profile": d.Profile,
		"defect":  d.Defect,
	})
}

// Profiles lists the known inspection profiles keyed by wire id.
func (h *Handler) Profiles(w http.ResponseWriter, r *http.Request) {
	handlers.RespondSuccess(w, http.StatusOK, map[string]any{
		"profiles": h.sys.Profiles(),
	})
}

// Zones lists the zone labels of the profile query parameter, reception QC
// when it is absent.
func (h *Handler) Zones(w http.ResponseWriter, r *http.Request) {
	profile := r.URL.Query().Get("profile")
	if profile == "" {
		profile = profiles.Resolve("").Wire
	}

	list, err := h.sys.List(r.Context(), profile)
	if err != nil {
		handlers.RespondFailure(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	p := profiles.Resolve(list.Profile)
	handlers.RespondSuccess(w, http.StatusOK, map[string]any{
		"profile":             list.Profile,
		"profile_name":        p.Name,
		"profile_description": p.Description,
		"zones":               list.Defects,
		"zones_count":         len(list.Defects),
		"source":              list.Source,
	})
}
