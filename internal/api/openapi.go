package api

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/JaimeStill/rancoqc/internal/config"
	"github.com/JaimeStill/rancoqc/pkg/openapi"
	"github.com/JaimeStill/rancoqc/pkg/routes"
)

var pathParam = regexp.MustCompile(`\{(\w+)(\.\.\.)?\}`)

// multipart names request bodies sent as multipart/form-data rather than JSON.
var multipart = map[string]*openapi.Schema{
	"AnalyzeImageForm": openapi.Object(map[string]*openapi.Schema{
		"image":        {Type: "string", Format: "binary", Description: "JPEG or PNG capture"},
		"metadata":     {Type: "string", Description: "JSON-encoded form data"},
		"profile":      {Type: "string", Description: "Profile wire id; overrides metadata"},
		"distribucion": {Type: "string", Description: "Distribution; overrides metadata"},
	}, "image"),
}

// buildSpec describes every registered route from its routes.Route
// metadata. Secured routes document the 401 response.
func buildSpec(cfg *config.Config, set routeSet) *openapi.Spec {
	spec := openapi.NewSpec(cfg.API.OpenAPI.Title, cfg.Version)
	spec.SetDescription(cfg.API.OpenAPI.Description)
	for _, url := range cfg.API.OpenAPI.Servers {
		spec.AddServer(url)
	}
	spec.Components.AddSchemas(schemas())

	addRoutes(spec, cfg.API.BasePath, set.module)
	addRoutes(spec, "", set.legacy)
	addRoutes(spec, cfg.API.BasePath, []routes.Group{{
		Routes: []routes.Route{{Method: http.MethodGet, Pattern: "/openapi.json", Summary: "This document"}},
	}})

	return spec
}

func addRoutes(spec *openapi.Spec, prefix string, groups []routes.Group) {
	for pattern, route := range routes.Walk(groups...) {
		method, path, _ := strings.Cut(pattern, " ")
		path = prefix + pathParam.ReplaceAllString(path, "{$1}")

		op := &openapi.Operation{
			Summary: route.Summary,
			Tags:    []string{tag(path, prefix)},
			Responses: map[int]*openapi.Response{
				http.StatusOK:         {Description: "Success"},
				http.StatusBadRequest: openapi.ResponseRef("BadRequest"),
			},
		}
		for _, m := range pathParam.FindAllStringSubmatch(path, -1) {
			param := openapi.PathParam(m[1], m[1])
			if m[1] == "id" {
				param.Schema.Format = "uuid"
			}
			op.Parameters = append(op.Parameters, param)
		}
		if route.Body != "" {
			if parts, ok := multipart[route.Body]; ok {
				op.RequestBody = openapi.RequestBodyMultipart(parts)
			} else {
				op.RequestBody = openapi.RequestBodyJSON(route.Body, true)
			}
		}
		if route.Secured {
			op.Responses[http.StatusUnauthorized] = openapi.ResponseRef("Unauthorized")
		}

		spec.Path(path).Set(method, op)
	}
}

func tag(path, prefix string) string {
	if prefix == "" {
		return "station"
	}
	seg, _, _ := strings.Cut(strings.TrimPrefix(path, prefix+"/"), "/")
	return seg
}

func schemas() map[string]*openapi.Schema {
	str := func(desc string) *openapi.Schema { return &openapi.Schema{Type: "string", Description: desc} }
	counts := openapi.MapOf(&openapi.Schema{Type: "integer", Minimum: bound(0)})
	counts.Description = "Defect label to count, in display order"

	form := openapi.Object(map[string]*openapi.Schema{
		"user":          str("Operator name"),
		"profile":       {Type: "string", Enum: []any{"qc_recepcion", "packing_qc", "contramuestra"}},
		"analysis_type": str("Analysis type of the profile"),
		"distribucion":  str("Distribution"),
		"guia_sii":      str("SII shipping guide"),
		"lote":          str("Lot"),
		"num_frutos":    {Type: "integer", Minimum: bound(1)},
		"num_proceso":   str("Process number; packing only"),
		"id_caja":       str("Box id; packing only"),
	}, "user", "profile", "distribucion", "guia_sii", "lote", "num_frutos")

	upload := openapi.Object(map[string]*openapi.Schema{
		"analysis_data": openapi.Object(map[string]*openapi.Schema{
			"source_type":     str("Where the counts came from"),
			"confidence_used": {Type: "number", Minimum: bound(0), Maximum: bound(1)},
			"cache_id":        str("Pending cache entry being resubmitted"),
		}),
		"form_data": openapi.SchemaRef("FormData"),
		"results_data": openapi.Object(map[string]*openapi.Schema{
			"results":              counts,
			"zones_loaded":         {Type: "integer"},
			"detections_by_zone":   {Type: "object"},
			"processed_image_path": str("Image reference"),
			"original_image_path":  str("Image reference"),
		}, "results"),
	}, "form_data", "results_data")

	manual := openapi.Object(map[string]*openapi.Schema{"defects": counts}, "defects")
	manual.Description = "FormData fields plus the hand-counted defects"

	stream := openapi.Object(map[string]*openapi.Schema{
		"rtsp_url":      str("Camera stream URL"),
		"profile":       str("Profile wire id"),
		"distribucion":  str("Distribution"),
		"timeout_sec":   {Type: "number", Default: 12},
		"warmup_frames": {Type: "integer", Default: 8},
		"retries":       {Type: "integer", Default: 2},
	}, "rtsp_url", "profile")

	return map[string]*openapi.Schema{
		"FormData":         form,
		"UploadPayload":    upload,
		"ManualRequest":    manual,
		"StreamRequest":    stream,
		"AddDefectRequest": openapi.Object(map[string]*openapi.Schema{"defect": str("New label, unique within the profile")}, "defect"),
		"SyncRequest":      openapi.Object(map[string]*openapi.Schema{"user_name": str("Operator requesting the sync")}),
	}
}

func bound(v float64) *float64 { return &v }
