package records

import (
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/JaimeStill/rancoqc/pkg/query"
	"github.com/JaimeStill/rancoqc/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "analysis_results", "ar").
	Project("id", "ID").
	Project("created_at", "CreatedAt").
	Project("user_name", "UserName").
	Project("analysis_type", "AnalysisType").
	Project("profile", "Profile").
	Project("distribucion", "Distribution").
	Project("guia_sii", "ShippingGuide").
	Project("lote", "Lot").
	Project("num_frutos", "FruitCount").
	Project("num_proceso", "ProcessNumber").
	Project("id_caja", "BoxID").
	Project("source_type", "SourceType").
	Project("confidence_used", "Confidence").
	Project("total_detections", "TotalDetections").
	Project("zones_analyzed", "ZonesAnalyzed").
	Project("results", "Results").
	Project("detections_by_zone", "DetectionsByZone").
	Project("processed_image_path", "ProcessedImagePath").
	Project("original_image_path", "OriginalImagePath").
	Project("image_size", "ImageSize")

var defaultSort = query.SortField{
	Field:      "CreatedAt",
	Descending: true,
}

// Filters contains optional filtering criteria for analysis queries.
// Nil fields are ignored. Lot and ShippingGuide use contains matching.
// From and To bound created_at by calendar day, both inclusive.
type Filters struct {
	UserName      *string    `json:"user_name,omitempty"`
	AnalysisType  *string    `json:"analysis_type,omitempty"`
	Profile       *string    `json:"profile,omitempty"`
	Distribution  *string    `json:"distribucion,omitempty"`
	Lot           *string    `json:"lote,omitempty"`
	ShippingGuide *string    `json:"guia_sii,omitempty"`
	From          *time.Time `json:"from,omitempty"`
	To            *time.Time `json:"to,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereEquals("UserName", f.UserName).
		WhereEquals("AnalysisType", f.AnalysisType).
		WhereEquals("Profile", f.Profile).
		WhereEquals("Distribution", f.Distribution).
		WhereContains("Lot", f.Lot).
		WhereContains("ShippingGuide", f.ShippingGuide).
		WhereRange("CreatedAt", f.From, f.To)
}

// FiltersFromQuery extracts filter values from URL query parameters.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if v := values.Get("user_name"); v != "" {
		f.UserName = &v
	}
	if v := values.Get("analysis_type"); v != "" {
		f.AnalysisType = &v
	}
	if v := values.Get("profile"); v != "" {
		f.Profile = &v
	}
	if v := values.Get("distribucion"); v != "" {
		f.Distribution = &v
	}
	if v := values.Get("lote"); v != "" {
		f.Lot = &v
	}
	if v := values.Get("guia_sii"); v != "" {
		f.ShippingGuide = &v
	}
	if d, ok := parseDay(values.Get("from")); ok {
		f.From = &d
	}
	if d, ok := parseDay(values.Get("to")); ok {
		end := d.AddDate(0, 0, 1)
		f.To = &end
	}

	return f
}

// parseDay accepts YYYY-MM-DD or RFC 3339 and truncates to the UTC day.
func parseDay(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if d, err := time.Parse(time.DateOnly, s); err == nil {
		return d, true
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, false
	}
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
}


func scanAnalysis(s repository.Scanner) (Analysis, error) {
	var (
		a          Analysis
		results    []byte
		detections []byte
	)

	err := s.Scan(
		&a.ID,
		&a.CreatedAt,
		&a.UserName,
		&a.AnalysisType,
		&a.Profile,
		&a.Distribution,
		&a.ShippingGuide,
		&a.Lot,
		&a.FruitCount,
		&a.ProcessNumber,
		&a.BoxID,
		&a.SourceType,
		&a.Confidence,
		&a.TotalDetections,
		&a.ZonesAnalyzed,
		&results,
		&detections,
		&a.ProcessedImagePath,
		&a.OriginalImagePath,
		&a.ImageSize,
	)
	if err != nil {
		return a, err
	}

	if err := json.Unmarshal(results, &a.Results); err != nil {
		return a, fmt.Errorf("decode results of %s: %w", a.ID, err)
	}
	a.DetectionsByZone = json.RawMessage(detections)
	return a, nil
}
