// Package records persists finished analyses in the remote store and serves
// their history.
package records

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/rancoqc/internal/analysis"
)

// EventRecorded is published after an analysis is stored.
const EventRecorded = "analysis.recorded"

// Sync outcomes written to the sync history.
const (
	SyncSuccess = "success"
	SyncPartial = "partial"
	SyncFailed  = "failed"
)

// Analysis is a stored analysis row.
type Analysis struct {
	ID                 uuid.UUID       `json:"id"`
	CreatedAt          time.Time       `json:"created_at"`
	UserName           string          `json:"user_name"`
	AnalysisType       string          `json:"analysis_type"`
	Profile            string          `json:"profile"`
	Distribution       string          `json:"distribucion"`
	ShippingGuide      string          `json:"guia_sii"`
	Lot                string          `json:"lote"`
	FruitCount         int             `json:"num_frutos"`
	ProcessNumber      *string         `json:"num_proceso"`
	BoxID              *string         `json:"id_caja"`
	SourceType         string          `json:"source_type"`
	Confidence         float64         `json:"confidence_used"`
	TotalDetections    int             `json:"total_detections"`
	ZonesAnalyzed      int             `json:"zones_analyzed"`
	Results            analysis.Counts `json:"results"`
	DetectionsByZone   json.RawMessage `json:"detections_by_zone"`
	ProcessedImagePath string          `json:"processed_image_path"`
	OriginalImagePath  string          `json:"original_image_path"`
	ImageSize          string          `json:"image_size"`
}

// Record converts a stored analysis to its history listing form.
func (a Analysis) Record() analysis.Record {
	return analysis.Record{
		ID:                 a.ID.String(),
		Timestamp:          a.CreatedAt,
		UserName:           a.UserName,
		AnalysisType:       a.AnalysisType,
		Profile:            a.Profile,
		Distribution:       a.Distribution,
		ShippingGuide:      a.ShippingGuide,
		Lot:                a.Lot,
		FruitCount:         a.FruitCount,
		ProcessNumber:      deref(a.ProcessNumber),
		BoxID:              deref(a.BoxID),
		TotalDetections:    a.TotalDetections,
		ZonesAnalyzed:      a.ZonesAnalyzed,
		Results:            a.Results.Clone(),
		ProcessedImagePath: a.ProcessedImagePath,
		Synced:             true,
	}
}

// Sync triggers written to the sync history.
const (
	SyncManual  = "manual"
	SyncStartup = "startup"
)

// SyncLog is one pending-cache synchronization run.
type SyncLog struct {
	UserName string
	Type     string
	Synced   int
	Errors   int
	Status   string
	Message  string
}

// CacheCounts is the number of degraded-mode cache entries per state.
type CacheCounts struct {
	Pending int
	Failed  int
	Synced  int
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
