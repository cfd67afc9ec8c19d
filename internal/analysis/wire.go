package analysis

import (
	"encoding/json"
	"time"

	"github.com/JaimeStill/rancoqc/internal/profiles"
)

// TimestampLayout is the timestamp format of analyze responses.
const TimestampLayout = "2006-01-02 15:04:05"

// AnalyzeResponse is returned by image, stream and manual analysis.
type AnalyzeResponse struct {
	Success          bool            `json:"success"`
	Error            string          `json:"error,omitempty"`
	Results          Counts          `json:"results"`
	TotalCherries    int             `json:"total_cherries"`
	ConfidenceUsed   float64         `json:"confidence_used,omitempty"`
	Timestamp        string          `json:"timestamp"`
	ZonesLoaded      int             `json:"zones_loaded"`
	ZonesAvailable   []string        `json:"zones_available,omitempty"`
	ProcessedImage   string          `json:"processed_image,omitempty"`
	OriginalImage    string          `json:"original_image,omitempty"`
	ImageSize        string          `json:"image_size,omitempty"`
	DetectionsByZone json.RawMessage `json:"detections_by_zone,omitempty"`
	AnalysisID       string          `json:"analysis_id,omitempty"`
	DatabaseStatus   string          `json:"database_status,omitempty"`
}

// Database status values reported by manual analysis.
const (
	StatusSavedRemote = "saved_to_postgresql"
	StatusSavedLocal  = "saved_to_local_cache"
	StatusNotSaved    = "not_saved"
)

// CaptureMetadata accompanies an image upload as a JSON form field.
type CaptureMetadata struct {
	FormData
	Module    string `json:"module"`
	Timestamp string `json:"timestamp"`
}

// StreamRequest asks the backend to grab and analyze a frame from a video stream.
type StreamRequest struct {
	URL          string  `json:"rtsp_url"`
	Profile      string  `json:"profile"`
	Distribution string  `json:"distribucion"`
	TimeoutSec   float64 `json:"timeout_sec,omitempty"`
	WarmupFrames int     `json:"warmup_frames,omitempty"`
	Retries      int     `json:"retries,omitempty"`
	User         string  `json:"user,omitempty"`
}

// ManualRequest submits operator-entered counts without an image.
type ManualRequest struct {
	FormData
	Defects Counts `json:"defects"`
}

// UploadPayload is the body of force-upload and save-to-cache.
type UploadPayload struct {
	AnalysisData AnalysisData `json:"analysis_data"`
	FormData     FormData     `json:"form_data"`
	ResultsData  ResultsData  `json:"results_data"`
}

// AnalysisData describes where an upload came from. CacheID names the
// pending cache entry a resubmitted record was read from.
type AnalysisData struct {
	SourceType     string  `json:"source_type"`
	ConfidenceUsed float64 `json:"confidence_used"`
	CacheID        string  `json:"cache_id,omitempty"`
}

// FormData is the form as sent to the backend. Packing fields are null for
// profiles that do not use them.
type FormData struct {
	User          string  `json:"user"`
	Profile       string  `json:"profile"`
	AnalysisType  string  `json:"analysis_type"`
	Distribution  string  `json:"distribucion"`
	ShippingGuide string  `json:"guia_sii"`
	Lot           string  `json:"lote"`
	FruitCount    int     `json:"num_frutos"`
	ProcessNumber *string `json:"num_proceso"`
	BoxID         *string `json:"id_caja"`
}

// ResultsData carries the counts and image metadata of an upload.
type ResultsData struct {
	Results          Counts          `json:"results"`
	TotalCherries    int             `json:"total_cherries"`
	ConfidenceUsed   float64         `json:"confidence_used"`
	ZonesLoaded      int             `json:"zones_loaded"`
	ProcessedImage   *string         `json:"processed_image"`
	OriginalImage    *string         `json:"original_image,omitempty"`
	DetectionsByZone json.RawMessage `json:"detections_by_zone"`
	ImageSize        *string         `json:"image_size"`
	ZonesAvailable   []string        `json:"zones_available"`
}

// Record is a persisted analysis as listed by history.
type Record struct {
	ID                 string    `json:"id"`
	Timestamp          time.Time `json:"timestamp"`
	UserName           string    `json:"user_name"`
	AnalysisType       string    `json:"analysis_type"`
	Profile            string    `json:"profile"`
	Distribution       string    `json:"distribucion"`
	ShippingGuide      string    `json:"guia_sii"`
	Lot                string    `json:"lote"`
	FruitCount         int       `json:"num_frutos"`
	ProcessNumber      string    `json:"num_proceso,omitempty"`
	BoxID              string    `json:"id_caja,omitempty"`
	TotalDetections    int       `json:"total_detections"`
	ZonesAnalyzed      int       `json:"zones_analyzed"`
	Results            Counts    `json:"results"`
	ProcessedImagePath string    `json:"processed_image_path,omitempty"`
	Synced             bool      `json:"synced"`
}

// SyncReport summarizes a pending-cache synchronization run.
type SyncReport struct {
	Synced  int    `json:"synced"`
	Errors  int    `json:"errors"`
	Message string `json:"message"`
}

// ClearReport reports how many synced cache entries were dropped.
type ClearReport struct {
	Cleared int    `json:"cleared"`
	Message string `json:"message"`
}

// DatabaseStatus reports whether the remote store is reachable and how many
// entries the local cache holds per state.
type DatabaseStatus struct {
	Connected    bool `json:"db_connected"`
	LocalPending int  `json:"local_pending"`
	LocalFailed  int  `json:"local_failed"`
	LocalSynced  int  `json:"local_synced"`
}

// Payload builds the upload body for result r.
func Payload(r Result, form FormData, sourceType string) UploadPayload {
	confidence := r.Confidence
	if confidence == 0 {
		confidence = DefaultConfidence
	}

	detections := r.DetectionsByZone
	if len(detections) == 0 {
		detections = json.RawMessage("{}")
	}

	zones := r.ZonesAvailable
	if zones == nil {
		zones = []string{}
	}

	return UploadPayload{
		AnalysisData: AnalysisData{
			SourceType:     sourceType,
			ConfidenceUsed: confidence,
		},
		FormData: form,
		ResultsData: ResultsData{
			Results:          r.Counts.Clone(),
			TotalCherries:    r.Total(),
			ConfidenceUsed:   confidence,
			ZonesLoaded:      r.ZonesLoaded,
			ProcessedImage:   optional(r.ProcessedImage),
			OriginalImage:    optional(r.OriginalImage),
			DetectionsByZone: detections,
			ImageSize:        optional(r.ImageSize),
			ZonesAvailable:   zones,
		},
	}
}

// RecordPayload rebuilds an upload body from a history record. Packing
// fields are sent for profiles that use them. Per-zone detections are not
// carried by history records. An unsynced record is still a pending cache
// entry, so its id travels as CacheID.
func RecordPayload(rec Record) UploadPayload {
	form := FormData{
		User:          rec.UserName,
		Profile:       rec.Profile,
		AnalysisType:  rec.AnalysisType,
		Distribution:  rec.Distribution,
		ShippingGuide: rec.ShippingGuide,
		Lot:           rec.Lot,
		FruitCount:    rec.FruitCount,
	}
	if p, ok := profiles.Lookup(rec.Profile); ok && p.RequiresPackingFields {
		form.ProcessNumber = optional(rec.ProcessNumber)
		form.BoxID = optional(rec.BoxID)
	}

	var cacheID string
	if !rec.Synced {
		cacheID = rec.ID
	}

	return UploadPayload{
		AnalysisData: AnalysisData{
			SourceType:     SourceHistoricalUpload,
			ConfidenceUsed: DefaultConfidence,
			CacheID:        cacheID,
		},
		FormData: form,
		ResultsData: ResultsData{
			Results:          rec.Results.Clone(),
			TotalCherries:    rec.TotalDetections,
			ConfidenceUsed:   DefaultConfidence,
			ZonesLoaded:      rec.ZonesAnalyzed,
			ProcessedImage:   optional(rec.ProcessedImagePath),
			DetectionsByZone: json.RawMessage("{}"),
			ZonesAvailable:   rec.Results.Labels(),
		},
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Image is a captured photo sent for detection.
type Image struct {
	Name        string
	ContentType string
	Data        []byte
}
