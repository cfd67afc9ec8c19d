// Package analysis holds the in-memory analysis result, the form metadata
// attached to it, the workspace that edits the single active result, and
// the wire types exchanged with the backend.
package analysis

import (
	"encoding/json"
	"slices"
	"time"
)

// SyncState tracks whether a result has been accepted by the remote store.
type SyncState string

const (
	Unsynced   SyncState = "unsynced"
	Synced     SyncState = "synced"
	SyncFailed SyncState = "sync-failed"
)

// Source types recorded with every upload.
const (
	SourceUploadedFile     = "uploaded_file"
	SourceHistoricalUpload = "historical_upload"
	SourceManualEntry      = "manual_entry"
	SourceStreamCapture    = "rtsp_capture"
)

// DefaultConfidence is the detector confidence assumed when none is reported.
const DefaultConfidence = 0.8

// Result is the mutable record produced by a capture or manual entry.
// Generation identifies one ingested result within its workspace.
type Result struct {
	Generation       uint64
	Counts           Counts
	ZonesAvailable   []string
	ZonesLoaded      int
	ProcessedImage   string
	OriginalImage    string
	ImageSize        string
	Confidence       float64
	DetectionsByZone json.RawMessage
	Timestamp        time.Time
	SourceType       string
	State            SyncState
	RemoteID         string
	ManuallyAltered  bool
}

// Total is always computed from Counts.
func (r *Result) Total() int {
	return r.Counts.Total()
}

func (r Result) clone() Result {
	r.Counts = r.Counts.Clone()
	r.ZonesAvailable = slices.Clone(r.ZonesAvailable)
	r.DetectionsByZone = slices.Clone(r.DetectionsByZone)
	return r
}
