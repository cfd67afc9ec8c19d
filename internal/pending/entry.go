// Package pending is the degraded-mode cache: analyses that could not reach
// the remote store wait here until a sync moves them over.
package pending

import (
	"time"

	"github.com/JaimeStill/rancoqc/internal/analysis"
)

// State is the sync state of a cache entry.
type State string

const (
	StatePending State = "pending"
	StateSynced  State = "synced"
	StateFailed  State = "failed"
)

// Entry is one cached upload payload.
type Entry struct {
	ID          string                 `json:"id"`
	CreatedAt   time.Time              `json:"created_at"`
	State       State                  `json:"status"`
	Attempts    int                    `json:"sync_attempts"`
	LastAttempt *time.Time             `json:"last_sync_attempt,omitempty"`
	LastError   string                 `json:"last_error,omitempty"`
	RemoteID    string                 `json:"analysis_id,omitempty"`
	Payload     analysis.UploadPayload `json:"payload"`
}

// Record converts an entry to its history listing form. Synced entries
// carry the id assigned by the remote store.
func (e Entry) Record() analysis.Record {
	form := e.Payload.FormData
	res := e.Payload.ResultsData

	id := e.ID
	if e.RemoteID != "" {
		id = e.RemoteID
	}

	rec := analysis.Record{
		ID:              id,
		Timestamp:       e.CreatedAt,
		UserName:        form.User,
		AnalysisType:    form.AnalysisType,
		Profile:         form.Profile,
		Distribution:    form.Distribution,
		ShippingGuide:   form.ShippingGuide,
		Lot:             form.Lot,
		FruitCount:      form.FruitCount,
		TotalDetections: res.Results.Total(),
		ZonesAnalyzed:   res.ZonesLoaded,
		Results:         res.Results.Clone(),
		Synced:          e.State == StateSynced,
	}
	if form.ProcessNumber != nil {
		rec.ProcessNumber = *form.ProcessNumber
	}
	if form.BoxID != nil {
		rec.BoxID = *form.BoxID
	}
	if res.ProcessedImage != nil {
		rec.ProcessedImagePath = *res.ProcessedImage
	}
	return rec
}
