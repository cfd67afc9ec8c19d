// Package analyses runs defect detection on uploaded images and stream
// captures, and records manual entries.
package analyses

import (
	"context"

	"github.com/JaimeStill/rancoqc/internal/analysis"
	"github.com/JaimeStill/rancoqc/internal/detector"
	"github.com/JaimeStill/rancoqc/internal/pending"
	"github.com/JaimeStill/rancoqc/internal/records"
	"github.com/JaimeStill/rancoqc/pkg/storage"
)

// System defines the public contract for analysis operations.
type System interface {
	Handler(maxUploadSize, maxBodySize int64) *Handler

	AnalyzeImage(ctx context.Context, img analysis.Image, meta analysis.CaptureMetadata) (analysis.AnalyzeResponse, error)
	AnalyzeStream(ctx context.Context, req analysis.StreamRequest) (analysis.AnalyzeResponse, error)
	Manual(ctx context.Context, req analysis.ManualRequest) (analysis.AnalyzeResponse, error)
	Image(ctx context.Context, key string) (*storage.Blob, error)
}

// Detector counts defects on images.
type Detector interface {
	Detect(ctx context.Context, img analysis.Image, profile, distribution string) (*detector.Detection, error)
	DetectStream(ctx context.Context, req detector.StreamCapture) (*detector.Detection, error)
	Confidence() float64
}

// Recorder stores finished analyses in the remote store.
type Recorder interface {
	Create(ctx context.Context, payload analysis.UploadPayload) (*records.Analysis, error)
}

// Cache holds analyses the remote store could not take.
type Cache interface {
	Save(ctx context.Context, payload analysis.UploadPayload) (*pending.Entry, error)
}
