package analyses

import (
	"errors"
	"net/http"

	"github.com/JaimeStill/rancoqc/internal/detector"
	"github.com/JaimeStill/rancoqc/internal/records"
	"github.com/JaimeStill/rancoqc/pkg/storage"
)

var (
	ErrMissingImage     = errors.New("no image provided")
	ErrUnsupportedImage = errors.New("image must be JPEG or PNG")
	ErrImageTooLarge    = errors.New("image too large")
	ErrUnknownProfile   = errors.New("unknown profile")
	ErrMissingStreamURL = errors.New("rtsp_url is required")
	ErrEmptyCounts      = errors.New("at least one defect count is required")
	ErrInvalidImageKey  = errors.New("invalid image key")
	ErrNotSaved         = errors.New("analysis could not be saved")
)

// MapHTTPStatus maps analysis errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrMissingImage),
		errors.Is(err, ErrUnknownProfile),
		errors.Is(err, ErrMissingStreamURL),
		errors.Is(err, ErrEmptyCounts),
		errors.Is(err, records.ErrInvalidPayload):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnsupportedImage):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, ErrImageTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, ErrInvalidImageKey), errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, detector.ErrStreamTimeout),
		errors.Is(err, detector.ErrRejected),
		errors.Is(err, detector.ErrUnavailable):
		return detector.MapHTTPStatus(err)
	case errors.Is(err, ErrNotSaved):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
