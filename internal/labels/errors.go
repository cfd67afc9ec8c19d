package labels

import (
	"errors"
	"net/http"

	"github.com/JaimeStill/rancoqc/pkg/repository"
)

// Domain errors for label operations.
var (
	ErrUnknownProfile = errors.New("unknown profile")
	ErrEmptyDefect    = errors.New("defect name required")
	ErrDuplicate      = errors.New("defect already exists for profile")
	ErrNotFound       = errors.New("defect not found")
)

var errMap = repository.ErrorMap{
	NotFound:  ErrNotFound,
	Duplicate: ErrDuplicate,
	Invalid:   ErrEmptyDefect,
}

// MapHTTPStatus maps label domain errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrUnknownProfile) || errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrEmptyDefect) {
		return http.StatusBadRequest
	}
	if errors.Is(err, ErrDuplicate) {
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}
