package records

import (
	"errors"
	"net/http"

	"github.com/JaimeStill/rancoqc/pkg/repository"
)

// Domain errors for analysis records.
var (
	ErrNotFound       = errors.New("analysis not found")
	ErrDuplicate      = errors.New("analysis already exists")
	ErrInvalidPayload = errors.New("invalid payload")
	ErrInvalidID      = errors.New("invalid analysis id")

	ErrCacheEntryNotFound = errors.New("cache entry not found")
)

var errMap = repository.ErrorMap{
	NotFound:  ErrNotFound,
	Duplicate: ErrDuplicate,
	Invalid:   ErrInvalidPayload,
}

// MapHTTPStatus maps record domain errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrCacheEntryNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrDuplicate) {
		return http.StatusConflict
	}
	if errors.Is(err, ErrInvalidPayload) || errors.Is(err, ErrInvalidID) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
