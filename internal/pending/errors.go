package pending

import (
	"errors"
	"net/http"

	"github.com/JaimeStill/rancoqc/internal/records"
)

// Domain errors for the pending cache.
var (
	ErrNotFound     = records.ErrCacheEntryNotFound
	ErrInvalidState = errors.New("invalid cache state")
)

// MapHTTPStatus maps pending cache errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrInvalidState) || errors.Is(err, records.ErrInvalidPayload) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
