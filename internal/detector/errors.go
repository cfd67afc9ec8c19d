package detector

import (
	"errors"
	"fmt"
	"net/http"
)

// Errors returned by the detection engine client.
var (
	ErrUnavailable   = errors.New("detector unavailable")
	ErrRejected      = errors.New("detector rejected request")
	ErrStreamTimeout = errors.New("stream capture timed out")
)

// EngineError is a non-2xx answer from the detection engine.
type EngineError struct {
	Status  int
	Message string
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("detector status %d: %s", e.Status, e.Message)
}

// Is classifies engine answers: 504 is a stream timeout, other 4xx a
// rejection, 5xx unavailability.
func (e *EngineError) Is(target error) bool {
	switch target {
	case ErrStreamTimeout:
		return e.Status == http.StatusGatewayTimeout
	case ErrRejected:
		return e.Status >= 400 && e.Status < 500
	case ErrUnavailable:
		return e.Status >= 500 && e.Status != http.StatusGatewayTimeout
	}
	return false
}

// MapHTTPStatus maps detector errors to the status the API answers with.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrStreamTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, ErrRejected):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrUnavailable):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
