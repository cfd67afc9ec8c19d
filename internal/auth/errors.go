package auth

import (
	"errors"
	"net/http"
)

// Domain errors for credential verification.
var (
	ErrMissingToken    = errors.New("no session token")
	ErrInvalidToken    = errors.New("invalid session token")
	ErrUnauthenticated = errors.New("authentication required")
	ErrAuthDisabled    = errors.New("authentication disabled")
)

// MapHTTPStatus maps auth errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrMissingToken),
		errors.Is(err, ErrInvalidToken),
		errors.Is(err, ErrUnauthenticated),
		errors.Is(err, ErrAuthDisabled):
		return http.StatusUnauthorized
	}
	return http.StatusInternalServerError
}
