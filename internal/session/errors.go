package session

import "errors"

var (
	// ErrInvalidSession means neither the cache nor the authority produced a session.
	ErrInvalidSession = errors.New("no valid session")
	// ErrUnsafeName means the session has no usable display name.
	ErrUnsafeName = errors.New("session has no usable display name")
)
