package client

import (
	"errors"
	"fmt"
)

// ErrRemote is matched by every failure reported by the backend, whether
// a non-2xx status or a {"success": false} body.
var ErrRemote = errors.New("backend rejected request")

// RemoteError carries the status and message of a rejected request.
type RemoteError struct {
	Status  int
	Message string
}

func (e *RemoteError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: status %d", ErrRemote, e.Status)
	}
	return fmt.Sprintf("%s: status %d: %s", ErrRemote, e.Status, e.Message)
}

func (e *RemoteError) Is(target error) bool {
	return target == ErrRemote
}
