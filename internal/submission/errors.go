package submission

import (
	"errors"
	"fmt"
)

// ErrUnsafeSession means the session cannot stamp a submission. Callers
// end the session and require re-authentication.
var ErrUnsafeSession = errors.New("session cannot stamp a submission")

// SubmitError reports a submission rejected by both the remote store and
// the local cache.
type SubmitError struct {
	Primary  error
	Fallback error
}

func (e *SubmitError) Error() string {
	return fmt.Sprintf("submit failed: remote: %v; local cache: %v", e.Primary, e.Fallback)
}

// Unwrap exposes both causes to errors.Is and errors.As.
func (e *SubmitError) Unwrap() []error {
	return []error{e.Primary, e.Fallback}
}
