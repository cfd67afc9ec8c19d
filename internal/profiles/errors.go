package profiles

import (
	"errors"
	"fmt"
)

// ErrDuplicateLabel is returned by AddLabel for a label already in the profile's set.
var ErrDuplicateLabel = errors.New("label already exists in profile")

// PersistError reports a label that could not be saved remotely. The label
// remains usable for the current analysis.
type PersistError struct {
	Profile ID
	Label   string
	Err     error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("persist label %q for %s: %v", e.Label, e.Profile, e.Err)
}

func (e *PersistError) Unwrap() error {
	return e.Err
}
