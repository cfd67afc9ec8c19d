package history

import "errors"

// ErrRecordNotFound means the id is not among the loaded records.
var ErrRecordNotFound = errors.New("record not found in loaded history")
