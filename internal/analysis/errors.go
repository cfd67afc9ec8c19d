package analysis

import "errors"

var (
	ErrNoActiveResult = errors.New("no active analysis result")
	ErrEmptyLabel     = errors.New("label must not be empty")
	ErrLabelExists    = errors.New("label already exists in profile")
	ErrInvalidCount   = errors.New("count must be at least 1")
	ErrStaleResult    = errors.New("analysis result was replaced")
)
