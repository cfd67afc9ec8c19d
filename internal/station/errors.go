package station

import "errors"

var (
	ErrNoSession        = errors.New("station has no resolved session")
	ErrProfileLocked    = errors.New("profile cannot change while an analysis is active")
	ErrNoImage          = errors.New("no image selected")
	ErrNoStreamURL      = errors.New("no stream url given")
	ErrEmptyManualEntry = errors.New("manual entry has no defects")
)
