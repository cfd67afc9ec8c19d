package database

import "errors"

// ErrNotReady indicates the database did not answer a ping.
var ErrNotReady = errors.New("database not ready")
