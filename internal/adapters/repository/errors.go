package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound     = errors.New("run not found")
	ErrMissingRunID = errors.New("run result has no run id")
)
