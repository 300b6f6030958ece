package service

import "errors"

// Sentinel kinds for engine and service errors.
var (
	ErrInvalidTransition = errors.New("invalid run state transition")
	ErrNotStarted        = errors.New("service not started")
	ErrDuplicateRun      = errors.New("duplicate run request")
	ErrEmptyRequest      = errors.New("run request names no records and no sources")
)
