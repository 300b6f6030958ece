package model

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Sentinel errors for errors.Is checks against the typed errors below.
var (
	ErrValidation    = errors.New("validation error")
	ErrSourceTimeout = errors.New("source timeout")
	ErrEmptyInput    = errors.New("empty input")
	ErrConfiguration = errors.New("configuration error")
)

// Exclusion reasons recorded in the run diagnostics.
const (
	ReasonNilRecord          = "nil_record"
	ReasonMissingContent     = "missing_content"
	ReasonMissingBaseline    = "missing_baseline"
	ReasonBaselineOutOfRange = "baseline_out_of_range"
)

// ValidationError reports a single malformed record. The record is excluded
// and the run continues.
type ValidationError struct {
	Source string
	Index  int
	// ID identifies the record when it is not part of a batch.
	ID     string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("invalid %s record %q: %s", e.Source, e.ID, e.Reason)
	}
	return fmt.Sprintf("invalid %s record at index %d: %s", e.Source, e.Index, e.Reason)
}

// Is reports whether target is ErrValidation.
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// SourceTimeoutError reports a record source that did not answer in time.
// That source contributes zero observations.
type SourceTimeoutError struct {
	Source  string
	Timeout time.Duration
}

func (e *SourceTimeoutError) Error() string {
	return fmt.Sprintf("source %q did not respond within %s", e.Source, e.Timeout)
}

// Is reports whether target is ErrSourceTimeout.
func (e *SourceTimeoutError) Is(target error) bool { return target == ErrSourceTimeout }

// Diagnostics summarizes what the normalizer did with a batch.
type Diagnostics struct {
	Seen            int            `json:"seen"`
	Excluded        int            `json:"excluded"`
	ReasonHistogram map[string]int `json:"reasonHistogram"`
}

// Exclude records one excluded record with its reason.
func (d *Diagnostics) Exclude(reason string) {
	if d.ReasonHistogram == nil {
		d.ReasonHistogram = make(map[string]int)
	}
	d.Excluded++
	d.ReasonHistogram[reason]++
}

// EmptyInputError is returned when no usable observation survives
// normalization. It is fatal for the run.
type EmptyInputError struct {
	Diagnostics Diagnostics
}

func (e *EmptyInputError) Error() string {
	if len(e.Diagnostics.ReasonHistogram) == 0 {
		return fmt.Sprintf("no usable observations (seen %d)", e.Diagnostics.Seen)
	}
	reasons := make([]string, 0, len(e.Diagnostics.ReasonHistogram))
	for r, n := range e.Diagnostics.ReasonHistogram {
		reasons = append(reasons, fmt.Sprintf("%s=%d", r, n))
	}
	sort.Strings(reasons)
	return fmt.Sprintf("no usable observations (seen %d, excluded %d: %s)",
		e.Diagnostics.Seen, e.Diagnostics.Excluded, strings.Join(reasons, ", "))
}

// Is reports whether target is ErrEmptyInput.
func (e *EmptyInputError) Is(target error) bool { return target == ErrEmptyInput }

// ConfigurationError reports a malformed static table. It is raised while
// loading, before any run executes.
type ConfigurationError struct {
	Component string
	Reason    string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Component, e.Reason)
}

// Is reports whether target is ErrConfiguration.
func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }

// Configf builds a ConfigurationError for component.
func Configf(component, format string, args ...any) error {
	return &ConfigurationError{Component: component, Reason: fmt.Sprintf(format, args...)}
}
