package features

import "time"

// Defaults for the aggregator thresholds and windows.
const (
	DefaultRecentWindow    = 48 * time.Hour
	DefaultBucketWidth     = 30 * 24 * time.Hour
	DefaultHighThreshold   = 5
	DefaultMediumThreshold = 2
)

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithRecentWindow sets the single window every "recent" feature uses.
func WithRecentWindow(d time.Duration) Option {
	return func(a *Aggregator) {
		if d > 0 {
			a.recentWindow = d
		}
	}
}

// WithBucketWidth sets the width of time buckets.
func WithBucketWidth(d time.Duration) Option {
	return func(a *Aggregator) {
		if d > 0 {
			a.bucketWidth = d
		}
	}
}

// WithActivityThresholds sets the activity tiers: more than high recent
// observations is high, more than medium is medium.
func WithActivityThresholds(high, medium int) Option {
	return func(a *Aggregator) {
		if high >= medium && medium >= 0 {
			a.high, a.medium = high, medium
		}
	}
}

// WithClock sets the reference time for recent windows.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) {
		if now != nil {
			a.now = now
		}
	}
}
