// Package features reduces per-observation signal counts into one feature
// vector per run.
package features

import (
	"math"
	"strings"
	"time"

	"github.com/okian/cadis/internal/domain/model"
)

// Metric names read by the aggregator.
const (
	MetricTenantCount             = "tenantCount"
	MetricDreamStateEffectiveness = "dreamStateEffectiveness"
)

// Aggregator accumulates one run's signals. It is not safe for concurrent
// use; build one per run. Add is commutative, so input order does not
// change the result.
type Aggregator struct {
	categories   []string
	recentWindow time.Duration
	bucketWidth  time.Duration
	high         int
	medium       int
	now          func() time.Time

	cutoff        time.Time
	observations  int
	recent        int
	recentModule  int
	recentSession int
	totalSignals  int
	journalTotal  int
	counts        map[string]int
	tenants       map[string]struct{}
	maxTenants    int
	dreamSum      float64
	dreamN        int
	timestamps    []time.Time
}

// New creates an aggregator over the given categories.
func New(categories []string, opts ...Option) *Aggregator {
	a := &Aggregator{
		categories:   append([]string(nil), categories...),
		recentWindow: DefaultRecentWindow,
		bucketWidth:  DefaultBucketWidth,
		high:         DefaultHighThreshold,
		medium:       DefaultMediumThreshold,
		now:          time.Now,
		counts:       make(map[string]int, len(categories)),
		tenants:      make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.cutoff = a.now().Add(-a.recentWindow)
	return a
}

// Add folds one observation and its signals into the aggregate.
func (a *Aggregator) Add(s model.ObservationSignals) {
	o := s.Observation
	a.observations++
	a.timestamps = append(a.timestamps, o.Timestamp)

	isRecent := o.Timestamp.After(a.cutoff)
	if isRecent {
		a.recent++
		switch o.Source {
		case model.SourceModule, model.SourceEcosystem:
			a.recentModule++
		case model.SourceConversation:
			a.recentSession++
		}
	}

	total := 0
	for _, c := range s.Signals {
		a.counts[c.Category] += c.Count
		total += c.Count
	}
	a.totalSignals += total
	if o.Source == model.SourceJournal {
		a.journalTotal += total
	}

	for _, tag := range o.Tags {
		if t, ok := strings.CutPrefix(tag, model.TenantTagPrefix); ok && t != "" {
			a.tenants[t] = struct{}{}
		}
	}
	if v, ok := o.Metric(MetricTenantCount); ok && int(v) > a.maxTenants {
		a.maxTenants = int(v)
	}
	if v, ok := o.Metric(MetricDreamStateEffectiveness); ok {
		a.dreamSum += v
		a.dreamN++
	}
}

// Aggregate adds every entry of batch and returns the vector.
func (a *Aggregator) Aggregate(batch []model.ObservationSignals) model.FeatureVector {
	for _, s := range batch {
		a.Add(s)
	}
	return a.Vector()
}

// Vector builds the feature vector from everything added so far. Empty
// input yields zero values and low activity.
func (a *Aggregator) Vector() model.FeatureVector {
	fv := model.FeatureVector{
		ObservationCount:    a.observations,
		RecentCount:         a.recent,
		TotalSignals:        a.totalSignals,
		ActivityLevel:       a.tier(a.recent),
		ModuleActivity:      a.tier(a.recentModule),
		TenantCount:         max(a.maxTenants, len(a.tenants)),
		JournalInsightCount: a.journalTotal,
		RecentSessionCount:  a.recentSession,
		Categories:          append([]string(nil), a.categories...),
		CategoryCounts:      make(map[string]int, len(a.categories)),
		CategoryFrequencies: make(map[string]int, len(a.categories)),
		TimeBuckets:         a.buckets(),
	}
	if a.dreamN > 0 {
		fv.DreamStateEffectiveness = a.dreamSum / float64(a.dreamN)
	}
	for _, c := range a.categories {
		n := a.counts[c]
		fv.CategoryCounts[c] = n
		fv.CategoryFrequencies[c] = Percent(n, a.totalSignals)
	}
	return fv
}

// Percent returns round(100 * part / whole), or 0 when whole is 0.
func Percent(part, whole int) int {
	if whole <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(part) / float64(whole)))
}

func (a *Aggregator) tier(n int) model.ActivityLevel {
	switch {
	case n > a.high:
		return model.ActivityHigh
	case n > a.medium:
		return model.ActivityMedium
	}
	return model.ActivityLow
}

// buckets returns contiguous buckets starting at the earliest timestamp.
func (a *Aggregator) buckets() []model.TimeBucket {
	if len(a.timestamps) == 0 {
		return nil
	}
	start := a.timestamps[0]
	for _, ts := range a.timestamps[1:] {
		if ts.Before(start) {
			start = ts
		}
	}
	counts := make(map[int]int)
	last := 0
	for _, ts := range a.timestamps {
		i := int(ts.Sub(start) / a.bucketWidth)
		counts[i]++
		last = max(last, i)
	}
	out := make([]model.TimeBucket, last+1)
	for i := range out {
		s := start.Add(time.Duration(i) * a.bucketWidth)
		out[i] = model.TimeBucket{Start: s, End: s.Add(a.bucketWidth), Count: counts[i]}
	}
	return out
}
