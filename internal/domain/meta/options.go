package meta

// Defaults for phase segmentation.
const (
	DefaultPhaseCount  = 3
	DefaultScaleFactor = 3
)

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithPhaseCount sets the number of phases.
func WithPhaseCount(n int) Option {
	return func(a *Analyzer) {
		if n > 0 {
			a.phaseCount = n
		}
	}
}

// WithScaleFactor sets the growth score multiplier.
func WithScaleFactor(f int) Option {
	return func(a *Analyzer) {
		if f > 0 {
			a.scaleFactor = f
		}
	}
}
