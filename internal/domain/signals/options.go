package signals

import "github.com/okian/cadis/pkg/logger"

// Option configures an Extractor.
type Option func(*Extractor)

// WithExampleCap sets how many matched substrings are kept per category.
// Negative values are ignored.
func WithExampleCap(n int) Option {
	return func(e *Extractor) {
		if n >= 0 {
			e.exampleCap = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(e *Extractor) {
		if l != nil {
			e.log = l
		}
	}
}
