package normalize

import (
	"time"

	"github.com/okian/cadis/pkg/logger"
)

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithClock sets the reference time used for records without a timestamp.
func WithClock(now func() time.Time) Option {
	return func(n *Normalizer) {
		if now != nil {
			n.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(n *Normalizer) {
		if l != nil {
			n.log = l
		}
	}
}
