package memengine

import "time"

type options struct {
	clock       func() time.Time
	maxSamples  int
	logMatching bool
}

// Option is an option for the in-process engine.
type Option func(*options)

// WithClock sets the clock used for source timestamps of writes that do not
// carry one and for reception timestamps.
func WithClock(clock func() time.Time) Option {
	return func(o *options) {
		o.clock = clock
	}
}

// WithMaxSamples caps the number of samples a reader queue holds across all
// instances. When the cap is reached the oldest sample is dropped. Zero is
// unlimited.
func WithMaxSamples(n int) Option {
	return func(o *options) {
		o.maxSamples = n
	}
}

// WithMatchLogging controls whether endpoint matches and unmatches are logged
// at info level. They are logged at debug level otherwise.
func WithMatchLogging(enabled bool) Option {
	return func(o *options) {
		o.logMatching = enabled
	}
}
