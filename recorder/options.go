package recorder

import "github.com/klauspost/compress/zstd"

type options struct {
	prefix string
	level  zstd.EncoderLevel
}

// Option is an option for a Recorder.
type Option func(*options)

// WithPrefix sets the key prefix archives are stored under. The default is
// "samples".
func WithPrefix(prefix string) Option {
	return func(o *options) {
		o.prefix = prefix
	}
}

// WithEncoderLevel sets the zstd compression level of archives.
func WithEncoderLevel(level zstd.EncoderLevel) Option {
	return func(o *options) {
		o.level = level
	}
}
