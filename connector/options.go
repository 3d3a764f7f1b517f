package connector

import (
	"context"

	"github.com/wkalt/dynconn/fieldpath"
)

type options struct {
	ctx           context.Context
	pathCacheSize int
}

// Option is an option for a connector.
type Option func(*options)

// WithContext sets the context the connector logs with. Tags added to it with
// log.AddTags appear on every record the connector logs.
func WithContext(ctx context.Context) Option {
	return func(o *options) {
		o.ctx = ctx
	}
}

// WithPathCacheSize sets how many parsed field paths the connector retains.
// The default is fieldpath.DefaultCacheSize.
func WithPathCacheSize(size int) Option {
	return func(o *options) {
		o.pathCacheSize = size
	}
}

func defaultOptions() options {
	return options{
		ctx:           context.Background(),
		pathCacheSize: fieldpath.DefaultCacheSize,
	}
}
