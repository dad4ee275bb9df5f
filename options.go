package entigo

import (
	"log/slog"

	"github.com/hupe1980/entigo/codec"
)

// Job configuration defaults.
const (
	DefaultIncludeAttributes = true
	DefaultIncludeHits       = true
	DefaultIncludeQueries    = false
	DefaultIncludeSource     = true
	DefaultMaxDocsPerQuery   = 1000
	DefaultMaxHops           = 100
	DefaultPretty            = false
	DefaultProfile           = false
)

type options struct {
	includeAttributes bool
	includeHits       bool
	includeQueries    bool
	includeSource     bool
	maxDocsPerQuery   int
	maxHops           int
	pretty            bool
	profile           bool
	codec             codec.Codec
	logger            *Logger
	metrics           MetricsCollector
}

// Option configures a Job.
type Option func(*options)

// WithIncludeAttributes controls whether hit envelopes carry the harvested
// _attributes object.
func WithIncludeAttributes(include bool) Option {
	return func(o *options) {
		o.includeAttributes = include
	}
}

// WithIncludeHits controls whether the response envelope carries the hits
// section.
func WithIncludeHits(include bool) Option {
	return func(o *options) {
		o.includeHits = include
	}
}

// WithIncludeQueries opts into logging each query and its response (without
// the hit documents) in the response envelope.
func WithIncludeQueries(include bool) Option {
	return func(o *options) {
		o.includeQueries = include
	}
}

// WithIncludeSource controls whether hit envelopes keep the document
// _source.
func WithIncludeSource(include bool) Option {
	return func(o *options) {
		o.includeSource = include
	}
}

// WithMaxDocsPerQuery sets the size of each search request.
func WithMaxDocsPerQuery(n int) Option {
	return func(o *options) {
		o.maxDocsPerQuery = n
	}
}

// WithMaxHops bounds the traversal depth. -1 means unbounded: the job runs
// until a hop discovers no new attribute values.
func WithMaxHops(n int) Option {
	return func(o *options) {
		o.maxHops = n
	}
}

// WithPretty re-indents the response envelope for human consumption.
func WithPretty(pretty bool) Option {
	return func(o *options) {
		o.pretty = pretty
	}
}

// WithProfile sets the profile flag on each query and implies query logging.
func WithProfile(profile bool) Option {
	return func(o *options) {
		o.profile = profile
	}
}

// WithCodec configures the codec used for documents and envelopes.
// If nil is passed, codec.Default is used.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		if c == nil {
			c = codec.Default
		}
		o.codec = c
	}
}

// WithLogger configures structured logging for the traversal.
// Pass nil to disable logging.
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithMetricsCollector configures a metrics collector for monitoring
// operations. Pass nil to disable metrics collection.
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metrics = mc
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		includeAttributes: DefaultIncludeAttributes,
		includeHits:       DefaultIncludeHits,
		includeQueries:    DefaultIncludeQueries,
		includeSource:     DefaultIncludeSource,
		maxDocsPerQuery:   DefaultMaxDocsPerQuery,
		maxHops:           DefaultMaxHops,
		pretty:            DefaultPretty,
		profile:           DefaultProfile,
		codec:             codec.Default,
		logger:            NoopLogger(),
		metrics:           NoopMetricsCollector{},
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}
