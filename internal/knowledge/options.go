package knowledge

import (
	"time"

	"github.com/hyperjump/kbassist/internal/lexical"
	"github.com/hyperjump/kbassist/internal/metrics"
	"github.com/hyperjump/kbassist/internal/mirror"
	"github.com/hyperjump/kbassist/internal/storage"
	"go.uber.org/zap"
)

type options struct {
	logger     *zap.Logger
	mirror     *mirror.Mirror
	registry   storage.Registry
	metrics    *metrics.Metrics
	params     lexical.Params
	extensions []string
	now        func() time.Time
}

// Option configures a Builder or a Base.
type Option func(*options)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMirror sets the object-store mirror. Without it nothing is mirrored.
func WithMirror(m *mirror.Mirror) Option {
	return func(o *options) { o.mirror = m }
}

// WithRegistry records builds in r.
func WithRegistry(r storage.Registry) Option {
	return func(o *options) { o.registry = r }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithParams overrides the vectorizer parameters.
func WithParams(p lexical.Params) Option {
	return func(o *options) { o.params = p }
}

// WithExtensions sets which files in the PDF directory are ingested.
func WithExtensions(exts ...string) Option {
	return func(o *options) { o.extensions = exts }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func newOptions(opts []Option) options {
	o := options{
		params:     lexical.DefaultParams(),
		extensions: []string{".pdf"},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	if o.mirror == nil {
		o.mirror = mirror.New(nil, "", mirror.WithLogger(o.logger))
	}
	return o
}
