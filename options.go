package fsm

import (
	"log/slog"

	"github.com/enetx/g"
	"go.opentelemetry.io/otel/trace"
)

const defaultHistoryLimit = 256

type options struct {
	name         string
	logger       *slog.Logger
	tracer       trace.Tracer
	signals      g.Slice[Signal]
	historyLimit int
}

// Option configures a Machine at construction.
type Option func(*options)

// WithName sets the machine name used in logs, metrics and traces.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// WithLogger sets the structured logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithTracer sets the tracer used for dispatch spans. The default is the global otel tracer.
func WithTracer(t trace.Tracer) Option {
	return func(o *options) {
		if t != nil {
			o.tracer = t
		}
	}
}

// WithSignals declares the closed set of signals of the machine.
// New fails when a variant implements a signal outside this set.
func WithSignals(signals ...Signal) Option {
	return func(o *options) { o.signals.Push(signals...) }
}

// WithHistoryLimit bounds the number of remembered states. Zero or less keeps everything.
func WithHistoryLimit(n int) Option {
	return func(o *options) { o.historyLimit = n }
}

func newOptions(opts []Option) options {
	o := options{
		name:         "fsm",
		historyLimit: defaultHistoryLimit,
	}

	for _, opt := range opts {
		opt(&o)
	}

	if o.logger == nil {
		o.logger = slog.Default()
	}

	if o.tracer == nil {
		o.tracer = defaultTracer()
	}

	return o
}
