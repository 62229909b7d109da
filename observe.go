package fsm

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/enetx/upnpfsm"

// Metric outcome labels.
const (
	outcomeOK          = "ok"
	outcomeUnsupported = "unsupported"
	outcomeError       = "error"
)

var (
	dispatchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fsm_dispatch_total",
		Help: "Total number of dispatched signals by machine, state, signal and outcome",
	}, []string{"machine", "state", "signal", "outcome"})

	transitionTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fsm_transitions_total",
		Help: "Total number of committed state transitions by machine, from_state and to_state",
	}, []string{"machine", "from_state", "to_state"})

	dispatchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fsm_dispatch_duration_seconds",
		Help:    "Duration of signal dispatch including hooks, by machine and signal",
		Buckets: []float64{0.00001, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
	}, []string{"machine", "signal"})
)

func defaultTracer() trace.Tracer { return otel.Tracer(tracerName) }

// startSpan starts a span for a dispatch or a forced transition.
// The caller is responsible for calling endSpan.
//
//nolint:spancheck // span ended by endSpan
func (m *Machine[C]) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	ctx, span := m.tracer.Start(ctx, name)
	span.SetAttributes(
		attribute.String("fsm.machine", m.name),
		attribute.String("fsm.id", m.id.String()),
	)
	span.SetAttributes(attrs...)

	return ctx, span
}

func endSpan(span trace.Span, from, to State, err error) {
	span.SetAttributes(
		attribute.String("fsm.from", string(from)),
		attribute.String("fsm.to", string(to)),
	)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}

	span.End()
}

func (m *Machine[C]) observeDispatch(ctx context.Context, from State, signal Signal, start time.Time, err error) {
	outcome := outcomeOK

	switch {
	case IsUnsupportedSignal(err):
		outcome = outcomeUnsupported
	case err != nil:
		outcome = outcomeError
	}

	dispatchTotal.WithLabelValues(m.name, string(from), string(signal), outcome).Inc()
	dispatchDuration.WithLabelValues(m.name, string(signal)).Observe(time.Since(start).Seconds())

	switch outcome {
	case outcomeOK:
		m.logger.DebugContext(ctx, "Signal dispatched",
			"machine", m.name, "id", m.id, "state", from, "signal", signal,
			"duration", time.Since(start))
	case outcomeUnsupported:
		m.logger.DebugContext(ctx, "Signal not supported in current state",
			"machine", m.name, "id", m.id, "state", from, "signal", signal, "error", err)
	default:
		m.logger.WarnContext(ctx, "Signal dispatch failed",
			"machine", m.name, "id", m.id, "state", from, "signal", signal, "error", err)
	}
}

func (m *Machine[C]) observeTransition(ctx context.Context, from, to State, signal Signal) {
	transitionTotal.WithLabelValues(m.name, string(from), string(to)).Inc()

	m.logger.InfoContext(ctx, "Transition executed",
		"machine", m.name, "id", m.id, "from", from, "to", to, "signal", signal)
}
