package banditpool

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const tracerName = "banditpool"

// poolTracer wraps evaluator calls in spans when tracing is enabled.
type poolTracer struct {
	tracer  trace.Tracer
	poolID  string
	enabled bool
}

func newPoolTracer(poolID string, enabled bool) poolTracer {
	return poolTracer{
		tracer:  otel.Tracer(tracerName),
		poolID:  poolID,
		enabled: enabled,
	}
}

// startEvaluation starts the "banditpool.evaluate" span for one trial.
func (t poolTracer) startEvaluation(ctx context.Context, ticket Ticket, instance int) (context.Context, trace.Span) {
	if !t.enabled {
		return ctx, noop.Span{}
	}

	return t.tracer.Start(ctx, "banditpool.evaluate",
		trace.WithAttributes(
			attribute.String("banditpool.id", t.poolID),
			attribute.Int("banditpool.arm", ticket.Arm),
			attribute.Int64("banditpool.generation", int64(ticket.Generation)),
			attribute.Int("banditpool.instance", instance),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// endEvaluation records the outcome on span and ends it.
func endEvaluation(span trace.Span, out Outcome, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetAttributes(
			attribute.Bool("banditpool.exhausted", out.Exhausted),
			attribute.Float64("banditpool.value", out.Value),
		)
		span.SetStatus(codes.Ok, "")
	}

	span.End()
}
