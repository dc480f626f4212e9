package otel

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Strob0t/SecondGuess/internal/port/telemetry"
)

const tracerName = "secondguess"

// Tracer implements the telemetry port on OpenTelemetry spans and metrics.
type Tracer struct {
	metrics *Metrics
}

// NewTracer creates a pipeline tracer. metrics may be nil, in which case
// only spans are produced.
func NewTracer(metrics *Metrics) *Tracer {
	return &Tracer{metrics: metrics}
}

var _ telemetry.Tracer = (*Tracer)(nil)

// StartSpan opens a span with the given attributes. The returned EndFunc
// records the outcome and, for the whole-run span, the duration metric.
func (t *Tracer) StartSpan(ctx context.Context, name string, attrs map[string]string) (context.Context, telemetry.EndFunc) {
	opts := make([]trace.SpanStartOption, 0, 1)
	if len(attrs) > 0 {
		kv := make([]attribute.KeyValue, 0, len(attrs))
		for k, v := range attrs {
			kv = append(kv, attribute.String(k, v))
		}
		opts = append(opts, trace.WithAttributes(kv...))
	}

	spanCtx, span := otel.Tracer(tracerName).Start(ctx, name, opts...)
	started := time.Now()
	isRun := name == "evaluate"

	end := func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()

		if t.metrics == nil || !isRun {
			return
		}
		if err != nil {
			t.metrics.EvaluationsFailed.Add(ctx, 1)
		} else {
			t.metrics.EvaluationsCompleted.Add(ctx, 1)
		}
		t.metrics.EvaluationDuration.Record(ctx, time.Since(started).Seconds())
	}
	return spanCtx, end
}

// LogScore records a named numeric observation as a span event and, for the
// adjusted confidence, in its histogram.
func (t *Tracer) LogScore(ctx context.Context, name string, value float64) {
	span := trace.SpanFromContext(ctx)
	span.AddEvent("score", trace.WithAttributes(
		attribute.String("score.name", name),
		attribute.Float64("score.value", value),
	))

	if t.metrics != nil && name == "adjusted_confidence" {
		t.metrics.AdjustedConfidence.Record(ctx, int64(value))
	}
}
