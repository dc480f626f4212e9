// Package telemetry defines the optional tracing sink port. The pipeline
// wraps every stage and the whole run in spans and logs the adjusted
// confidence as a score; all calls are best-effort and the caller discards
// anything an implementation raises.
package telemetry

import "context"

// EndFunc finishes a span, recording the stage outcome.
type EndFunc func(err error)

// Tracer is the port interface for the telemetry sink.
type Tracer interface {
	// StartSpan opens a span and returns the derived context plus the
	// function that closes it.
	StartSpan(ctx context.Context, name string, attrs map[string]string) (context.Context, EndFunc)

	// LogScore records a named numeric observation on the current span.
	LogScore(ctx context.Context, name string, value float64)
}

// Noop is the Tracer used when telemetry is unconfigured.
type Noop struct{}

// StartSpan returns the context unchanged and an EndFunc that does nothing.
func (Noop) StartSpan(ctx context.Context, _ string, _ map[string]string) (context.Context, EndFunc) {
	return ctx, func(error) {}
}

// LogScore does nothing.
func (Noop) LogScore(context.Context, string, float64) {}
