package otel

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "secondguess"

// Metrics holds all SecondGuess metric instruments.
type Metrics struct {
	EvaluationsCompleted metric.Int64Counter
	EvaluationsFailed    metric.Int64Counter
	AdjustedConfidence   metric.Int64Histogram
	EvaluationDuration   metric.Float64Histogram
}

// NewMetrics creates all metric instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.EvaluationsCompleted, err = meter.Int64Counter("secondguess.evaluations.completed",
		metric.WithDescription("Number of pipeline runs completed"))
	if err != nil {
		return nil, err
	}

	m.EvaluationsFailed, err = meter.Int64Counter("secondguess.evaluations.failed",
		metric.WithDescription("Number of pipeline runs aborted by a stage failure"))
	if err != nil {
		return nil, err
	}

	m.AdjustedConfidence, err = meter.Int64Histogram("secondguess.confidence.adjusted",
		metric.WithDescription("Adjusted confidence per completed evaluation"))
	if err != nil {
		return nil, err
	}

	m.EvaluationDuration, err = meter.Float64Histogram("secondguess.evaluation.duration_seconds",
		metric.WithDescription("Pipeline run duration in seconds"))
	if err != nil {
		return nil, err
	}

	return m, nil
}
