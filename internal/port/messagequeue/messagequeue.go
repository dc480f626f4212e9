// Package messagequeue defines the message queue port (interface).
package messagequeue

import "context"

// Handler processes a message received from the queue.
type Handler func(ctx context.Context, subject string, data []byte) error

// Queue is the port interface for publishing and subscribing to messages.
type Queue interface {
	// Publish sends a message to the given subject.
	Publish(ctx context.Context, subject string, data []byte) error

	// Subscribe registers a handler for messages on the given subject.
	// The returned function cancels the subscription.
	Subscribe(ctx context.Context, subject string, handler Handler) (cancel func(), err error)

	// IsConnected reports whether the queue is currently connected.
	IsConnected() bool

	// Close shuts down the queue connection.
	Close() error
}

// Subject constants for decision lifecycle events.
const (
	SubjectDecisionEvaluated   = "decisions.evaluated"   // a new version 1 record was written
	SubjectDecisionReevaluated = "decisions.reevaluated" // a version >1 record was written
)

// DecisionEvaluatedPayload is the schema for decisions.evaluated and
// decisions.reevaluated messages.
type DecisionEvaluatedPayload struct {
	DecisionID         string `json:"decision_id"`
	Version            int    `json:"version"`
	DecisionType       string `json:"decision_type"`
	Category           string `json:"category"`
	AdjustedConfidence int    `json:"adjusted_confidence"`
	CompletenessScore  int    `json:"completeness_score"`
}
