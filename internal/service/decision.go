package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/Strob0t/SecondGuess/internal/domain"
	"github.com/Strob0t/SecondGuess/internal/domain/decision"
	"github.com/Strob0t/SecondGuess/internal/port/cache"
	"github.com/Strob0t/SecondGuess/internal/port/database"
	"github.com/Strob0t/SecondGuess/internal/port/messagequeue"
)

// latestCacheTTL bounds staleness of the latest-record read cache. Appends
// overwrite the entry eagerly; the TTL only covers missed overwrites.
const latestCacheTTL = 5 * time.Minute

// DecisionService owns the decision lifecycle: running the pipeline,
// versioned persistence, retrieval and comparison. Queue and cache are
// optional; a nil value disables the concern.
type DecisionService struct {
	store    database.Store
	workflow *Workflow
	queue    messagequeue.Queue
	cache    cache.Cache
	now      func() time.Time // for testing
}

// NewDecisionService creates a DecisionService with all dependencies.
func NewDecisionService(store database.Store, workflow *Workflow, queue messagequeue.Queue, c cache.Cache) *DecisionService {
	return &DecisionService{
		store:    store,
		workflow: workflow,
		queue:    queue,
		cache:    c,
		now:      time.Now,
	}
}

// Submit evaluates a new decision and persists it as version 1 of a fresh
// identity.
func (s *DecisionService) Submit(ctx context.Context, decisionText, contextText string) (*decision.Record, error) {
	rec, err := s.workflow.Run(ctx, decisionText, contextText)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	rec.DecisionID = newDecisionID(rec.ContextReport.DecisionType, now)
	rec.Timestamp = now

	if err := s.store.AppendRecord(ctx, rec); err != nil {
		return nil, fmt.Errorf("append version: %w", err)
	}

	s.afterAppend(ctx, rec, messagequeue.SubjectDecisionEvaluated)
	return rec, nil
}

// Reevaluate runs a fresh evaluation of an existing identity with updated
// context and persists it as the next version. The decision statement must
// match the lineage's original; the pipeline is not run on a mismatch.
func (s *DecisionService) Reevaluate(ctx context.Context, decisionID, decisionText, contextText string) (*decision.Record, error) {
	latest, err := s.store.GetLatest(ctx, decisionID)
	if err != nil {
		return nil, fmt.Errorf("get latest %s: %w", decisionID, err)
	}

	if decisionText != latest.Decision {
		return nil, fmt.Errorf("%w: expected %q, got %q", domain.ErrDecisionMismatch, latest.Decision, decisionText)
	}

	// Fresh evaluation: no memory carries over from previous versions.
	rec, err := s.workflow.Run(ctx, decisionText, contextText)
	if err != nil {
		return nil, err
	}

	rec.DecisionID = decisionID
	rec.Timestamp = s.now().UTC()

	if err := s.store.AppendRecord(ctx, rec); err != nil {
		return nil, fmt.Errorf("append version: %w", err)
	}

	s.afterAppend(ctx, rec, messagequeue.SubjectDecisionReevaluated)
	return rec, nil
}

// Get returns one stored version of a decision.
func (s *DecisionService) Get(ctx context.Context, decisionID string, version int) (*decision.Record, error) {
	rec, err := s.store.GetRecord(ctx, decisionID, version)
	if err != nil {
		return nil, fmt.Errorf("get %s v%d: %w", decisionID, version, err)
	}
	return rec, nil
}

// GetLatest returns the highest stored version of a decision, consulting
// the read cache first.
func (s *DecisionService) GetLatest(ctx context.Context, decisionID string) (*decision.Record, error) {
	if s.cache != nil {
		if data, ok, err := s.cache.Get(ctx, latestKey(decisionID)); err == nil && ok {
			var rec decision.Record
			if err := json.Unmarshal(data, &rec); err == nil {
				return &rec, nil
			}
		}
	}

	rec, err := s.store.GetLatest(ctx, decisionID)
	if err != nil {
		return nil, fmt.Errorf("get latest %s: %w", decisionID, err)
	}

	s.cacheLatest(ctx, rec)
	return rec, nil
}

// ListVersions returns summaries of all versions, ordered ascending.
func (s *DecisionService) ListVersions(ctx context.Context, decisionID string) ([]decision.VersionSummary, error) {
	summaries, err := s.store.ListVersions(ctx, decisionID)
	if err != nil {
		return nil, fmt.Errorf("list versions %s: %w", decisionID, err)
	}
	return summaries, nil
}

// Compare quantifies the change between two stored versions of a decision.
func (s *DecisionService) Compare(ctx context.Context, decisionID string, versionA, versionB int) (*decision.VersionComparison, error) {
	a, err := s.store.GetRecord(ctx, decisionID, versionA)
	if err != nil {
		return nil, fmt.Errorf("get %s v%d: %w", decisionID, versionA, err)
	}
	b, err := s.store.GetRecord(ctx, decisionID, versionB)
	if err != nil {
		return nil, fmt.Errorf("get %s v%d: %w", decisionID, versionB, err)
	}

	cmp := decision.Compare(a, b)
	return &cmp, nil
}

// afterAppend publishes the lifecycle event and refreshes the latest-record
// cache. Both are best-effort: the record is already durable.
func (s *DecisionService) afterAppend(ctx context.Context, rec *decision.Record, subject string) {
	s.cacheLatest(ctx, rec)

	if s.queue == nil {
		return
	}

	payload := messagequeue.DecisionEvaluatedPayload{
		DecisionID:         rec.DecisionID,
		Version:            rec.Version,
		DecisionType:       string(rec.ContextReport.DecisionType),
		Category:           string(rec.Recommendation.Category),
		AdjustedConfidence: rec.Confidence.Adjusted,
		CompletenessScore:  rec.ContextReport.CompletenessScore,
	}

	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("decision: marshal event", "decision_id", rec.DecisionID, "error", err)
		return
	}

	if err := s.queue.Publish(ctx, subject, data); err != nil {
		slog.Error("decision: publish event", "decision_id", rec.DecisionID, "subject", subject, "error", err)
		return
	}

	slog.Info("decision: event published",
		"decision_id", rec.DecisionID,
		"version", rec.Version,
		"subject", subject,
		"category", payload.Category,
	)
}

func (s *DecisionService) cacheLatest(ctx context.Context, rec *decision.Record) {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, latestKey(rec.DecisionID), data, latestCacheTTL); err != nil {
		slog.Debug("decision: cache set", "decision_id", rec.DecisionID, "error", err)
	}
}

func latestKey(decisionID string) string {
	return "decision:latest:" + decisionID
}

// newDecisionID builds the lineage identity for a fresh decision:
// dec_YYYYMMDD_<type>_<HHMMSS> in UTC. Uniqueness within the same second
// is backstopped by the store's (decision_id, version) constraint.
func newDecisionID(dt decision.Type, now time.Time) string {
	return fmt.Sprintf("dec_%s_%s_%s", now.Format("20060102"), dt, now.Format("150405"))
}
