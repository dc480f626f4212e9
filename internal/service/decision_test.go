package service

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/Strob0t/SecondGuess/internal/domain"
	"github.com/Strob0t/SecondGuess/internal/domain/decision"
	"github.com/Strob0t/SecondGuess/internal/port/messagequeue"
)

// fakeStore is an in-memory Store with the same semantics the real adapters
// implement: append-only, version assignment at write, text invariant.
type fakeStore struct {
	records   map[string][]*decision.Record
	appendErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: make(map[string][]*decision.Record)}
}

func (f *fakeStore) AppendRecord(_ context.Context, rec *decision.Record) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	existing := f.records[rec.DecisionID]
	if len(existing) > 0 && existing[0].Decision != rec.Decision {
		return domain.ErrDecisionMismatch
	}
	next := 1
	for _, r := range existing {
		if r.Version >= next {
			next = r.Version + 1
		}
	}
	rec.Version = next
	f.records[rec.DecisionID] = append(existing, rec)
	return nil
}

func (f *fakeStore) GetRecord(_ context.Context, decisionID string, version int) (*decision.Record, error) {
	for _, r := range f.records[decisionID] {
		if r.Version == version {
			return r, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeStore) GetLatest(_ context.Context, decisionID string) (*decision.Record, error) {
	rs := f.records[decisionID]
	if len(rs) == 0 {
		return nil, domain.ErrNotFound
	}
	latest := rs[0]
	for _, r := range rs[1:] {
		if r.Version > latest.Version {
			latest = r
		}
	}
	return latest, nil
}

func (f *fakeStore) ListVersions(_ context.Context, decisionID string) ([]decision.VersionSummary, error) {
	rs := f.records[decisionID]
	if len(rs) == 0 {
		return nil, domain.ErrNotFound
	}
	summaries := make([]decision.VersionSummary, 0, len(rs))
	for _, r := range rs {
		summaries = append(summaries, r.Summary())
	}
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].Version < summaries[j].Version })
	return summaries, nil
}

func (f *fakeStore) NextVersion(_ context.Context, decisionID string) (int, error) {
	next := 1
	for _, r := range f.records[decisionID] {
		if r.Version >= next {
			next = r.Version + 1
		}
	}
	return next, nil
}

type publishedMsg struct {
	subject string
	data    []byte
}

type fakeQueue struct {
	published []publishedMsg
	err       error
}

func (q *fakeQueue) Publish(_ context.Context, subject string, data []byte) error {
	if q.err != nil {
		return q.err
	}
	q.published = append(q.published, publishedMsg{subject, data})
	return nil
}

func (q *fakeQueue) Subscribe(context.Context, string, messagequeue.Handler) (func(), error) {
	return func() {}, nil
}
func (q *fakeQueue) IsConnected() bool { return true }
func (q *fakeQueue) Close() error      { return nil }

func newTestService(store *fakeStore, queue *fakeQueue) (*DecisionService, *stubEngine) {
	eng := healthyEngine()
	svc := NewDecisionService(store, NewWorkflow(eng, nil), queue, nil)
	svc.now = func() time.Time {
		return time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	}
	return svc, eng
}

func TestSubmitAssignsIdentityAndVersionOne(t *testing.T) {
	store := newFakeStore()
	queue := &fakeQueue{}
	svc, _ := newTestService(store, queue)

	rec, err := svc.Submit(context.Background(), "migrate to postgres", "mysql 5.7 today")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	if want := "dec_20260314_technical_092653"; rec.DecisionID != want {
		t.Errorf("decision ID = %q, want %q", rec.DecisionID, want)
	}
	if rec.Version != 1 {
		t.Errorf("version = %d, want 1", rec.Version)
	}
	if rec.Timestamp.IsZero() {
		t.Error("timestamp not set")
	}

	if len(queue.published) != 1 {
		t.Fatalf("published = %d messages, want 1", len(queue.published))
	}
	if queue.published[0].subject != "decisions.evaluated" {
		t.Errorf("subject = %q, want decisions.evaluated", queue.published[0].subject)
	}
}

func TestSubmitPipelineFailurePersistsNothing(t *testing.T) {
	store := newFakeStore()
	svc, eng := newTestService(store, &fakeQueue{})
	eng.critiqueErr = errors.New("service down")

	_, err := svc.Submit(context.Background(), "migrate to postgres", "")
	var se *domain.StageError
	if !errors.As(err, &se) {
		t.Fatalf("error = %v, want StageError", err)
	}
	if len(store.records) != 0 {
		t.Error("failed run must not be persisted")
	}
}

func TestReevaluateIncrementsVersion(t *testing.T) {
	store := newFakeStore()
	queue := &fakeQueue{}
	svc, _ := newTestService(store, queue)

	first, err := svc.Submit(context.Background(), "migrate to postgres", "mysql 5.7 today")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	second, err := svc.Reevaluate(context.Background(), first.DecisionID, "migrate to postgres", "benchmarks now available")
	if err != nil {
		t.Fatalf("Reevaluate: %v", err)
	}
	if second.Version != 2 {
		t.Errorf("version = %d, want 2", second.Version)
	}
	if second.DecisionID != first.DecisionID {
		t.Errorf("decision ID changed across versions: %q vs %q", second.DecisionID, first.DecisionID)
	}
	if second.Context != "benchmarks now available" {
		t.Errorf("context = %q, want updated context", second.Context)
	}

	if len(queue.published) != 2 {
		t.Fatalf("published = %d messages, want 2", len(queue.published))
	}
	if queue.published[1].subject != "decisions.reevaluated" {
		t.Errorf("subject = %q, want decisions.reevaluated", queue.published[1].subject)
	}
}

func TestReevaluateVersionSkipsGaps(t *testing.T) {
	store := newFakeStore()
	svc, _ := newTestService(store, &fakeQueue{})

	// Lineage with a hole: versions 1 and 3 exist.
	store.records["dec_x"] = []*decision.Record{
		{DecisionID: "dec_x", Version: 1, Decision: "ship it"},
		{DecisionID: "dec_x", Version: 3, Decision: "ship it"},
	}

	rec, err := svc.Reevaluate(context.Background(), "dec_x", "ship it", "updated")
	if err != nil {
		t.Fatalf("Reevaluate: %v", err)
	}
	if rec.Version != 4 {
		t.Errorf("version = %d, want 4 (max+1, not count+1)", rec.Version)
	}
}

func TestReevaluateMismatchRunsNothing(t *testing.T) {
	store := newFakeStore()
	svc, eng := newTestService(store, &fakeQueue{})
	// Any engine call would fail loudly.
	eng.analyzeErr = errors.New("pipeline must not run")

	store.records["dec_y"] = []*decision.Record{
		{DecisionID: "dec_y", Version: 1, Decision: "original wording"},
	}

	_, err := svc.Reevaluate(context.Background(), "dec_y", "different wording", "ctx")
	if !errors.Is(err, domain.ErrDecisionMismatch) {
		t.Fatalf("error = %v, want ErrDecisionMismatch", err)
	}
	if len(store.records["dec_y"]) != 1 {
		t.Error("mismatch must not create a version")
	}
}

func TestReevaluateUnknownIdentity(t *testing.T) {
	svc, _ := newTestService(newFakeStore(), &fakeQueue{})

	_, err := svc.Reevaluate(context.Background(), "dec_missing", "text", "ctx")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestListVersionsAscending(t *testing.T) {
	store := newFakeStore()
	svc, _ := newTestService(store, &fakeQueue{})

	first, err := svc.Submit(context.Background(), "migrate to postgres", "")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if _, err := svc.Reevaluate(context.Background(), first.DecisionID, "migrate to postgres", "more"); err != nil {
		t.Fatalf("Reevaluate: %v", err)
	}

	summaries, err := svc.ListVersions(context.Background(), first.DecisionID)
	if err != nil {
		t.Fatalf("ListVersions: %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("len = %d, want 2", len(summaries))
	}
	for i, s := range summaries {
		if s.Version != i+1 {
			t.Errorf("summaries[%d].Version = %d, want %d", i, s.Version, i+1)
		}
	}
}

func TestCompareVersions(t *testing.T) {
	store := newFakeStore()
	svc, _ := newTestService(store, &fakeQueue{})

	store.records["dec_c"] = []*decision.Record{
		{
			DecisionID: "dec_c", Version: 1, Decision: "enter the market",
			ContextReport: &decision.ContextReport{
				DecisionType:      decision.TypeMarketEntry,
				MissingContext:    []string{"regulatory_environment", "local_competition"},
				CompletenessScore: 40,
			},
			Critique:   &decision.CritiqueReport{Risk: decision.RiskBreakdown{Execution: 7, MarketCustomer: 5}},
			Confidence: &decision.ConfidenceAdjustment{Adjusted: 35},
		},
		{
			DecisionID: "dec_c", Version: 2, Decision: "enter the market",
			ContextReport: &decision.ContextReport{
				DecisionType:      decision.TypeMarketEntry,
				MissingContext:    []string{"local_competition", "distribution_channels"},
				CompletenessScore: 70,
			},
			Critique:   &decision.CritiqueReport{Risk: decision.RiskBreakdown{Execution: 4, MarketCustomer: 6}},
			Confidence: &decision.ConfidenceAdjustment{Adjusted: 62},
		},
	}

	cmp, err := svc.Compare(context.Background(), "dec_c", 1, 2)
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}

	if cmp.CompletenessDelta != 30 {
		t.Errorf("completeness delta = %d, want 30", cmp.CompletenessDelta)
	}
	if cmp.ConfidenceDelta != 27 {
		t.Errorf("confidence delta = %d, want 27", cmp.ConfidenceDelta)
	}
	if cmp.RiskDelta.Execution != -3 || cmp.RiskDelta.MarketCustomer != 1 {
		t.Errorf("risk delta = %+v", cmp.RiskDelta)
	}
	if len(cmp.ResolvedMissing) != 1 || cmp.ResolvedMissing[0] != "regulatory_environment" {
		t.Errorf("resolved = %v", cmp.ResolvedMissing)
	}
	if len(cmp.RemainingMissing) != 1 || cmp.RemainingMissing[0] != "local_competition" {
		t.Errorf("remaining = %v", cmp.RemainingMissing)
	}
	if len(cmp.NewMissing) != 1 || cmp.NewMissing[0] != "distribution_channels" {
		t.Errorf("new = %v", cmp.NewMissing)
	}
}

func TestCompareUnknownVersion(t *testing.T) {
	svc, _ := newTestService(newFakeStore(), &fakeQueue{})

	_, err := svc.Compare(context.Background(), "dec_nope", 1, 2)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestSubmitQueueFailureIsNotFatal(t *testing.T) {
	store := newFakeStore()
	queue := &fakeQueue{err: errors.New("broker unreachable")}
	svc, _ := newTestService(store, queue)

	rec, err := svc.Submit(context.Background(), "migrate to postgres", "")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if rec.Version != 1 {
		t.Errorf("version = %d, want 1", rec.Version)
	}
}
