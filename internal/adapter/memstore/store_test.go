package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Strob0t/SecondGuess/internal/domain"
	"github.com/Strob0t/SecondGuess/internal/domain/decision"
)

func testRecord(id, text string) *decision.Record {
	return &decision.Record{
		DecisionID: id,
		Timestamp:  time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC),
		Decision:   text,
		ContextReport: &decision.ContextReport{
			DecisionType:      decision.TypeTechnical,
			CompletenessScore: 80,
		},
		Confidence:     &decision.ConfidenceAdjustment{Initial: 80, Adjusted: 72, Delta: -8},
		Recommendation: &decision.FinalRecommendation{Category: decision.CategoryProceed, Text: "PROCEED"},
	}
}

func TestAppendAssignsSequentialVersions(t *testing.T) {
	s := New()
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		rec := testRecord("dec_a", "ship it")
		if err := s.AppendRecord(ctx, rec); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
		if rec.Version != i {
			t.Errorf("version = %d, want %d", rec.Version, i)
		}
	}

	next, err := s.NextVersion(ctx, "dec_a")
	if err != nil {
		t.Fatalf("NextVersion: %v", err)
	}
	if next != 4 {
		t.Errorf("next version = %d, want 4", next)
	}
}

func TestAppendRejectsTextMismatch(t *testing.T) {
	s := New()
	ctx := context.Background()

	if err := s.AppendRecord(ctx, testRecord("dec_b", "original")); err != nil {
		t.Fatalf("append: %v", err)
	}

	err := s.AppendRecord(ctx, testRecord("dec_b", "reworded"))
	if !errors.Is(err, domain.ErrDecisionMismatch) {
		t.Fatalf("error = %v, want ErrDecisionMismatch", err)
	}

	summaries, err := s.ListVersions(ctx, "dec_b")
	if err != nil {
		t.Fatalf("ListVersions: %v", err)
	}
	if len(summaries) != 1 {
		t.Errorf("versions = %d, want 1 (mismatch must not write)", len(summaries))
	}
}

func TestGetLatestAndGetRecord(t *testing.T) {
	s := New()
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := s.AppendRecord(ctx, testRecord("dec_c", "ship it")); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	latest, err := s.GetLatest(ctx, "dec_c")
	if err != nil {
		t.Fatalf("GetLatest: %v", err)
	}
	if latest.Version != 2 {
		t.Errorf("latest version = %d, want 2", latest.Version)
	}

	first, err := s.GetRecord(ctx, "dec_c", 1)
	if err != nil {
		t.Fatalf("GetRecord: %v", err)
	}
	if first.Version != 1 {
		t.Errorf("version = %d, want 1", first.Version)
	}

	if _, err := s.GetRecord(ctx, "dec_c", 9); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("unknown version error = %v, want ErrNotFound", err)
	}
	if _, err := s.GetLatest(ctx, "dec_unknown"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("unknown lineage error = %v, want ErrNotFound", err)
	}
}

func TestStoredRecordsAreIsolated(t *testing.T) {
	s := New()
	ctx := context.Background()

	rec := testRecord("dec_d", "ship it")
	if err := s.AppendRecord(ctx, rec); err != nil {
		t.Fatalf("append: %v", err)
	}

	// Mutating the caller's copy must not leak into the store.
	rec.Recommendation.Text = "tampered"

	got, err := s.GetRecord(ctx, "dec_d", 1)
	if err != nil {
		t.Fatalf("GetRecord: %v", err)
	}
	if got.Recommendation.Text != "PROCEED" {
		t.Errorf("stored text = %q, want PROCEED", got.Recommendation.Text)
	}

	got.ContextReport.CompletenessScore = 1
	again, err := s.GetRecord(ctx, "dec_d", 1)
	if err != nil {
		t.Fatalf("GetRecord: %v", err)
	}
	if again.ContextReport.CompletenessScore != 80 {
		t.Error("returned record must be a copy")
	}
}
