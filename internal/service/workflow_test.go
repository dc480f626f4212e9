package service

import (
	"context"
	"errors"
	"testing"

	"github.com/Strob0t/SecondGuess/internal/domain"
	"github.com/Strob0t/SecondGuess/internal/domain/decision"
	"github.com/Strob0t/SecondGuess/internal/port/reasoning"
	"github.com/Strob0t/SecondGuess/internal/port/telemetry"
)

// stubEngine returns canned reports and records which inputs each stage saw.
// Any stage can be failed by setting its error.
type stubEngine struct {
	contextReport *decision.ContextReport
	proposal      *decision.ProposalReport
	critique      *decision.CritiqueReport
	judgment      *decision.JudgmentReport

	analyzeErr  error
	proposeErr  error
	critiqueErr error
	judgeErr    error

	proposeIn  reasoning.ProposeInput
	critiqueIn reasoning.CritiqueInput
	judgeIn    reasoning.JudgeInput
}

func (e *stubEngine) AnalyzeContext(_ context.Context, _, _ string) (*decision.ContextReport, error) {
	if e.analyzeErr != nil {
		return nil, e.analyzeErr
	}
	return e.contextReport, nil
}

func (e *stubEngine) Propose(_ context.Context, in reasoning.ProposeInput) (*decision.ProposalReport, error) {
	e.proposeIn = in
	if e.proposeErr != nil {
		return nil, e.proposeErr
	}
	return e.proposal, nil
}

func (e *stubEngine) Critique(_ context.Context, in reasoning.CritiqueInput) (*decision.CritiqueReport, error) {
	e.critiqueIn = in
	if e.critiqueErr != nil {
		return nil, e.critiqueErr
	}
	return e.critique, nil
}

func (e *stubEngine) Judge(_ context.Context, in reasoning.JudgeInput) (*decision.JudgmentReport, error) {
	e.judgeIn = in
	if e.judgeErr != nil {
		return nil, e.judgeErr
	}
	return e.judgment, nil
}

func healthyEngine() *stubEngine {
	return &stubEngine{
		contextReport: &decision.ContextReport{
			DecisionType:      decision.TypeTechnical,
			RequiredContext:   []string{"current_state", "alternatives"},
			ProvidedContext:   []string{"current_state"},
			MissingContext:    []string{"alternatives"},
			CompletenessScore: 50,
		},
		proposal: &decision.ProposalReport{
			Directive:         decision.DirectiveProceed,
			InitialConfidence: 80,
			Justification:     "migration path is well understood",
		},
		critique: &decision.CritiqueReport{
			Counterarguments: []string{"rollback is untested"},
			Risk:             decision.RiskBreakdown{Execution: 4, MarketCustomer: 2, Reputational: 1, OpportunityCost: 3},
		},
		judgment: &decision.JudgmentReport{
			ProposalStrength: 7,
			CritiqueStrength: 6,
			Assessment:       "reasonable on both sides",
		},
	}
}

func TestWorkflowRunAccumulatesState(t *testing.T) {
	eng := healthyEngine()
	w := NewWorkflow(eng, nil)

	rec, err := w.Run(context.Background(), "migrate to postgres", "we run mysql 5.7 today")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	// Each stage must have seen everything produced before it.
	if eng.proposeIn.ContextReport != eng.contextReport {
		t.Error("proposal stage did not receive the context report")
	}
	if eng.critiqueIn.Proposal != eng.proposal || eng.critiqueIn.ContextReport != eng.contextReport {
		t.Error("critique stage did not receive prior reports")
	}
	if eng.judgeIn.Critique != eng.critique || eng.judgeIn.Proposal != eng.proposal {
		t.Error("judgment stage did not receive prior reports")
	}

	if rec.ContextReport == nil || rec.Proposal == nil || rec.Critique == nil || rec.Judgment == nil {
		t.Fatal("record is missing stage reports")
	}
	if rec.Confidence == nil || rec.Recommendation == nil {
		t.Fatal("record is missing confidence outputs")
	}
	// One missing item at completeness 50 costs 10.
	if rec.Confidence.Adjusted != 70 {
		t.Errorf("adjusted = %d, want 70", rec.Confidence.Adjusted)
	}
	if rec.Recommendation.Category != decision.CategoryProceed {
		t.Errorf("category = %s, want PROCEED", rec.Recommendation.Category)
	}
	if rec.DecisionID != "" || rec.Version != 0 {
		t.Error("identity assignment is not the pipeline's job")
	}
}

func TestWorkflowRejectsEmptyDecision(t *testing.T) {
	w := NewWorkflow(healthyEngine(), nil)

	for _, text := range []string{"", "   ", "\n\t"} {
		if _, err := w.Run(context.Background(), text, "ctx"); !errors.Is(err, domain.ErrValidation) {
			t.Errorf("Run(%q) error = %v, want ErrValidation", text, err)
		}
	}
}

func TestWorkflowStageFailureNamesStage(t *testing.T) {
	boom := errors.New("upstream unavailable")

	tests := []struct {
		name      string
		configure func(*stubEngine)
		wantStage string
	}{
		{"analyze fails", func(e *stubEngine) { e.analyzeErr = boom }, StageCompleteness},
		{"propose fails", func(e *stubEngine) { e.proposeErr = boom }, StageProposal},
		{"critique fails", func(e *stubEngine) { e.critiqueErr = boom }, StageCritique},
		{"judge fails", func(e *stubEngine) { e.judgeErr = boom }, StageJudgment},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eng := healthyEngine()
			tt.configure(eng)
			w := NewWorkflow(eng, nil)

			_, err := w.Run(context.Background(), "decide something", "")
			if err == nil {
				t.Fatal("expected error")
			}

			var se *domain.StageError
			if !errors.As(err, &se) {
				t.Fatalf("error = %v, want StageError", err)
			}
			if se.Stage != tt.wantStage {
				t.Errorf("stage = %q, want %q", se.Stage, tt.wantStage)
			}
			if !errors.Is(err, boom) {
				t.Error("StageError must wrap the stage's error")
			}
		})
	}
}

func TestWorkflowInvalidReportAborts(t *testing.T) {
	eng := healthyEngine()
	eng.proposal.InitialConfidence = 140

	w := NewWorkflow(eng, nil)
	_, err := w.Run(context.Background(), "decide something", "")

	var se *domain.StageError
	if !errors.As(err, &se) {
		t.Fatalf("error = %v, want StageError", err)
	}
	if se.Stage != StageProposal {
		t.Errorf("stage = %q, want %q", se.Stage, StageProposal)
	}
	if !errors.Is(err, domain.ErrValidation) {
		t.Error("structural failures must wrap ErrValidation")
	}
}

// panicTracer blows up on every call. The pipeline must not notice.
type panicTracer struct{}

func (panicTracer) StartSpan(context.Context, string, map[string]string) (context.Context, telemetry.EndFunc) {
	panic("telemetry down")
}

func (panicTracer) LogScore(context.Context, string, float64) {
	panic("telemetry down")
}

func TestWorkflowSurvivesPanickingTracer(t *testing.T) {
	w := NewWorkflow(healthyEngine(), panicTracer{})

	rec, err := w.Run(context.Background(), "migrate to postgres", "ctx")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rec.Recommendation == nil {
		t.Fatal("record incomplete despite healthy stages")
	}
}
