package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/Strob0t/SecondGuess/internal/domain"
	"github.com/Strob0t/SecondGuess/internal/domain/decision"
	"github.com/Strob0t/SecondGuess/internal/port/reasoning"
	"github.com/Strob0t/SecondGuess/internal/port/telemetry"
)

// Stage names surfaced in StageError and telemetry spans.
const (
	StageCompleteness = "completeness"
	StageProposal     = "proposal"
	StageCritique     = "critique"
	StageJudgment     = "judgment"
	StageConfidence   = "confidence"
)

// Workflow sequences the five evaluation stages. Each stage receives the
// immutable union of all prior outputs and appends exactly one report. Any
// stage failure aborts the run immediately: nothing is persisted and the
// error names the failing stage. Stages are never retried here.
type Workflow struct {
	engine    reasoning.Engine
	estimator Estimator
	tracer    telemetry.Tracer
}

// NewWorkflow creates a Workflow. A nil tracer degrades to no-op telemetry.
func NewWorkflow(engine reasoning.Engine, tracer telemetry.Tracer) *Workflow {
	if tracer == nil {
		tracer = telemetry.Noop{}
	}
	return &Workflow{engine: engine, tracer: tracer}
}

// Run executes the pipeline for one decision. The returned record carries
// all five reports but no identity, version or timestamp; assigning those
// and persisting is the caller's job.
func (w *Workflow) Run(ctx context.Context, decisionText, contextText string) (*decision.Record, error) {
	if strings.TrimSpace(decisionText) == "" {
		return nil, fmt.Errorf("%w: decision text is required", domain.ErrValidation)
	}

	runCtx, endRun := w.startSpan(ctx, "evaluate", map[string]string{
		"decision": truncate(decisionText, 80),
	})

	st := decision.NewState(decisionText, contextText)

	stages := []struct {
		name string
		fn   func(context.Context) error
	}{
		{StageCompleteness, func(c context.Context) error {
			rep, err := w.engine.AnalyzeContext(c, st.Decision, st.Context)
			if err != nil {
				return err
			}
			if err := rep.Validate(); err != nil {
				return err
			}
			st = st.WithContextReport(rep)
			return nil
		}},
		{StageProposal, func(c context.Context) error {
			rep, err := w.engine.Propose(c, reasoning.ProposeInput{
				Decision:      st.Decision,
				Context:       st.Context,
				ContextReport: st.ContextReport,
			})
			if err != nil {
				return err
			}
			if err := rep.Validate(); err != nil {
				return err
			}
			st = st.WithProposal(rep)
			return nil
		}},
		{StageCritique, func(c context.Context) error {
			rep, err := w.engine.Critique(c, reasoning.CritiqueInput{
				Decision:      st.Decision,
				Context:       st.Context,
				ContextReport: st.ContextReport,
				Proposal:      st.Proposal,
			})
			if err != nil {
				return err
			}
			if err := rep.Validate(); err != nil {
				return err
			}
			st = st.WithCritique(rep)
			return nil
		}},
		{StageJudgment, func(c context.Context) error {
			rep, err := w.engine.Judge(c, reasoning.JudgeInput{
				Decision:      st.Decision,
				Context:       st.Context,
				ContextReport: st.ContextReport,
				Proposal:      st.Proposal,
				Critique:      st.Critique,
			})
			if err != nil {
				return err
			}
			if err := rep.Validate(); err != nil {
				return err
			}
			st = st.WithJudgment(rep)
			return nil
		}},
		{StageConfidence, func(c context.Context) error {
			adj := w.estimator.Estimate(st.ContextReport, st.Proposal, st.Critique, st.Judgment)
			rec := w.estimator.Render(adj, st.Proposal, st.Critique, st.ContextReport)
			st = st.WithConfidence(adj, rec)
			w.logScore(c, "adjusted_confidence", float64(adj.Adjusted))
			return nil
		}},
	}

	for _, s := range stages {
		if err := w.runStage(runCtx, s.name, s.fn); err != nil {
			w.endSpan(endRun, err)
			return nil, err
		}
	}

	w.endSpan(endRun, nil)

	return &decision.Record{
		Decision:       st.Decision,
		Context:        st.Context,
		ContextReport:  st.ContextReport,
		Proposal:       st.Proposal,
		Critique:       st.Critique,
		Judgment:       st.Judgment,
		Confidence:     st.Confidence,
		Recommendation: st.Recommendation,
	}, nil
}

// runStage wraps one stage call in a telemetry span and tags failures with
// the stage name.
func (w *Workflow) runStage(ctx context.Context, name string, fn func(context.Context) error) error {
	spanCtx, end := w.startSpan(ctx, "stage."+name, map[string]string{"stage": name})

	err := fn(spanCtx)
	w.endSpan(end, err)

	if err != nil {
		return &domain.StageError{Stage: name, Err: err}
	}
	return nil
}

// startSpan calls the tracer, swallowing any panic. Telemetry must never
// alter the pipeline outcome.
func (w *Workflow) startSpan(ctx context.Context, name string, attrs map[string]string) (spanCtx context.Context, end telemetry.EndFunc) {
	spanCtx = ctx
	end = func(error) {}

	defer func() { _ = recover() }()

	c, e := w.tracer.StartSpan(ctx, name, attrs)
	if c != nil {
		spanCtx = c
	}
	if e != nil {
		end = e
	}
	return spanCtx, end
}

// endSpan closes a span, swallowing any panic.
func (w *Workflow) endSpan(end telemetry.EndFunc, err error) {
	defer func() { _ = recover() }()
	end(err)
}

// logScore records a score observation, swallowing any panic.
func (w *Workflow) logScore(ctx context.Context, name string, value float64) {
	defer func() { _ = recover() }()
	w.tracer.LogScore(ctx, name, value)
}
