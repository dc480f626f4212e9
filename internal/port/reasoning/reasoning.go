// Package reasoning defines the port for the four natural-language
// reasoning stages. Implementations call an external language-reasoning
// service; the core only depends on the typed report contracts and treats
// any error as non-retriable.
package reasoning

import (
	"context"

	"github.com/Strob0t/SecondGuess/internal/domain/decision"
)

// ProposeInput is the accumulated state slice handed to stage 2.
type ProposeInput struct {
	Decision      string
	Context       string
	ContextReport *decision.ContextReport
}

// CritiqueInput is the accumulated state slice handed to stage 3.
type CritiqueInput struct {
	Decision      string
	Context       string
	ContextReport *decision.ContextReport
	Proposal      *decision.ProposalReport
}

// JudgeInput is the accumulated state slice handed to stage 4.
type JudgeInput struct {
	Decision      string
	Context       string
	ContextReport *decision.ContextReport
	Proposal      *decision.ProposalReport
	Critique      *decision.CritiqueReport
}

// Engine is the port interface for the reasoning collaborator. Calls block
// until the service responds or errors; timeout and cancellation belong to
// the implementation via ctx, not to the pipeline.
type Engine interface {
	// AnalyzeContext classifies the decision and scores context completeness.
	AnalyzeContext(ctx context.Context, decisionText, contextText string) (*decision.ContextReport, error)

	// Propose produces a directive with assumptions and initial confidence.
	Propose(ctx context.Context, in ProposeInput) (*decision.ProposalReport, error)

	// Critique challenges the proposal across the four risk dimensions.
	Critique(ctx context.Context, in CritiqueInput) (*decision.CritiqueReport, error)

	// Judge scores the reasoning quality of both sides and flags claims.
	Judge(ctx context.Context, in JudgeInput) (*decision.JudgmentReport, error)
}
