package decision

// State is the immutable accumulation of pipeline outputs. Each stage
// derives the next State from the previous one by value; a report, once
// set, is never overwritten. Stages only ever see the union of the inputs
// and everything produced before them.
type State struct {
	Decision string
	Context  string

	ContextReport  *ContextReport
	Proposal       *ProposalReport
	Critique       *CritiqueReport
	Judgment       *JudgmentReport
	Confidence     *ConfidenceAdjustment
	Recommendation *FinalRecommendation
}

// NewState starts a pipeline run from the raw inputs.
func NewState(decisionText, contextText string) State {
	return State{Decision: decisionText, Context: contextText}
}

// WithContextReport returns a copy of s with the stage-1 report attached.
func (s State) WithContextReport(r *ContextReport) State {
	s.ContextReport = r
	return s
}

// WithProposal returns a copy of s with the stage-2 report attached.
func (s State) WithProposal(r *ProposalReport) State {
	s.Proposal = r
	return s
}

// WithCritique returns a copy of s with the stage-3 report attached.
func (s State) WithCritique(r *CritiqueReport) State {
	s.Critique = r
	return s
}

// WithJudgment returns a copy of s with the stage-4 report attached.
func (s State) WithJudgment(r *JudgmentReport) State {
	s.Judgment = r
	return s
}

// WithConfidence returns a copy of s with the stage-5 outputs attached.
func (s State) WithConfidence(adj *ConfidenceAdjustment, rec *FinalRecommendation) State {
	s.Confidence = adj
	s.Recommendation = rec
	return s
}
