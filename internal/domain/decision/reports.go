package decision

import (
	"math"
	"time"
)

// ContextReport is the stage-1 output: how complete the supplied context is
// for the classified decision type.
type ContextReport struct {
	DecisionType      Type     `json:"decision_type"`
	RequiredContext   []string `json:"required_context"`
	ProvidedContext   []string `json:"provided_context"`
	MissingContext    []string `json:"missing_context"`
	CompletenessScore int      `json:"completeness_score"`
}

// NewContextReport derives missing context and the completeness score from
// the required and provided dimension sets. An empty requirement set scores
// 100 by definition.
func NewContextReport(dt Type, required, provided []string) *ContextReport {
	providedSet := make(map[string]bool, len(provided))
	for _, p := range provided {
		providedSet[p] = true
	}

	var missing []string
	for _, r := range required {
		if !providedSet[r] {
			missing = append(missing, r)
		}
	}

	score := 100
	if len(required) > 0 {
		score = int(math.Round(float64(len(provided)) / float64(len(required)) * 100))
		score = clampScore(score)
	}

	return &ContextReport{
		DecisionType:      dt,
		RequiredContext:   required,
		ProvidedContext:   provided,
		MissingContext:    missing,
		CompletenessScore: score,
	}
}

// Assumption is a single assumption the proposer relies on.
type Assumption struct {
	Statement string    `json:"statement"`
	Basis     string    `json:"basis"`
	RiskLevel RiskLevel `json:"risk_level"`
}

// ProposalReport is the stage-2 output: a directive with its supporting
// assumptions and an initial confidence estimate.
type ProposalReport struct {
	Directive         Directive    `json:"directive"`
	Conditions        []string     `json:"conditions,omitempty"`
	Assumptions       []Assumption `json:"assumptions"`
	InitialConfidence int          `json:"initial_confidence"`
	Justification     string       `json:"justification"`
}

// RiskBreakdown scores the four attack dimensions assessed by the critique.
type RiskBreakdown struct {
	Execution       int `json:"execution"`
	MarketCustomer  int `json:"market_customer"`
	Reputational    int `json:"reputational"`
	OpportunityCost int `json:"opportunity_cost"`
}

// FailureScenario is a concrete way the decision could go wrong.
type FailureScenario struct {
	Description string   `json:"description"`
	Trigger     string   `json:"trigger"`
	Severity    Severity `json:"severity"`
}

// CritiqueReport is the stage-3 output: the systematic challenge of the
// proposal. HighRiskAssumptions holds free-text references into the
// proposal's assumptions.
type CritiqueReport struct {
	Counterarguments    []string          `json:"counterarguments"`
	FailureScenarios    []FailureScenario `json:"failure_scenarios"`
	HighRiskAssumptions []string          `json:"high_risk_assumptions"`
	Risk                RiskBreakdown     `json:"risk_breakdown"`
}

// ClaimFlag marks a weak or unsupported claim found by the judge.
type ClaimFlag struct {
	Source ClaimSource `json:"source"`
	Claim  string      `json:"claim"`
	Reason string      `json:"reason"`
}

// JudgmentReport is the stage-4 output: reasoning-quality scores for both
// sides plus the specific claims that drag them down.
type JudgmentReport struct {
	ProposalStrength  int         `json:"proposal_strength"`
	CritiqueStrength  int         `json:"critique_strength"`
	WeakClaims        []ClaimFlag `json:"weak_claims"`
	UnsupportedClaims []ClaimFlag `json:"unsupported_claims"`
	Assessment        string      `json:"assessment"`
}

// PenaltyEntry is one itemized deduction in the confidence ledger.
type PenaltyEntry struct {
	Reason           string `json:"reason"`
	PercentageImpact int    `json:"percentage_impact"`
}

// ConfidenceAdjustment is the stage-5 output: the penalty ledger applied to
// the proposer's initial confidence.
type ConfidenceAdjustment struct {
	Initial   int            `json:"initial_confidence"`
	Adjusted  int            `json:"adjusted_confidence"`
	Delta     int            `json:"delta"`
	Penalties []PenaltyEntry `json:"penalties"`
}

// TotalPenalty sums all percentage impacts in the ledger.
func (c *ConfidenceAdjustment) TotalPenalty() int {
	total := 0
	for _, p := range c.Penalties {
		total += p.PercentageImpact
	}
	return total
}

// FinalRecommendation is the rendered outcome of a pipeline run.
type FinalRecommendation struct {
	Category Category `json:"category"`
	Text     string   `json:"text"`
}

// Record is one completed, persisted evaluation of a decision. Records are
// append-only: re-evaluating the same identity writes a new version.
type Record struct {
	DecisionID     string                `json:"decision_id"`
	Version        int                   `json:"version"`
	Timestamp      time.Time             `json:"timestamp"`
	Decision       string                `json:"decision"`
	Context        string                `json:"context,omitempty"`
	ContextReport  *ContextReport        `json:"context_report"`
	Proposal       *ProposalReport       `json:"proposal"`
	Critique       *CritiqueReport       `json:"critique"`
	Judgment       *JudgmentReport       `json:"judgment"`
	Confidence     *ConfidenceAdjustment `json:"confidence"`
	Recommendation *FinalRecommendation  `json:"recommendation"`
}

// VersionSummary is the per-version row returned when listing a lineage.
type VersionSummary struct {
	Version            int       `json:"version"`
	Timestamp          time.Time `json:"timestamp"`
	CompletenessScore  int       `json:"completeness_score"`
	AdjustedConfidence int       `json:"adjusted_confidence"`
	Category           Category  `json:"category"`
}

// Summary condenses a record into its version listing row.
func (r *Record) Summary() VersionSummary {
	s := VersionSummary{
		Version:   r.Version,
		Timestamp: r.Timestamp,
	}
	if r.ContextReport != nil {
		s.CompletenessScore = r.ContextReport.CompletenessScore
	}
	if r.Confidence != nil {
		s.AdjustedConfidence = r.Confidence.Adjusted
	}
	if r.Recommendation != nil {
		s.Category = r.Recommendation.Category
	}
	return s
}

// RiskDelta is the per-dimension change in risk scores between two versions.
type RiskDelta struct {
	Execution       int `json:"execution"`
	MarketCustomer  int `json:"market_customer"`
	Reputational    int `json:"reputational"`
	OpportunityCost int `json:"opportunity_cost"`
}

// VersionComparison quantifies how an evaluation evolved between two
// versions of the same decision identity. All fields are derived, never
// stored.
type VersionComparison struct {
	DecisionID        string    `json:"decision_id"`
	VersionA          int       `json:"version_a"`
	VersionB          int       `json:"version_b"`
	CompletenessDelta int       `json:"completeness_delta"`
	ConfidenceDelta   int       `json:"confidence_delta"`
	RiskDelta         RiskDelta `json:"risk_delta"`
	ResolvedMissing   []string  `json:"resolved_missing_context"`
	RemainingMissing  []string  `json:"remaining_missing_context"`
	NewMissing        []string  `json:"new_missing_context"`
}

// Compare derives the deltas between two records of the same lineage.
// Missing-context set algebra preserves input order: resolved and remaining
// follow a's ordering, new follows b's.
func Compare(a, b *Record) VersionComparison {
	cmp := VersionComparison{
		DecisionID: a.DecisionID,
		VersionA:   a.Version,
		VersionB:   b.Version,
	}

	var aMissing, bMissing []string
	if a.ContextReport != nil {
		aMissing = a.ContextReport.MissingContext
		cmp.CompletenessDelta -= a.ContextReport.CompletenessScore
	}
	if b.ContextReport != nil {
		bMissing = b.ContextReport.MissingContext
		cmp.CompletenessDelta += b.ContextReport.CompletenessScore
	}

	if a.Confidence != nil {
		cmp.ConfidenceDelta -= a.Confidence.Adjusted
	}
	if b.Confidence != nil {
		cmp.ConfidenceDelta += b.Confidence.Adjusted
	}

	var aRisk, bRisk RiskBreakdown
	if a.Critique != nil {
		aRisk = a.Critique.Risk
	}
	if b.Critique != nil {
		bRisk = b.Critique.Risk
	}
	cmp.RiskDelta = RiskDelta{
		Execution:       bRisk.Execution - aRisk.Execution,
		MarketCustomer:  bRisk.MarketCustomer - aRisk.MarketCustomer,
		Reputational:    bRisk.Reputational - aRisk.Reputational,
		OpportunityCost: bRisk.OpportunityCost - aRisk.OpportunityCost,
	}

	inB := make(map[string]bool, len(bMissing))
	for _, m := range bMissing {
		inB[m] = true
	}
	inA := make(map[string]bool, len(aMissing))
	for _, m := range aMissing {
		inA[m] = true
	}

	for _, m := range aMissing {
		if inB[m] {
			cmp.RemainingMissing = append(cmp.RemainingMissing, m)
		} else {
			cmp.ResolvedMissing = append(cmp.ResolvedMissing, m)
		}
	}
	for _, m := range bMissing {
		if !inA[m] {
			cmp.NewMissing = append(cmp.NewMissing, m)
		}
	}

	return cmp
}

func clampScore(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
