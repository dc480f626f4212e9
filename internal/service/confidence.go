package service

import (
	"fmt"
	"strings"

	"github.com/Strob0t/SecondGuess/internal/domain/decision"
)

// Penalty sizes applied by the confidence engine, in percentage points.
const (
	penaltyMissingVeryLow  = 20 // per missing item when completeness < 30
	penaltyMissingLow      = 15 // per missing item when completeness < 50
	penaltyMissingModerate = 10 // per missing item otherwise
	penaltyUnsupported     = 8  // per unsupported proposal claim
	penaltyHighRiskBoth    = 12 // high-risk assumption also flagged by critique
	penaltyHighRiskSingle  = 6  // high-risk assumption unconfirmed by critique
	penaltyWeakClaim       = 5  // per weak proposal claim
	penaltyExecCritical    = 15 // execution risk >= 8
	penaltyExecHigh        = 8  // execution risk >= 6
)

// Recommendation band boundaries on adjusted confidence.
const (
	delayBelow   = 40
	proceedAbove = 70
)

// Estimator converts accumulated stage outputs into a penalty ledger, an
// adjusted confidence and a rendered recommendation. It is a pure
// computation: no I/O, safe under unbounded concurrency.
type Estimator struct{}

// Estimate applies the five penalty rules independently and sums them.
// Order affects only the itemized ledger, never the total.
func (Estimator) Estimate(
	ctxRep *decision.ContextReport,
	prop *decision.ProposalReport,
	crit *decision.CritiqueReport,
	judg *decision.JudgmentReport,
) *decision.ConfidenceAdjustment {
	var penalties []decision.PenaltyEntry

	penalties = append(penalties, missingContextPenalties(ctxRep)...)
	penalties = append(penalties, unsupportedClaimPenalties(judg)...)
	penalties = append(penalties, highRiskAssumptionPenalties(prop, crit)...)
	penalties = append(penalties, weakClaimPenalties(judg)...)
	penalties = append(penalties, executionRiskPenalties(crit)...)

	total := 0
	for _, p := range penalties {
		total += p.PercentageImpact
	}

	adjusted := clampConfidence(prop.InitialConfidence - total)

	return &decision.ConfidenceAdjustment{
		Initial:   prop.InitialConfidence,
		Adjusted:  adjusted,
		Delta:     adjusted - prop.InitialConfidence,
		Penalties: penalties,
	}
}

// missingContextPenalties adds one entry per missing context item. The
// per-item size is a step function of the completeness score.
func missingContextPenalties(ctxRep *decision.ContextReport) []decision.PenaltyEntry {
	var penalties []decision.PenaltyEntry

	for _, item := range ctxRep.MissingContext {
		penalty := penaltyMissingModerate
		switch {
		case ctxRep.CompletenessScore < 30:
			penalty = penaltyMissingVeryLow
		case ctxRep.CompletenessScore < 50:
			penalty = penaltyMissingLow
		}

		penalties = append(penalties, decision.PenaltyEntry{
			Reason:           "Missing critical context: " + item,
			PercentageImpact: penalty,
		})
	}

	return penalties
}

// unsupportedClaimPenalties penalizes only unsupported claims attributed to
// the proposal side.
func unsupportedClaimPenalties(judg *decision.JudgmentReport) []decision.PenaltyEntry {
	var penalties []decision.PenaltyEntry

	for _, claim := range judg.UnsupportedClaims {
		if claim.Source != decision.SourceProposal {
			continue
		}
		penalties = append(penalties, decision.PenaltyEntry{
			Reason: fmt.Sprintf("Unsupported claim: %s... (missing: %s...)",
				truncate(claim.Claim, 60), truncate(claim.Reason, 40)),
			PercentageImpact: penaltyUnsupported,
		})
	}

	return penalties
}

// highRiskAssumptionPenalties checks each high-risk proposal assumption
// against the critique's free-text flags. An assumption confirmed by both
// sides costs more than one the critique did not corroborate.
func highRiskAssumptionPenalties(prop *decision.ProposalReport, crit *decision.CritiqueReport) []decision.PenaltyEntry {
	var penalties []decision.PenaltyEntry

	for _, a := range prop.Assumptions {
		if a.RiskLevel != decision.RiskHigh {
			continue
		}

		if assumptionFlagged(a.Statement, crit.HighRiskAssumptions) {
			penalties = append(penalties, decision.PenaltyEntry{
				Reason:           fmt.Sprintf("High-risk unverified assumption: %s...", truncate(a.Statement, 60)),
				PercentageImpact: penaltyHighRiskBoth,
			})
		} else {
			penalties = append(penalties, decision.PenaltyEntry{
				Reason:           fmt.Sprintf("High-risk assumption: %s...", truncate(a.Statement, 60)),
				PercentageImpact: penaltyHighRiskSingle,
			})
		}
	}

	return penalties
}

// assumptionFlagged reports whether the assumption statement appears as a
// case-insensitive substring of any critique flag. The correlation is
// fragile: it silently fails whenever the two stages phrase the same
// assumption differently. Kept as-is; stable cross-stage identifiers would
// change matching semantics.
func assumptionFlagged(statement string, flags []string) bool {
	s := strings.ToLower(statement)
	for _, flag := range flags {
		if strings.Contains(strings.ToLower(flag), s) {
			return true
		}
	}
	return false
}

// weakClaimPenalties penalizes only weak claims attributed to the proposal side.
func weakClaimPenalties(judg *decision.JudgmentReport) []decision.PenaltyEntry {
	var penalties []decision.PenaltyEntry

	for _, claim := range judg.WeakClaims {
		if claim.Source != decision.SourceProposal {
			continue
		}
		penalties = append(penalties, decision.PenaltyEntry{
			Reason: fmt.Sprintf("Weak/vague claim: %s... (%s...)",
				truncate(claim.Claim, 60), truncate(claim.Reason, 40)),
			PercentageImpact: penaltyWeakClaim,
		})
	}

	return penalties
}

// executionRiskPenalties adds at most one entry, chosen by threshold.
func executionRiskPenalties(crit *decision.CritiqueReport) []decision.PenaltyEntry {
	exec := crit.Risk.Execution

	switch {
	case exec >= 8:
		return []decision.PenaltyEntry{{
			Reason:           fmt.Sprintf("Critical execution risk level (%d/10)", exec),
			PercentageImpact: penaltyExecCritical,
		}}
	case exec >= 6:
		return []decision.PenaltyEntry{{
			Reason:           fmt.Sprintf("High execution risk level (%d/10)", exec),
			PercentageImpact: penaltyExecHigh,
		}}
	}
	return nil
}

// Render turns an adjustment into the final recommendation. The category is
// decided strictly by the adjusted confidence band; the explanatory text
// lists blockers, requirements or monitoring items depending on the band.
func (Estimator) Render(
	adj *decision.ConfidenceAdjustment,
	prop *decision.ProposalReport,
	crit *decision.CritiqueReport,
	ctxRep *decision.ContextReport,
) *decision.FinalRecommendation {
	switch {
	case adj.Adjusted < delayBelow:
		return renderDelay(adj, prop, crit, ctxRep)
	case adj.Adjusted < proceedAbove:
		return renderConditional(adj, prop, crit, ctxRep)
	default:
		return renderProceed(adj, prop, crit)
	}
}

func renderDelay(
	adj *decision.ConfidenceAdjustment,
	prop *decision.ProposalReport,
	crit *decision.CritiqueReport,
	ctxRep *decision.ContextReport,
) *decision.FinalRecommendation {
	var blockers []string

	for _, missing := range head(ctxRep.MissingContext, 3) {
		blockers = append(blockers, "Gather missing context: "+missing)
	}

	count := 0
	for _, a := range prop.Assumptions {
		if a.RiskLevel != decision.RiskHigh {
			continue
		}
		blockers = append(blockers, "Verify assumption: "+a.Statement)
		if count++; count == 2 {
			break
		}
	}

	count = 0
	for _, fs := range crit.FailureScenarios {
		if fs.Severity != decision.SeverityCritical {
			continue
		}
		blockers = append(blockers, "Mitigate risk: "+fs.Description)
		if count++; count == 2 {
			break
		}
	}

	text := fmt.Sprintf(`DELAY

Adjusted confidence (%d%%) is too low to proceed. Address these blockers first:

%s

Once these blockers are resolved, re-evaluate the decision with updated context.`,
		adj.Adjusted, bulletList(head(blockers, 5)))

	return &decision.FinalRecommendation{Category: decision.CategoryDelay, Text: text}
}

func renderConditional(
	adj *decision.ConfidenceAdjustment,
	prop *decision.ProposalReport,
	crit *decision.CritiqueReport,
	ctxRep *decision.ContextReport,
) *decision.FinalRecommendation {
	var requirements []string

	if len(ctxRep.MissingContext) > 0 {
		requirements = append(requirements, "Obtain "+strings.Join(head(ctxRep.MissingContext, 2), ", "))
	}

	for _, a := range prop.Assumptions {
		if a.RiskLevel == decision.RiskHigh {
			requirements = append(requirements, fmt.Sprintf("Validate assumptions: %s...", truncate(a.Statement, 50)))
			break
		}
	}

	for _, fs := range crit.FailureScenarios {
		if fs.Severity == decision.SeverityHigh || fs.Severity == decision.SeverityCritical {
			requirements = append(requirements, fmt.Sprintf("Prepare mitigation for: %s...", truncate(fs.Description, 50)))
			break
		}
	}

	text := fmt.Sprintf(`CONDITIONAL PROCEED

Adjusted confidence (%d%%) suggests proceeding with caution. Required conditions:

%s

Monitor execution closely and be prepared to rollback if issues arise.`,
		adj.Adjusted, bulletList(head(requirements, 5)))

	return &decision.FinalRecommendation{Category: decision.CategoryConditional, Text: text}
}

func renderProceed(
	adj *decision.ConfidenceAdjustment,
	prop *decision.ProposalReport,
	crit *decision.CritiqueReport,
) *decision.FinalRecommendation {
	var monitoring []string

	for _, a := range prop.Assumptions {
		if a.RiskLevel == decision.RiskMedium {
			monitoring = append(monitoring, fmt.Sprintf("Monitor assumption: %s...", truncate(a.Statement, 60)))
			break
		}
	}

	if len(crit.FailureScenarios) > 0 {
		monitoring = append(monitoring, fmt.Sprintf("Watch for: %s...", truncate(crit.FailureScenarios[0].Description, 60)))
	}

	if crit.Risk.Execution >= 5 {
		monitoring = append(monitoring, fmt.Sprintf("Monitor execution closely (risk: %d/10)", crit.Risk.Execution))
	}
	if crit.Risk.Reputational >= 6 {
		monitoring = append(monitoring, fmt.Sprintf("Monitor public perception (risk: %d/10)", crit.Risk.Reputational))
	}

	if len(monitoring) == 0 {
		text := fmt.Sprintf(`PROCEED

Adjusted confidence (%d%%) strongly supports moving forward. No significant monitoring requirements identified.`, adj.Adjusted)
		return &decision.FinalRecommendation{Category: decision.CategoryProceed, Text: text}
	}

	text := fmt.Sprintf(`PROCEED

Adjusted confidence (%d%%) supports moving forward. Recommended monitoring:

%s

Confidence is high, but stay vigilant for early warning signs.`,
		adj.Adjusted, bulletList(head(monitoring, 4)))

	return &decision.FinalRecommendation{Category: decision.CategoryProceed, Text: text}
}

func bulletList(items []string) string {
	lines := make([]string, len(items))
	for i, item := range items {
		lines[i] = "  - " + item
	}
	return strings.Join(lines, "\n")
}

// head returns at most n leading elements of s.
func head(s []string, n int) []string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// truncate returns the first n runes of s.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

func clampConfidence(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
