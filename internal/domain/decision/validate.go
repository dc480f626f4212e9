package decision

import (
	"fmt"

	"github.com/Strob0t/SecondGuess/internal/domain"
)

// Validate checks the structural contract of a stage-1 report: closed
// decision type, score range, and provided being a subset of required.
func (r *ContextReport) Validate() error {
	if !r.DecisionType.Valid() {
		return fmt.Errorf("%w: invalid decision type %q", domain.ErrValidation, r.DecisionType)
	}
	if r.CompletenessScore < 0 || r.CompletenessScore > 100 {
		return fmt.Errorf("%w: completeness score %d out of range", domain.ErrValidation, r.CompletenessScore)
	}
	required := make(map[string]bool, len(r.RequiredContext))
	for _, req := range r.RequiredContext {
		required[req] = true
	}
	for _, p := range r.ProvidedContext {
		if !required[p] {
			return fmt.Errorf("%w: provided context %q not in required set", domain.ErrValidation, p)
		}
	}
	for _, m := range r.MissingContext {
		if !required[m] {
			return fmt.Errorf("%w: missing context %q not in required set", domain.ErrValidation, m)
		}
	}
	return nil
}

// Validate checks the structural contract of a stage-2 report.
func (r *ProposalReport) Validate() error {
	if !r.Directive.Valid() {
		return fmt.Errorf("%w: invalid directive %q", domain.ErrValidation, r.Directive)
	}
	if r.InitialConfidence < 0 || r.InitialConfidence > 100 {
		return fmt.Errorf("%w: initial confidence %d out of range", domain.ErrValidation, r.InitialConfidence)
	}
	for i, a := range r.Assumptions {
		if a.Statement == "" {
			return fmt.Errorf("%w: assumption %d has empty statement", domain.ErrValidation, i)
		}
		if !a.RiskLevel.Valid() {
			return fmt.Errorf("%w: assumption %d has invalid risk level %q", domain.ErrValidation, i, a.RiskLevel)
		}
	}
	return nil
}

// Validate checks the structural contract of a stage-3 report.
func (r *CritiqueReport) Validate() error {
	for i, fs := range r.FailureScenarios {
		if fs.Description == "" {
			return fmt.Errorf("%w: failure scenario %d has empty description", domain.ErrValidation, i)
		}
		if !fs.Severity.Valid() {
			return fmt.Errorf("%w: failure scenario %d has invalid severity %q", domain.ErrValidation, i, fs.Severity)
		}
	}
	return r.Risk.validate()
}

func (r RiskBreakdown) validate() error {
	dims := map[string]int{
		"execution":        r.Execution,
		"market_customer":  r.MarketCustomer,
		"reputational":     r.Reputational,
		"opportunity_cost": r.OpportunityCost,
	}
	for name, v := range dims {
		if v < 0 || v > 10 {
			return fmt.Errorf("%w: risk dimension %s score %d out of range", domain.ErrValidation, name, v)
		}
	}
	return nil
}

// Validate checks the structural contract of a stage-4 report.
func (r *JudgmentReport) Validate() error {
	if r.ProposalStrength < 0 || r.ProposalStrength > 10 {
		return fmt.Errorf("%w: proposal strength %d out of range", domain.ErrValidation, r.ProposalStrength)
	}
	if r.CritiqueStrength < 0 || r.CritiqueStrength > 10 {
		return fmt.Errorf("%w: critique strength %d out of range", domain.ErrValidation, r.CritiqueStrength)
	}
	for i, c := range r.WeakClaims {
		if !c.Source.Valid() {
			return fmt.Errorf("%w: weak claim %d has invalid source %q", domain.ErrValidation, i, c.Source)
		}
	}
	for i, c := range r.UnsupportedClaims {
		if !c.Source.Valid() {
			return fmt.Errorf("%w: unsupported claim %d has invalid source %q", domain.ErrValidation, i, c.Source)
		}
	}
	return nil
}
