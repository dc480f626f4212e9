// Package decision defines the value types shared by the evaluation
// pipeline, the confidence engine and the version store. Reports are
// created once per pipeline run and never mutated afterwards.
package decision

// Type classifies the kind of business decision under evaluation.
type Type string

const (
	TypeLaunch      Type = "launch"
	TypePricing     Type = "pricing"
	TypeHiring      Type = "hiring"
	TypeTechnical   Type = "technical"
	TypeMarketEntry Type = "market_entry"
)

// RiskLevel grades the downside of an assumption being wrong.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// Severity grades the impact of a failure scenario.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// ClaimSource identifies which side of the debate a flagged claim came from.
type ClaimSource string

const (
	SourceProposal ClaimSource = "proposal"
	SourceCritique ClaimSource = "critique"
)

// Directive is the proposer's raw recommendation before confidence adjustment.
type Directive string

const (
	DirectiveProceed     Directive = "proceed"
	DirectiveDelay       Directive = "delay"
	DirectiveConditional Directive = "conditional"
)

// Category is the final rendered recommendation band.
type Category string

const (
	CategoryProceed     Category = "PROCEED"
	CategoryConditional Category = "CONDITIONAL"
	CategoryDelay       Category = "DELAY"
)

var validTypes = map[Type]bool{
	TypeLaunch:      true,
	TypePricing:     true,
	TypeHiring:      true,
	TypeTechnical:   true,
	TypeMarketEntry: true,
}

var validRiskLevels = map[RiskLevel]bool{
	RiskLow:    true,
	RiskMedium: true,
	RiskHigh:   true,
}

var validSeverities = map[Severity]bool{
	SeverityLow:      true,
	SeverityMedium:   true,
	SeverityHigh:     true,
	SeverityCritical: true,
}

var validSources = map[ClaimSource]bool{
	SourceProposal: true,
	SourceCritique: true,
}

var validDirectives = map[Directive]bool{
	DirectiveProceed:     true,
	DirectiveDelay:       true,
	DirectiveConditional: true,
}

// Valid reports whether t is one of the closed decision types.
func (t Type) Valid() bool { return validTypes[t] }

// Valid reports whether r is one of the closed risk levels.
func (r RiskLevel) Valid() bool { return validRiskLevels[r] }

// Valid reports whether s is one of the closed severities.
func (s Severity) Valid() bool { return validSeverities[s] }

// Valid reports whether c is one of the closed claim sources.
func (c ClaimSource) Valid() bool { return validSources[c] }

// Valid reports whether d is one of the closed directives.
func (d Directive) Valid() bool { return validDirectives[d] }
