package litellm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Strob0t/SecondGuess/internal/domain/decision"
	"github.com/Strob0t/SecondGuess/internal/port/reasoning"
)

// requiredContext maps each decision type to the context dimensions a
// complete evaluation needs.
var requiredContext = map[decision.Type][]string{
	decision.TypeLaunch: {
		"deployment readiness",
		"rollback plan",
		"system stability verification",
		"customer impact analysis",
		"team capacity and availability",
		"monitoring and alerting setup",
	},
	decision.TypePricing: {
		"competitive analysis",
		"cost structure",
		"target customer segment",
		"revenue impact model",
		"customer churn risk assessment",
		"market positioning strategy",
	},
	decision.TypeHiring: {
		"current team capacity",
		"budget and runway",
		"role requirements and urgency",
		"onboarding capacity",
		"hiring timeline",
		"team growth impact",
	},
	decision.TypeTechnical: {
		"technical requirements",
		"implementation complexity",
		"technical debt implications",
		"resource requirements",
		"testing strategy",
		"rollback and failure recovery",
	},
	decision.TypeMarketEntry: {
		"market size and opportunity",
		"competitive landscape",
		"customer acquisition strategy",
		"resource requirements",
		"timeline and milestones",
		"risk assessment",
	},
}

// Engine implements the reasoning port on top of the LiteLLM chat API.
// Each stage is a single completion; responses are parsed into the typed
// reports and any failure surfaces as a plain error for the pipeline to
// abort on.
type Engine struct {
	client *Client
}

// NewEngine creates a reasoning engine backed by the given client.
func NewEngine(client *Client) *Engine {
	return &Engine{client: client}
}

var _ reasoning.Engine = (*Engine)(nil)

// AnalyzeContext classifies the decision, then determines which of the
// type's required dimensions the supplied context addresses.
func (e *Engine) AnalyzeContext(ctx context.Context, decisionText, contextText string) (*decision.ContextReport, error) {
	dt, err := e.classify(ctx, decisionText, contextText)
	if err != nil {
		return nil, fmt.Errorf("classify decision: %w", err)
	}

	required := requiredContext[dt]
	provided, err := e.extractProvided(ctx, decisionText, contextText, required)
	if err != nil {
		return nil, fmt.Errorf("extract provided context: %w", err)
	}

	return decision.NewContextReport(dt, required, provided), nil
}

func (e *Engine) classify(ctx context.Context, decisionText, contextText string) (decision.Type, error) {
	if contextText == "" {
		contextText = "None provided"
	}
	prompt := fmt.Sprintf(`Classify the following business decision into ONE of these types:
- launch: Decisions about launching, releasing, or deploying products/features
- pricing: Decisions about pricing strategy, monetization, or cost changes
- hiring: Decisions about hiring, team expansion, or headcount
- technical: Decisions about technical implementation, architecture, or infrastructure
- market_entry: Decisions about entering new markets or segments

Decision: %s
Context: %s

Return ONLY the decision type (one word: launch, pricing, hiring, technical, or market_entry).`, decisionText, contextText)

	raw, err := e.client.Complete(ctx, "", prompt, false)
	if err != nil {
		return "", err
	}

	dt := decision.Type(strings.ToLower(strings.TrimSpace(raw)))
	if !dt.Valid() {
		// Unclear classifications default to technical.
		dt = decision.TypeTechnical
	}
	return dt, nil
}

func (e *Engine) extractProvided(ctx context.Context, decisionText, contextText string, required []string) ([]string, error) {
	if contextText == "" {
		return nil, nil
	}

	var dims strings.Builder
	for _, rc := range required {
		dims.WriteString("- " + rc + "\n")
	}

	prompt := fmt.Sprintf(`Given a decision and user-provided context, identify which required context dimensions are addressed.

Decision: %s
User Context: %s

Required Context Dimensions:
%s
For each required dimension, determine if the user's context addresses it (even partially).
Return ONLY a JSON array of the dimension names that are addressed.

Example: ["system stability verification", "rollback plan"]`, decisionText, contextText, dims.String())

	raw, err := e.client.Complete(ctx, "", prompt, false)
	if err != nil {
		return nil, err
	}

	var parsed []string
	if err := json.Unmarshal([]byte(stripFences(raw)), &parsed); err != nil {
		// Malformed array: fall back to keyword matching against the
		// user's context.
		return keywordMatch(contextText, required), nil
	}

	requiredSet := make(map[string]bool, len(required))
	for _, r := range required {
		requiredSet[r] = true
	}
	var provided []string
	for _, p := range parsed {
		if requiredSet[p] {
			provided = append(provided, p)
		}
	}
	return provided, nil
}

// keywordMatch marks a dimension as provided when any of its significant
// terms appears in the context text.
func keywordMatch(contextText string, required []string) []string {
	lower := strings.ToLower(contextText)
	var provided []string
	for _, req := range required {
		for _, term := range strings.Fields(strings.ToLower(req)) {
			if len(term) > 3 && strings.Contains(lower, term) {
				provided = append(provided, req)
				break
			}
		}
	}
	return provided
}

const proposeSystem = `You are an evaluation agent that generates recommendations based ONLY on provided context.

CRITICAL RULES:
- Use ONLY the provided context to make your recommendation
- Make ALL assumptions explicit - list what you're assuming is true
- DO NOT ask clarifying questions
- DO NOT use conversational phrases like "It seems like..." or "I think..."
- Use evaluative language: "Given provided context..." or "Based on available information..."
- Be directive: recommend "proceed", "delay", or "conditional" (with conditions)
- Assign confidence based on context completeness
- For each assumption, explain what it's based on and the risk if wrong

Respond with a JSON object using exactly these keys:
{
  "directive": "proceed" | "delay" | "conditional",
  "conditions": ["..."],
  "assumptions": [{"statement": "...", "basis": "...", "risk_level": "low" | "medium" | "high"}],
  "initial_confidence": 0-100,
  "justification": "..."
}`

// Propose generates the directive, assumptions and initial confidence.
func (e *Engine) Propose(ctx context.Context, in reasoning.ProposeInput) (*decision.ProposalReport, error) {
	contextText := in.Context
	if contextText == "" {
		contextText = "No context provided"
	}

	prompt := fmt.Sprintf(`Evaluate this decision and provide a recommendation based ONLY on the provided context.

DECISION:
%s

PROVIDED CONTEXT:
%s

CONTEXT ANALYSIS:
- Decision Type: %s
- Completeness Score: %d/100

CONTEXT AVAILABLE:
%s

CONTEXT MISSING:
%s

INSTRUCTIONS:
1. Choose a directive: "proceed", "delay", or "conditional" (with specific conditions)
2. List ALL assumptions you are making (minimum 2 if any context is missing)
   - For each assumption: state it clearly, explain its basis, assess risk level (low/medium/high)
3. Assign confidence (0-100) based on context completeness and assumption risk
4. Provide justification based ONLY on available context

Remember:
- Be evaluative, not conversational
- Make assumptions explicit
- Base confidence on completeness score and assumption risk
- Low completeness (<50) should have multiple assumptions and lower confidence
- High completeness (>80) may have few/no assumptions and higher confidence`,
		in.Decision, contextText,
		in.ContextReport.DecisionType, in.ContextReport.CompletenessScore,
		bulletsOrNone(in.ContextReport.ProvidedContext),
		bulletsOrNone(in.ContextReport.MissingContext))

	raw, err := e.client.Complete(ctx, proposeSystem, prompt, true)
	if err != nil {
		return nil, fmt.Errorf("propose: %w", err)
	}

	var rep decision.ProposalReport
	if err := json.Unmarshal([]byte(stripFences(raw)), &rep); err != nil {
		return nil, fmt.Errorf("parse proposal: %w", err)
	}
	return &rep, nil
}

const critiqueSystem = `You are a Devil's Advocate agent that systematically challenges recommendations.

CRITICAL RULES:
- Attack the recommendation across ALL FOUR dimensions: Execution Risk, Market & Customer Impact, Reputational Downside, Opportunity Cost
- Generate SPECIFIC counterarguments, not generic concerns
- Create CONCRETE failure scenarios with clear triggers
- Flag UNVERIFIED assumptions as high-risk
- Assign risk scores (0-10) based on context completeness and assumption quality
- DO NOT soften critique with phrases like "however", "on the other hand", or "to be fair"
- Be ruthlessly critical - your job is to expose weaknesses, not balance perspectives
- Lower context completeness = higher execution risk scores

Respond with a JSON object using exactly these keys:
{
  "counterarguments": ["..."],
  "failure_scenarios": [{"description": "...", "trigger": "...", "severity": "low" | "medium" | "high" | "critical"}],
  "high_risk_assumptions": ["..."],
  "risk_breakdown": {"execution": 0-10, "market_customer": 0-10, "reputational": 0-10, "opportunity_cost": 0-10}
}`

// Critique challenges the proposal across the four risk dimensions.
func (e *Engine) Critique(ctx context.Context, in reasoning.CritiqueInput) (*decision.CritiqueReport, error) {
	contextText := in.Context
	if contextText == "" {
		contextText = "No context provided"
	}

	var assumptions strings.Builder
	for _, a := range in.Proposal.Assumptions {
		fmt.Fprintf(&assumptions, "  - %s (basis: %s, risk: %s)\n", a.Statement, a.Basis, a.RiskLevel)
	}

	prompt := fmt.Sprintf(`Systematically challenge this recommendation across ALL FOUR attack dimensions.

DECISION:
%s

PROVIDED CONTEXT:
%s

CONTEXT COMPLETENESS: %d/100

MISSING CONTEXT:
%s

PROPOSER'S DIRECTIVE: %s
PROPOSER'S CONDITIONS: %s
PROPOSER'S CONFIDENCE: %d/100

PROPOSER'S ASSUMPTIONS:
%s
PROPOSER'S JUSTIFICATION:
%s

YOUR TASK:
Attack this recommendation across ALL FOUR dimensions:

1. EXECUTION RISK (0-10): What could fail technically?
   - Higher score if context completeness is low (<50%%)
2. MARKET & CUSTOMER IMPACT (0-10): Who gets hurt if this goes wrong?
3. REPUTATIONAL DOWNSIDE (0-10): What's the narrative if this fails publicly?
4. OPPORTUNITY COST (0-10): What else could be done with this time/effort?

REQUIRED OUTPUT:
- counterarguments: At least 1 per attack dimension (minimum 4 total), directly challenging the Proposer
- failure_scenarios: At least 3 specific scenarios with clear triggers and severity
- high_risk_assumptions: Flag any Proposer assumptions that are UNVERIFIED or HIGH-RISK
- risk_breakdown: Score all four dimensions 0-10`,
		in.Decision, contextText,
		in.ContextReport.CompletenessScore,
		bulletsOrNone(in.ContextReport.MissingContext),
		in.Proposal.Directive, strings.Join(in.Proposal.Conditions, "; "),
		in.Proposal.InitialConfidence,
		assumptions.String(), in.Proposal.Justification)

	raw, err := e.client.Complete(ctx, critiqueSystem, prompt, true)
	if err != nil {
		return nil, fmt.Errorf("critique: %w", err)
	}

	var rep decision.CritiqueReport
	if err := json.Unmarshal([]byte(stripFences(raw)), &rep); err != nil {
		return nil, fmt.Errorf("parse critique: %w", err)
	}
	return &rep, nil
}

const judgeSystem = `You are a Judge agent that evaluates reasoning quality neutrally and objectively.

CRITICAL RULES:
- Evaluate BOTH Proposer and Devil's Advocate for reasoning quality
- DO NOT favor either side based on their conclusion - evaluate logic, specificity, and evidence
- Identify WEAK claims (vague like "things could go wrong" vs specific like "auth service could fail under load")
- Identify UNSUPPORTED claims (not backed by provided context)
- Be neutral - your job is to assess reasoning quality, not pick a winner
- High-quality arguments with specific, evidence-backed claims get higher scores
- Vague, generic, or unsupported arguments get lower scores

Respond with a JSON object using exactly these keys:
{
  "proposal_strength": 0-10,
  "critique_strength": 0-10,
  "weak_claims": [{"source": "proposal" | "critique", "claim": "...", "reason": "..."}],
  "unsupported_claims": [{"source": "proposal" | "critique", "claim": "...", "reason": "..."}],
  "assessment": "2-3 sentence overall assessment"
}`

// Judge scores reasoning quality on both sides and flags weak claims.
func (e *Engine) Judge(ctx context.Context, in reasoning.JudgeInput) (*decision.JudgmentReport, error) {
	contextText := in.Context
	if contextText == "" {
		contextText = "No context provided"
	}

	var assumptions strings.Builder
	for _, a := range in.Proposal.Assumptions {
		fmt.Fprintf(&assumptions, "  - %s (basis: %s, risk: %s)\n", a.Statement, a.Basis, a.RiskLevel)
	}
	var scenarios strings.Builder
	for _, fs := range in.Critique.FailureScenarios {
		fmt.Fprintf(&scenarios, "  - %s (trigger: %s, severity: %s)\n", fs.Description, fs.Trigger, fs.Severity)
	}

	prompt := fmt.Sprintf(`Evaluate the reasoning quality of BOTH the Proposer and Devil's Advocate.

DECISION:
%s

PROVIDED CONTEXT:
%s

CONTEXT AVAILABLE:
%s

CONTEXT COMPLETENESS: %d/100

---

PROPOSER'S CASE:
Directive: %s
Confidence: %d/100

Assumptions:
%s
Justification:
%s

---

DEVIL'S ADVOCATE'S CASE:
Counterarguments:
%s

Failure Scenarios:
%s
High-Risk Assumptions Flagged:
%s

Risk Breakdown:
- Execution: %d/10
- Market & Customer: %d/10
- Reputational: %d/10
- Opportunity Cost: %d/10

---

YOUR TASK:
Evaluate BOTH sides for logical consistency, specificity vs vagueness, evidence
support, and overconfidence. Given completeness of %d%%, low context (<50%%)
paired with high confidence (>70%%) is a red flag.

OUTPUT REQUIREMENTS:
- proposal_strength and critique_strength: 0-10 reasoning-quality scores
- weak_claims: vague or poorly reasoned claims from EITHER side, with source
- unsupported_claims: claims not backed by provided context, with source
- assessment: 2-3 sentence overall assessment of reasoning quality`,
		in.Decision, contextText,
		bulletsOrNone(in.ContextReport.ProvidedContext),
		in.ContextReport.CompletenessScore,
		in.Proposal.Directive, in.Proposal.InitialConfidence,
		assumptions.String(), in.Proposal.Justification,
		bulletsOrNone(in.Critique.Counterarguments),
		scenarios.String(),
		bulletsOrNone(in.Critique.HighRiskAssumptions),
		in.Critique.Risk.Execution, in.Critique.Risk.MarketCustomer,
		in.Critique.Risk.Reputational, in.Critique.Risk.OpportunityCost,
		in.ContextReport.CompletenessScore)

	raw, err := e.client.Complete(ctx, judgeSystem, prompt, true)
	if err != nil {
		return nil, fmt.Errorf("judge: %w", err)
	}

	var rep decision.JudgmentReport
	if err := json.Unmarshal([]byte(stripFences(raw)), &rep); err != nil {
		return nil, fmt.Errorf("parse judgment: %w", err)
	}
	return &rep, nil
}

func bulletsOrNone(items []string) string {
	if len(items) == 0 {
		return "  None"
	}
	lines := make([]string, len(items))
	for i, item := range items {
		lines[i] = "  - " + item
	}
	return strings.Join(lines, "\n")
}

// stripFences removes a markdown code fence if the model wrapped its JSON
// in one despite instructions.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
