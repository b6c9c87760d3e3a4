package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/customer360-copilot/backend/internal/crm"
	"github.com/customer360-copilot/backend/internal/llm"
	"github.com/customer360-copilot/backend/internal/models"
	"github.com/customer360-copilot/backend/internal/prompts"
)

// CompletionGateway is the LLM boundary the workflows depend on. Satisfied by
// *llm.Gateway; tests substitute canned implementations.
type CompletionGateway interface {
	Complete(ctx context.Context, req llm.Request) (string, error)
	CompleteJSON(ctx context.Context, req llm.Request, out any) error
}

// AnalysisService drives the case-analysis workflow:
// Fetching -> ClosedCheck -> Reasoning -> Sanitizing -> Scoring -> Done,
// short-circuiting to a ClosedCaseResult when the case is already closed.
type AnalysisService struct {
	Fetcher   crm.Fetcher
	Gateway   CompletionGateway
	Sanitizer Sanitizer
	Logger    zerolog.Logger

	MaxTokens  int
	LLMTimeout time.Duration
}

// caseAnalysisOutput mirrors the JSON shape the reasoning prompt requests.
type caseAnalysisOutput struct {
	ReasoningSteps struct {
		ProblemUnderstanding string `json:"problem_understanding"`
		DataAnalysis         string `json:"data_analysis"`
		KeyInsights          string `json:"key_insights"`
		ActionPlanning       string `json:"action_planning"`
	} `json:"reasoning_steps"`
	Summary                 string   `json:"summary"`
	NextActions             []string `json:"next_actions"`
	PriorityLevel           string   `json:"priority_level"`
	EstimatedResolutionTime string   `json:"estimated_resolution_time"`
	RequiredTeams           []string `json:"required_teams"`
	ConfidenceScore         float64  `json:"confidence_score"`
}

const fewShotExamples = `
**Example 1:**
Case: Login failures after password reset
Priority: High
Summary: Customer locked out after a forced password reset; SSO cache held the stale credential.
Next Actions: Clear the SSO session cache; Confirm login with the customer; File a bug on stale cache TTL

**Example 2:**
Case: Invoice shows duplicate line items
Priority: Medium
Summary: Billing sync ran twice during a maintenance window, duplicating one invoice line.
Next Actions: Reverse the duplicate line; Verify next invoice cycle; Add idempotency check to the sync job
`

func (s *AnalysisService) AnalyzeCase(ctx context.Context, caseNumber string, includeRelated bool) (models.AnalysisOutcome, error) {
	if strings.TrimSpace(caseNumber) == "" {
		return models.AnalysisOutcome{}, &models.ValidationError{Field: "case_id", Message: "required"}
	}

	c, err := s.Fetcher.FetchCase(ctx, caseNumber)
	if err != nil {
		return models.AnalysisOutcome{}, err
	}

	if c.IsClosed {
		// Closed cases are immutable from an analysis standpoint; skip the
		// LLM entirely.
		return models.AnalysisOutcome{
			Kind: models.OutcomeClosed,
			Closed: &models.ClosedCaseResult{
				CaseNumber: c.CaseNumber,
				Status:     c.Status,
				ClosedDate: c.ClosedDate,
				Message:    "This case is closed. Analysis is not available for closed cases.",
			},
		}, nil
	}

	var related []models.RelatedObject
	relatedRetrieved := false
	if includeRelated {
		related, err = s.Fetcher.FetchRelatedObjects(ctx, c.ID)
		if err != nil {
			// Missing related context lowers the completeness factor instead
			// of failing the analysis.
			s.Logger.Warn().Err(err).Str("case", c.CaseNumber).Msg("related objects unavailable")
			related = nil
		}
		relatedRetrieved = len(related) > 0
	}

	var out caseAnalysisOutput
	err = s.Gateway.CompleteJSON(ctx, llm.Request{
		Prompt:     prompts.BuildCaseAnalysisPrompt(c, related, fewShotExamples),
		SchemaHint: llm.SchemaCaseAnalysis,
		MaxTokens:  s.MaxTokens,
		Timeout:    s.LLMTimeout,
	}, &out)
	if err != nil {
		return models.AnalysisOutcome{}, err
	}
	fillFallback(&out, c)

	sanitizer := s.Sanitizer
	sanitizer.AllowedEmails = append(sanitizer.AllowedEmails, contactEmails(related)...)
	sanitized, sanitizationLog := sanitizer.Sanitize(out.Summary)

	confidence, accuracy := Score(ScoreInput{
		ModelConfidence:   out.ConfidenceScore,
		HasSummary:        out.Summary != "",
		HasReasoning:      out.ReasoningSteps.ProblemUnderstanding != "",
		HasNextActions:    len(out.NextActions) > 0,
		HasRequiredTeams:  len(out.RequiredTeams) > 0,
		HasResolutionTime: out.EstimatedResolutionTime != "",
		RelatedRetrieved:  relatedRetrieved,
	})

	return models.AnalysisOutcome{
		Kind: models.OutcomeAnalyzed,
		Analysis: &models.CaseAnalysisResult{
			CaseID: c.CaseNumber,
			ReasoningSteps: models.ReasoningSteps{
				ProblemUnderstanding: out.ReasoningSteps.ProblemUnderstanding,
				DataAnalysis:         out.ReasoningSteps.DataAnalysis,
				KeyInsights:          out.ReasoningSteps.KeyInsights,
				ActionPlanning:       out.ReasoningSteps.ActionPlanning,
			},
			RawSummary:              out.Summary,
			SanitizedSummary:        sanitized,
			SanitizationLog:         sanitizationLog,
			NextActions:             out.NextActions,
			PriorityLevel:           normalizePriority(out.PriorityLevel, c.Priority),
			EstimatedResolutionTime: out.EstimatedResolutionTime,
			RequiredTeams:           out.RequiredTeams,
			ConfidenceScore:         confidence,
			AccuracyPercentage:      accuracy,
		},
	}, nil
}

// fillFallback backstops a decodable but partially empty model response with
// deterministic content so the request still succeeds.
func fillFallback(out *caseAnalysisOutput, c models.Case) {
	if out.Summary == "" {
		out.Summary = fmt.Sprintf("Case %s regarding %q requires attention.", c.CaseNumber, c.Subject)
	}
	if len(out.NextActions) == 0 {
		out.NextActions = []string{
			"Review case details thoroughly",
			"Contact customer for additional information",
			"Escalate to appropriate team",
		}
	}
	if out.PriorityLevel == "" {
		out.PriorityLevel = c.Priority
	}
}

func normalizePriority(value, caseDefault string) models.PriorityLevel {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "low":
		return models.PriorityLow
	case "medium":
		return models.PriorityMedium
	case "high":
		return models.PriorityHigh
	case "critical":
		return models.PriorityCritical
	}
	switch strings.ToLower(strings.TrimSpace(caseDefault)) {
	case "low":
		return models.PriorityLow
	case "high":
		return models.PriorityHigh
	case "critical":
		return models.PriorityCritical
	}
	return models.PriorityMedium
}

func contactEmails(related []models.RelatedObject) []string {
	var emails []string
	for _, obj := range related {
		if obj.ObjectName != "Contact" {
			continue
		}
		for _, record := range obj.Records {
			if email, ok := record["Email"].(string); ok && email != "" {
				emails = append(emails, email)
			}
		}
	}
	return emails
}
