package prompts

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/customer360-copilot/backend/internal/models"
)

// BuildCaseAnalysisPrompt produces the chain-of-thought analysis prompt for a
// single case plus its related objects and optional few-shot examples.
func BuildCaseAnalysisPrompt(c models.Case, related []models.RelatedObject, examples string) string {
	if examples == "" {
		examples = "No examples available."
	}
	return fmt.Sprintf(`You are an expert AI assistant helping customer service agents analyze CRM cases efficiently.

**Case Information:**
- Case Number: %s
- Subject: %s
- Description: %s
- Priority: %s
- Status: %s
- Created Date: %s

**Related Objects Data:**
%s

**Few-Shot Examples:**
%s

**Analysis Instructions:**
Follow this chain-of-thought reasoning process:

1. UNDERSTAND THE PROBLEM: the customer's main issue, its urgency, critical keywords.
2. ANALYZE RELATED DATA: relevant context from Account, Contact, comments and email history.
3. IDENTIFY KEY INSIGHTS: root causes, blockers, teams or resources needed.
4. DETERMINE NEXT ACTIONS: immediate steps in priority order, who to involve, expected timeline.
5. PREPARE SUMMARY: concise, actionable, relevant context only.

Respond with ONLY this JSON structure:
{
  "reasoning_steps": {
    "problem_understanding": "...",
    "data_analysis": "...",
    "key_insights": "...",
    "action_planning": "..."
  },
  "summary": "A clear, concise summary of the case with relevant context",
  "next_actions": ["Action 1", "Action 2", "Action 3"],
  "priority_level": "Critical|High|Medium|Low",
  "estimated_resolution_time": "...",
  "required_teams": ["team1", "team2"],
  "confidence_score": 0.95
}`,
		c.CaseNumber, c.Subject, c.Description, c.Priority, c.Status,
		c.CreatedDate.Format("2006-01-02T15:04:05Z07:00"),
		FormatRelatedObjects(related), examples)
}

// BuildBatchSummaryPrompt asks for a partial summary of one activity batch.
func BuildBatchSummaryPrompt(accountName, accountID string, batchNumber, totalBatches int, dr models.DateRange, activities []models.ActivityRecord) string {
	return fmt.Sprintf(`You are analyzing CRM activity history for account %q (%s).

This is batch %d of %d covering the period %s to %s. It contains %d activity records:

%s

Summarize the key themes of this batch. Respond with ONLY this JSON structure:
{
  "batch_summary": "2-4 sentence summary of this batch",
  "key_points": ["theme 1", "theme 2"]
}`,
		accountName, accountID, batchNumber, totalBatches,
		dr.Start.Format("2006-01-02"), dr.End.Format("2006-01-02"),
		len(activities), FormatActivities(activities))
}

// BuildFinalInsightsPrompt merges batch summaries into the consolidated
// account narrative and renderer inputs.
func BuildFinalInsightsPrompt(accountName, accountID string, dr models.DateRange, taskCount, eventCount, caseCount int, batchSummaries string, formats []models.SummaryFormat) string {
	names := make([]string, 0, len(formats))
	for _, f := range formats {
		names = append(names, string(f))
	}
	return fmt.Sprintf(`You are producing an executive account activity report for %q (%s), period %s to %s.

Activity counts: %d total (%d tasks, %d events, %d cases).

Partial summaries from batched processing:
%s

Requested output formats: %s.

Consolidate the partial summaries into one coherent narrative. Respond with ONLY this JSON structure:
{
  "executive_summary": "3-5 sentence executive summary",
  "key_insights": ["insight 1", "insight 2", "insight 3"],
  "activity_by_month": {"labels": ["2024-01"], "values": [12]},
  "status_distribution": {"labels": ["Completed", "Open"], "values": [10, 2]}
}`,
		accountName, accountID,
		dr.Start.Format("2006-01-02"), dr.End.Format("2006-01-02"),
		taskCount+eventCount+caseCount, taskCount, eventCount, caseCount,
		batchSummaries, strings.Join(names, ", "))
}

// BuildCaseQuestionPrompt constrains the model to answer only from the
// supplied case context.
func BuildCaseQuestionPrompt(context, question string) string {
	return fmt.Sprintf(`You are a helpful customer service AI assistant. Based on the following case information, answer the user's question accurately and concisely.

CASE INFORMATION:
%s

USER QUESTION: %s

Instructions:
1. Answer the question based ONLY on the provided case information.
2. If the information is not available, state that clearly and set confidence near 0.
3. Be concise but comprehensive.
4. List which data sources you used to answer.

Respond with ONLY this JSON structure:
{
  "answer": "Your answer here",
  "sources": ["Case Details", "Account", "CaseComment"],
  "confidence": 0.9
}`, context, question)
}

// FormatRelatedObjects renders related-object records as labelled JSON blocks.
func FormatRelatedObjects(related []models.RelatedObject) string {
	if len(related) == 0 {
		return "No related objects available."
	}
	var b strings.Builder
	for _, obj := range related {
		fmt.Fprintf(&b, "\n**%s:**\n", obj.ObjectName)
		for _, record := range obj.Records {
			data, err := json.MarshalIndent(record, "  ", "  ")
			if err != nil {
				continue
			}
			fmt.Fprintf(&b, "  - %s\n", data)
		}
	}
	return b.String()
}

// FormatActivities renders activity records as one numbered line each.
func FormatActivities(activities []models.ActivityRecord) string {
	var b strings.Builder
	for i, a := range activities {
		fmt.Fprintf(&b, "%d. [%s] Subject: %s | Status: %s | Priority: %s | Date: %s | Owner: %s\n",
			i+1, a.Type, valueOr(a.Subject), valueOr(a.Status), valueOr(a.Priority),
			valueOr(a.ActivityDate), valueOr(a.OwnerName))
	}
	return b.String()
}

// BuildQAContext flattens a case and its related objects into the context
// block for question answering.
func BuildQAContext(c models.Case, related []models.RelatedObject) string {
	var b strings.Builder
	b.WriteString("=== CASE DETAILS ===\n")
	fmt.Fprintf(&b, "Case Number: %s\n", c.CaseNumber)
	fmt.Fprintf(&b, "Subject: %s\n", c.Subject)
	fmt.Fprintf(&b, "Description: %s\n", c.Description)
	fmt.Fprintf(&b, "Priority: %s\n", c.Priority)
	fmt.Fprintf(&b, "Status: %s\n", c.Status)
	fmt.Fprintf(&b, "Created Date: %s\n", c.CreatedDate.Format("2006-01-02"))

	for _, obj := range related {
		fmt.Fprintf(&b, "\n=== %s ===\n", strings.ToUpper(obj.ObjectName))
		for _, record := range obj.Records {
			for key, value := range record {
				if key == "Id" || value == nil || value == "" {
					continue
				}
				fmt.Fprintf(&b, "%s: %v\n", key, value)
			}
		}
	}
	return b.String()
}

func valueOr(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
