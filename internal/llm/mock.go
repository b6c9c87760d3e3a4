package llm

import "context"

// MockCompleter returns canned structured outputs keyed by schema hint, for
// local development without an LLM endpoint.
type MockCompleter struct {
	Responses map[string]string
}

func (m MockCompleter) Complete(ctx context.Context, req Request) (string, error) {
	if out, ok := m.Responses[req.SchemaHint]; ok {
		return out, nil
	}
	return cannedResponses[req.SchemaHint], nil
}

var cannedResponses = map[string]string{
	SchemaCaseAnalysis: `{
  "reasoning_steps": {
    "problem_understanding": "The customer upgraded to the premium plan but cannot reach the advanced analytics dashboard.",
    "data_analysis": "Payment is confirmed and the account already shows Premium, so billing is not the blocker.",
    "key_insights": "Entitlement flags were most likely not refreshed after the plan change.",
    "action_planning": "Have provisioning re-sync entitlements, then confirm access with the customer."
  },
  "summary": "Premium customer cannot access the analytics dashboard after upgrading; billing checks out, entitlement sync is the likely cause.",
  "next_actions": [
    "Trigger an entitlement re-sync for the account",
    "Verify dashboard access with the customer afterwards",
    "Document the provisioning gap for the product team"
  ],
  "priority_level": "High",
  "estimated_resolution_time": "24-48 hours",
  "required_teams": ["Support", "Provisioning"],
  "confidence_score": 0.88
}`,
	SchemaBatchSummary: `{
  "batch_summary": "Steady cadence of follow-up tasks and check-in events; two support cases about dashboard access were opened and resolved.",
  "key_points": [
    "Regular outreach from the account owner",
    "Two dashboard access cases resolved within SLA"
  ]
}`,
	SchemaFinalInsights: `{
  "executive_summary": "The account shows healthy engagement with recurring outreach and a small number of support cases, all resolved.",
  "key_insights": [
    "Engagement cadence is consistent across the period",
    "Support volume is low and concentrated on dashboard access",
    "No open escalations remain"
  ],
  "activity_by_month": {"labels": ["Jan"], "values": [3]},
  "status_distribution": {"labels": ["Completed", "Open"], "values": [2, 1]}
}`,
	SchemaCaseAnswer: `{
  "answer": "The case concerns premium dashboard access; payment is confirmed and provisioning is re-syncing entitlements.",
  "sources": ["Case Details", "CaseComment"],
  "confidence": 0.82
}`,
}
