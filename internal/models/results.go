package models

import "time"

type PriorityLevel string

const (
	PriorityLow      PriorityLevel = "Low"
	PriorityMedium   PriorityLevel = "Medium"
	PriorityHigh     PriorityLevel = "High"
	PriorityCritical PriorityLevel = "Critical"
)

// ReasoningSteps holds the ordered chain-of-thought stages. Each stage is
// optional free text; a missing stage stays empty.
type ReasoningSteps struct {
	ProblemUnderstanding string `json:"problem_understanding,omitempty"`
	DataAnalysis         string `json:"data_analysis,omitempty"`
	KeyInsights          string `json:"key_insights,omitempty"`
	ActionPlanning       string `json:"action_planning,omitempty"`
}

type SanitizationEntry struct {
	Original  string `json:"original"`
	Sanitized string `json:"sanitized"`
	Type      string `json:"type"`
}

type CaseAnalysisResult struct {
	CaseID                  string              `json:"case_id"`
	ReasoningSteps          ReasoningSteps      `json:"reasoning_steps"`
	RawSummary              string              `json:"raw_summary"`
	SanitizedSummary        string              `json:"sanitized_summary"`
	SanitizationLog         []SanitizationEntry `json:"sanitization_log,omitempty"`
	NextActions             []string            `json:"next_actions"`
	PriorityLevel           PriorityLevel       `json:"priority_level"`
	EstimatedResolutionTime string              `json:"estimated_resolution_time,omitempty"`
	RequiredTeams           []string            `json:"required_teams"`
	ConfidenceScore         float64             `json:"confidence_score"`
	AccuracyPercentage      float64             `json:"accuracy_percentage"`
}

type ClosedCaseResult struct {
	CaseNumber string     `json:"case_number"`
	Status     string     `json:"status"`
	ClosedDate *time.Time `json:"closed_date,omitempty"`
	Message    string     `json:"message"`
}

const (
	OutcomeAnalyzed = "analyzed"
	OutcomeClosed   = "closed"
)

// AnalysisOutcome is the tagged union returned by case analysis. Exactly one
// of Analysis or Closed is set, discriminated by Kind. Callers must switch
// on Kind, never on field presence.
type AnalysisOutcome struct {
	Kind     string              `json:"kind"`
	Analysis *CaseAnalysisResult `json:"analysis,omitempty"`
	Closed   *ClosedCaseResult   `json:"closed,omitempty"`
}

type SummaryFormat string

const (
	FormatPointers SummaryFormat = "pointers"
	FormatTables   SummaryFormat = "tables"
	FormatCharts   SummaryFormat = "charts"
)

type TableData struct {
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
}

// InsightSection content is shaped by Format: pointers carry Pointers,
// tables carry Tables. Charts are rendered separately as ChartData.
type InsightSection struct {
	Title    string               `json:"title"`
	Format   SummaryFormat        `json:"format"`
	Pointers []string             `json:"pointers,omitempty"`
	Tables   map[string]TableData `json:"tables,omitempty"`
}

type ChartDataset struct {
	Label           string    `json:"label,omitempty"`
	Data            []float64 `json:"data"`
	BackgroundColor []string  `json:"backgroundColor,omitempty"`
	BorderColor     string    `json:"borderColor,omitempty"`
	Fill            bool      `json:"fill,omitempty"`
}

type ChartData struct {
	Title     string         `json:"title"`
	ChartType string         `json:"chart_type"`
	Labels    []string       `json:"labels"`
	Datasets  []ChartDataset `json:"datasets"`
}

type ProcessingInfo struct {
	BatchSize        int `json:"batch_size"`
	BatchesProcessed int `json:"batches_processed"`
	TaskCount        int `json:"task_count"`
	EventCount       int `json:"event_count"`
	CaseCount        int `json:"case_count"`
}

type AccountInsightsResult struct {
	AccountID        string           `json:"account_id"`
	AccountName      string           `json:"account_name"`
	DateRange        DateRange        `json:"date_range"`
	TotalActivities  int              `json:"total_activities"`
	ProcessingInfo   ProcessingInfo   `json:"processing_info"`
	Sections         []InsightSection `json:"sections"`
	Charts           []ChartData      `json:"charts,omitempty"`
	ExecutiveSummary string           `json:"executive_summary"`
	GeneratedAt      time.Time        `json:"generated_at"`
}

type CaseQueryResult struct {
	CaseID     string   `json:"case_id"`
	Answer     string   `json:"answer"`
	Sources    []string `json:"sources"`
	Confidence float64  `json:"confidence"`
}

type AccountSearchResult struct {
	Found   bool     `json:"found"`
	Account *Account `json:"account,omitempty"`
	Message string   `json:"message,omitempty"`
}
