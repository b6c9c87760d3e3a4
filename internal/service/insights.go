package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/customer360-copilot/backend/internal/crm"
	"github.com/customer360-copilot/backend/internal/llm"
	"github.com/customer360-copilot/backend/internal/models"
	"github.com/customer360-copilot/backend/internal/prompts"
)

// InsightsService aggregates an account's activity history into an executive
// report. Large histories are summarized in bounded parallel batches before a
// final consolidation pass.
type InsightsService struct {
	Fetcher     crm.Fetcher
	Gateway     CompletionGateway
	Logger      zerolog.Logger
	BatchSize   int
	Parallelism int

	MaxTokens  int
	LLMTimeout time.Duration
}

type batchSummaryOutput struct {
	BatchSummary string   `json:"batch_summary"`
	KeyPoints    []string `json:"key_points"`
}

type finalInsightsOutput struct {
	ExecutiveSummary string   `json:"executive_summary"`
	KeyInsights      []string `json:"key_insights"`
	ActivityByMonth  struct {
		Labels []string  `json:"labels"`
		Values []float64 `json:"values"`
	} `json:"activity_by_month"`
	StatusDistribution struct {
		Labels []string  `json:"labels"`
		Values []float64 `json:"values"`
	} `json:"status_distribution"`
}

type indexedSummary struct {
	index   int
	summary batchSummaryOutput
}

// GenerateInsights builds the activity report for the account identified by
// name or CRM id, over dr, in the requested formats.
func (s *InsightsService) GenerateInsights(ctx context.Context, accountIdentifier string, dr models.DateRange, formats []models.SummaryFormat) (*models.AccountInsightsResult, error) {
	if strings.TrimSpace(accountIdentifier) == "" {
		return nil, &models.ValidationError{Field: "account_identifier", Message: "required"}
	}
	if dr.Start.After(dr.End) {
		return nil, &models.ValidationError{Field: "date_range", Message: "start must not be after end"}
	}
	if len(formats) == 0 {
		return nil, &models.ValidationError{Field: "formats", Message: "at least one of pointers, tables, charts"}
	}
	for _, f := range formats {
		switch f {
		case models.FormatPointers, models.FormatTables, models.FormatCharts:
		default:
			return nil, &models.ValidationError{Field: "formats", Message: fmt.Sprintf("unknown format %q", f)}
		}
	}

	search, err := s.Fetcher.SearchAccount(ctx, accountIdentifier)
	if err != nil {
		return nil, err
	}
	if !search.Found || search.Account == nil {
		return nil, &models.NotFoundError{Resource: "account", ID: accountIdentifier}
	}
	account := *search.Account

	activities, err := s.Fetcher.FetchAccountActivities(ctx, account.ID, dr)
	if err != nil {
		return nil, err
	}

	taskCount, eventCount, caseCount := countByType(activities)
	result := &models.AccountInsightsResult{
		AccountID:       account.ID,
		AccountName:     account.Name,
		DateRange:       dr,
		TotalActivities: len(activities),
		ProcessingInfo: models.ProcessingInfo{
			BatchSize:  s.batchSize(),
			TaskCount:  taskCount,
			EventCount: eventCount,
			CaseCount:  caseCount,
		},
		GeneratedAt: time.Now().UTC(),
	}

	if len(activities) == 0 {
		result.ExecutiveSummary = fmt.Sprintf("No activity was recorded for %s between %s and %s.",
			account.Name, dr.Start.Format("2006-01-02"), dr.End.Format("2006-01-02"))
		sections, charts, err := RenderInsights(RenderInput{StatusCounts: map[string]int{}}, formats)
		if err != nil {
			return nil, err
		}
		result.Sections = sections
		result.Charts = charts
		return result, nil
	}

	batches := partition(activities, s.batchSize())
	result.ProcessingInfo.BatchesProcessed = len(batches)

	summaries, err := s.summarizeBatches(ctx, account, dr, batches)
	if err != nil {
		return nil, err
	}

	var final finalInsightsOutput
	err = s.Gateway.CompleteJSON(ctx, llm.Request{
		Prompt: prompts.BuildFinalInsightsPrompt(account.Name, account.ID, dr,
			taskCount, eventCount, caseCount, mergeSummaries(summaries), formats),
		SchemaHint: llm.SchemaFinalInsights,
		MaxTokens:  s.MaxTokens,
		Timeout:    s.LLMTimeout,
	}, &final)
	if err != nil {
		return nil, err
	}
	if final.ExecutiveSummary == "" {
		final.ExecutiveSummary = fmt.Sprintf("%d activities were recorded for %s in the selected period.",
			len(activities), account.Name)
	}

	monthLabels, monthValues := final.ActivityByMonth.Labels, final.ActivityByMonth.Values
	if len(monthLabels) == 0 || len(monthLabels) != len(monthValues) {
		// Fall back to counting locally when the model's series is unusable.
		monthLabels, monthValues = monthlyCounts(activities)
	}
	statusCounts := statusCountsFromModel(final.StatusDistribution.Labels, final.StatusDistribution.Values)
	if len(statusCounts) == 0 {
		statusCounts = statusCountsFromActivities(activities)
	}

	sections, charts, err := RenderInsights(RenderInput{
		KeyInsights:  final.KeyInsights,
		StatusCounts: statusCounts,
		MonthLabels:  monthLabels,
		MonthValues:  monthValues,
		TaskCount:    taskCount,
		EventCount:   eventCount,
		CaseCount:    caseCount,
	}, formats)
	if err != nil {
		return nil, err
	}
	result.ExecutiveSummary = final.ExecutiveSummary
	result.Sections = sections
	result.Charts = charts
	return result, nil
}

// summarizeBatches fans the batches out with bounded parallelism and returns
// their summaries in batch order. Retry budgets are per batch; one batch
// exhausting its retries fails the whole request.
func (s *InsightsService) summarizeBatches(ctx context.Context, account models.Account, dr models.DateRange, batches [][]models.ActivityRecord) ([]batchSummaryOutput, error) {
	results := make(chan indexedSummary, len(batches))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.parallelism())
	for i, batch := range batches {
		i, batch := i, batch
		g.Go(func() error {
			var out batchSummaryOutput
			err := s.Gateway.CompleteJSON(gctx, llm.Request{
				Prompt:     prompts.BuildBatchSummaryPrompt(account.Name, account.ID, i+1, len(batches), dr, batch),
				SchemaHint: llm.SchemaBatchSummary,
				MaxTokens:  s.MaxTokens,
				Timeout:    s.LLMTimeout,
			}, &out)
			if err != nil {
				return fmt.Errorf("batch %d/%d: %w", i+1, len(batches), err)
			}
			results <- indexedSummary{index: i, summary: out}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	close(results)

	ordered := make([]batchSummaryOutput, len(batches))
	for r := range results {
		ordered[r.index] = r.summary
	}
	return ordered, nil
}

// mergeSummaries joins batch summaries in batch order, deduplicating repeated
// key points across batches.
func mergeSummaries(summaries []batchSummaryOutput) string {
	var b strings.Builder
	seen := make(map[string]struct{})
	for i, s := range summaries {
		fmt.Fprintf(&b, "Batch %d: %s\n", i+1, s.BatchSummary)
		for _, point := range s.KeyPoints {
			key := strings.ToLower(strings.TrimSpace(point))
			if _, dup := seen[key]; dup || key == "" {
				continue
			}
			seen[key] = struct{}{}
			fmt.Fprintf(&b, "  - %s\n", point)
		}
	}
	return b.String()
}

func (s *InsightsService) batchSize() int {
	if s.BatchSize > 0 {
		return s.BatchSize
	}
	return 50
}

func (s *InsightsService) parallelism() int {
	if s.Parallelism > 0 {
		return s.Parallelism
	}
	return 1
}

func partition(activities []models.ActivityRecord, size int) [][]models.ActivityRecord {
	var batches [][]models.ActivityRecord
	for start := 0; start < len(activities); start += size {
		end := start + size
		if end > len(activities) {
			end = len(activities)
		}
		batches = append(batches, activities[start:end])
	}
	return batches
}

func countByType(activities []models.ActivityRecord) (tasks, events, cases int) {
	for _, a := range activities {
		switch a.Type {
		case models.ActivityTask:
			tasks++
		case models.ActivityEvent:
			events++
		case models.ActivityCase:
			cases++
		}
	}
	return tasks, events, cases
}

func monthlyCounts(activities []models.ActivityRecord) ([]string, []float64) {
	counts := make(map[string]int)
	for _, a := range activities {
		// Dates arrive as ISO strings; the month is the YYYY-MM prefix.
		if len(a.ActivityDate) < 7 {
			continue
		}
		counts[a.ActivityDate[:7]]++
	}
	labels := make([]string, 0, len(counts))
	for label := range counts {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	values := make([]float64, len(labels))
	for i, label := range labels {
		values[i] = float64(counts[label])
	}
	return labels, values
}

func statusCountsFromModel(labels []string, values []float64) map[string]int {
	if len(labels) == 0 || len(labels) != len(values) {
		return nil
	}
	counts := make(map[string]int, len(labels))
	for i, label := range labels {
		counts[label] = int(values[i])
	}
	return counts
}

func statusCountsFromActivities(activities []models.ActivityRecord) map[string]int {
	counts := make(map[string]int)
	for _, a := range activities {
		status := a.Status
		if status == "" {
			status = "Unknown"
		}
		counts[status]++
	}
	return counts
}
