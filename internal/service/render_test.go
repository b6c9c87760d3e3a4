package service

import (
	"testing"

	"github.com/customer360-copilot/backend/internal/models"
)

func renderInput() RenderInput {
	return RenderInput{
		KeyInsights:  []string{"Renewal push", "Stable support load"},
		StatusCounts: map[string]int{"Completed": 8, "Open": 2},
		MonthLabels:  []string{"2025-01", "2025-02"},
		MonthValues:  []float64{4, 6},
		TaskCount:    5,
		EventCount:   3,
		CaseCount:    2,
	}
}

func TestRenderTablesShape(t *testing.T) {
	sections, _, err := RenderInsights(renderInput(), []models.SummaryFormat{models.FormatTables})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sections) != 1 || sections[0].Format != models.FormatTables {
		t.Fatalf("expected one tables section, got %+v", sections)
	}
	tables := sections[0].Tables
	for _, name := range []string{"by_type", "by_status", "by_month"} {
		table, ok := tables[name]
		if !ok {
			t.Fatalf("missing table %s", name)
		}
		for i, row := range table.Rows {
			if len(row) != len(table.Headers) {
				t.Fatalf("table %s row %d has %d cells for %d headers", name, i, len(row), len(table.Headers))
			}
		}
	}
}

func TestRenderChartsShape(t *testing.T) {
	_, charts, err := RenderInsights(renderInput(), []models.SummaryFormat{models.FormatCharts})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(charts) != 3 {
		t.Fatalf("expected 3 charts, got %d", len(charts))
	}
	types := map[string]bool{}
	for _, chart := range charts {
		types[chart.ChartType] = true
		for i, ds := range chart.Datasets {
			if len(ds.Data) != len(chart.Labels) {
				t.Fatalf("chart %q dataset %d has %d points for %d labels", chart.Title, i, len(ds.Data), len(chart.Labels))
			}
		}
		if chart.ChartType == "pie" && len(chart.Datasets) != 1 {
			t.Fatalf("pie chart must carry exactly one dataset, got %d", len(chart.Datasets))
		}
	}
	for _, want := range []string{"bar", "line", "pie"} {
		if !types[want] {
			t.Fatalf("missing %s chart", want)
		}
	}
}

func TestRenderPointersOnly(t *testing.T) {
	sections, charts, err := RenderInsights(renderInput(), []models.SummaryFormat{models.FormatPointers})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(charts) != 0 {
		t.Fatalf("pointers format must not produce charts")
	}
	if len(sections) != 1 || len(sections[0].Pointers) != 2 {
		t.Fatalf("expected one pointers section with 2 entries, got %+v", sections)
	}
}
