package service

import (
	"fmt"
	"sort"

	"github.com/customer360-copilot/backend/internal/models"
)

// RenderInput carries everything the renderer needs. All fields come from
// already-fetched data or decoded model output; rendering itself never calls
// out anywhere.
type RenderInput struct {
	KeyInsights  []string
	StatusCounts map[string]int
	MonthLabels  []string
	MonthValues  []float64
	TaskCount    int
	EventCount   int
	CaseCount    int
}

var chartPalette = []string{
	"rgba(54, 162, 235, 0.6)",
	"rgba(255, 99, 132, 0.6)",
	"rgba(255, 206, 86, 0.6)",
	"rgba(75, 192, 192, 0.6)",
	"rgba(153, 102, 255, 0.6)",
}

// RenderInsights builds the requested sections and charts. Every table and
// chart is shape-checked before being returned; a violation is an internal
// error, never silently truncated output.
func RenderInsights(in RenderInput, formats []models.SummaryFormat) ([]models.InsightSection, []models.ChartData, error) {
	var sections []models.InsightSection
	var charts []models.ChartData

	for _, format := range formats {
		switch format {
		case models.FormatPointers:
			sections = append(sections, models.InsightSection{
				Title:    "Key Insights",
				Format:   models.FormatPointers,
				Pointers: in.KeyInsights,
			})

		case models.FormatTables:
			tables := map[string]models.TableData{
				"by_type":   typeTable(in),
				"by_status": statusTable(in.StatusCounts),
				"by_month":  monthTable(in.MonthLabels, in.MonthValues),
			}
			for name, table := range tables {
				if err := validateTable(table); err != nil {
					return nil, nil, fmt.Errorf("table %s: %w", name, err)
				}
			}
			sections = append(sections, models.InsightSection{
				Title:  "Activity Breakdown",
				Format: models.FormatTables,
				Tables: tables,
			})

		case models.FormatCharts:
			built := []models.ChartData{
				typeChart(in),
				monthChart(in.MonthLabels, in.MonthValues),
				statusChart(in.StatusCounts),
			}
			for _, chart := range built {
				if err := validateChart(chart); err != nil {
					return nil, nil, fmt.Errorf("chart %q: %w", chart.Title, err)
				}
			}
			charts = append(charts, built...)
		}
	}
	return sections, charts, nil
}

func typeTable(in RenderInput) models.TableData {
	return models.TableData{
		Headers: []string{"Activity Type", "Count"},
		Rows: [][]string{
			{"Tasks", fmt.Sprintf("%d", in.TaskCount)},
			{"Events", fmt.Sprintf("%d", in.EventCount)},
			{"Cases", fmt.Sprintf("%d", in.CaseCount)},
		},
	}
}

func statusTable(counts map[string]int) models.TableData {
	labels, values := sortedStatuses(counts)
	rows := make([][]string, 0, len(labels))
	for i, label := range labels {
		rows = append(rows, []string{label, fmt.Sprintf("%d", int(values[i]))})
	}
	return models.TableData{Headers: []string{"Status", "Count"}, Rows: rows}
}

func monthTable(labels []string, values []float64) models.TableData {
	rows := make([][]string, 0, len(labels))
	for i, label := range labels {
		value := 0.0
		if i < len(values) {
			value = values[i]
		}
		rows = append(rows, []string{label, fmt.Sprintf("%d", int(value))})
	}
	return models.TableData{Headers: []string{"Month", "Activities"}, Rows: rows}
}

func typeChart(in RenderInput) models.ChartData {
	return models.ChartData{
		Title:     "Activities by Type",
		ChartType: "bar",
		Labels:    []string{"Tasks", "Events", "Cases"},
		Datasets: []models.ChartDataset{{
			Label:           "Activity Count",
			Data:            []float64{float64(in.TaskCount), float64(in.EventCount), float64(in.CaseCount)},
			BackgroundColor: chartPalette[:3],
		}},
	}
}

func monthChart(labels []string, values []float64) models.ChartData {
	data := make([]float64, len(labels))
	copy(data, values)
	return models.ChartData{
		Title:     "Activity Trend",
		ChartType: "line",
		Labels:    labels,
		Datasets: []models.ChartDataset{{
			Label:       "Activities per Month",
			Data:        data,
			BorderColor: "rgba(54, 162, 235, 1)",
			Fill:        false,
		}},
	}
}

func statusChart(counts map[string]int) models.ChartData {
	labels, values := sortedStatuses(counts)
	colors := make([]string, len(labels))
	for i := range colors {
		colors[i] = chartPalette[i%len(chartPalette)]
	}
	return models.ChartData{
		Title:     "Status Distribution",
		ChartType: "pie",
		Labels:    labels,
		Datasets: []models.ChartDataset{{
			Data:            values,
			BackgroundColor: colors,
		}},
	}
}

func sortedStatuses(counts map[string]int) ([]string, []float64) {
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

func validateTable(t models.TableData) error {
	for i, row := range t.Rows {
		if len(row) != len(t.Headers) {
			return fmt.Errorf("row %d has %d cells, want %d", i, len(row), len(t.Headers))
		}
	}
	return nil
}

func validateChart(c models.ChartData) error {
	if c.ChartType == "pie" && len(c.Datasets) != 1 {
		return fmt.Errorf("pie chart has %d datasets, want 1", len(c.Datasets))
	}
	for i, ds := range c.Datasets {
		if len(ds.Data) != len(c.Labels) {
			return fmt.Errorf("dataset %d has %d points for %d labels", i, len(ds.Data), len(c.Labels))
		}
	}
	return nil
}
