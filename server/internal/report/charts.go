package report

import (
	"encoding/json"
	"fmt"

	"shelfsight/server/internal/journey"
	"shelfsight/server/internal/models"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// ChartOptions carries ECharts option objects ready for the front end.
type ChartOptions struct {
	Interactions json.RawMessage `json:"interactions"`
	Funnel       json.RawMessage `json:"funnel"`
}

// InteractionChart is a bar chart of the layout recommendation.
func InteractionChart(rows []LayoutRow) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    "Shelf Interactions",
			Subtitle: "Detections per shelf, busiest first",
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value", Name: "interaksi"}),
	)

	labels := make([]string, 0, len(rows))
	items := make([]opts.BarData, 0, len(rows))
	for _, r := range rows {
		label := r.ShelfID
		if r.Label != "" {
			label = r.Label
		}
		labels = append(labels, label)
		items = append(items, opts.BarData{Name: r.ShelfID, Value: r.Interaksi})
	}

	bar.SetXAxis(labels).AddSeries("interaksi", items)
	return bar
}

// FunnelChart stacks the three funnel percentages of every shelf.
func FunnelChart(shelves []journey.ShelfSummary, layout *models.StoreLayout) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    "Shopper Journey Funnel",
			Subtitle: "Share of person-shelf interactions per outcome",
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value", Max: 100, Name: "%"}),
	)

	labels := make([]string, 0, len(shelves))
	series := map[models.Outcome][]opts.BarData{}
	for _, s := range shelves {
		labels = append(labels, layout.Label(s.ShelfID))
		series[models.OutcomeConversion] = append(series[models.OutcomeConversion], opts.BarData{Value: s.Conversion})
		series[models.OutcomeHesitation] = append(series[models.OutcomeHesitation], opts.BarData{Value: s.Hesitation})
		series[models.OutcomeDisengaged] = append(series[models.OutcomeDisengaged], opts.BarData{Value: s.Disengaged})
	}

	bar.SetXAxis(labels)
	for _, outcome := range models.FunnelOutcomes {
		bar.AddSeries(string(outcome), series[outcome])
	}
	bar.SetSeriesOptions(charts.WithBarChartOpts(opts.BarChart{Stack: "funnel"}))
	return bar
}

// BuildChartOptions renders both charts to their option JSON.
func BuildChartOptions(rows []LayoutRow, shelves []journey.ShelfSummary, layout *models.StoreLayout) (ChartOptions, error) {
	interactions, err := json.Marshal(InteractionChart(rows).JSON())
	if err != nil {
		return ChartOptions{}, fmt.Errorf("render interaction chart: %w", err)
	}
	funnel, err := json.Marshal(FunnelChart(shelves, layout).JSON())
	if err != nil {
		return ChartOptions{}, fmt.Errorf("render funnel chart: %w", err)
	}
	return ChartOptions{Interactions: interactions, Funnel: funnel}, nil
}
