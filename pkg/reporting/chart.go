package reporting

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/menta2k/pond-analyzer/pkg/types"
)

// RenderAnalyticsChart writes an HTML page with the daily feed, growth and
// water quality series of h
func RenderAnalyticsChart(w io.Writer, h *types.HistoricalAnalytics) error {
	if h == nil || len(h.DailyData) == 0 {
		return fmt.Errorf("no daily data to chart")
	}

	dates := make([]string, len(h.DailyData))
	feed := make([]opts.LineData, len(h.DailyData))
	growth := make([]opts.LineData, len(h.DailyData))
	water := make([]opts.LineData, len(h.DailyData))
	cost := make([]opts.BarData, len(h.DailyData))
	for i, d := range h.DailyData {
		dates[i] = d.Date
		feed[i] = opts.LineData{Value: d.FeedAmount}
		growth[i] = opts.LineData{Value: d.GrowthRate}
		water[i] = opts.LineData{Value: d.WaterQuality}
		cost[i] = opts.BarData{Value: d.Cost}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "480px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Farm " + h.FarmID,
			Subtitle: fmt.Sprintf("%s to %s", h.PeriodStart.Format("2006-01-02"), h.PeriodEnd.Format("2006-01-02")),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
	)
	line.SetXAxis(dates).
		AddSeries("feed (kg)", feed).
		AddSeries("growth rate", growth).
		AddSeries("water quality", water).
		SetSeriesOptions(charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true)}))

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "360px"}),
		charts.WithTitleOpts(opts.Title{Title: "Daily feed cost", Subtitle: fmt.Sprintf("total %.2f", h.FeedCostTotal)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(dates).AddSeries("cost", cost)

	page := components.NewPage()
	page.AddCharts(line, bar)
	return page.Render(w)
}
