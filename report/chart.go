package report

import (
	"io"
	"sort"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// RuleChart builds a bar chart of rewrites per rule.
func RuleChart(title string, applied map[string]int) *charts.Bar {
	names := make([]string, 0, len(applied))
	for name := range applied {
		names = append(names, name)
	}
	sort.Strings(names)

	data := make([]opts.BarData, len(names))
	for i, name := range names {
		data[i] = opts.BarData{Name: name, Value: applied[name]}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    title,
			Subtitle: "rewrites per peephole rule",
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(names).AddSeries("applied", data)
	return bar
}

// RenderCharts writes the charts as one HTML page.
func RenderCharts(w io.Writer, cs ...components.Charter) error {
	page := components.NewPage()
	page.AddCharts(cs...)
	return page.Render(w)
}
