package report

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// EChartsAssetsHost serves the echarts JavaScript. Deployments without
// internet access can point it at a local copy.
var EChartsAssetsHost = "https://go-echarts.github.io/go-echarts-assets/assets/"

// RenderChart writes an HTML page with a line chart of the per-bin mean speed
// and its standard deviation, and a bar chart of valid samples per bin. Bins
// without samples are drawn as gaps in the line chart.
func RenderChart(w io.Writer, s *Summary, title string) error {
	x := make([]string, 0, len(s.Bins))
	mean := make([]opts.LineData, 0, len(s.Bins))
	std := make([]opts.LineData, 0, len(s.Bins))
	samples := make([]opts.BarData, 0, len(s.Bins))
	for _, b := range s.Bins {
		x = append(x, fmt.Sprintf("%.2f", b.Range))
		samples = append(samples, opts.BarData{Value: b.Samples})
		if b.Samples == 0 {
			mean = append(mean, opts.LineData{Value: "-"})
			std = append(std, opts.LineData{Value: "-"})
			continue
		}
		mean = append(mean, opts.LineData{Value: b.MeanSpeed})
		std = append(std, opts.LineData{Value: b.StdDevSpeed})
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Width: "100%", Height: "640px", AssetsHost: EChartsAssetsHost}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: fmt.Sprintf("ensembles=%d units=%s", s.Ensembles, s.UnitLabel)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Range (m)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: fmt.Sprintf("Speed (%s)", s.UnitLabel)}),
	)
	line.SetXAxis(x).
		AddSeries("mean speed", mean).
		AddSeries("speed stddev", std)

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "320px", AssetsHost: EChartsAssetsHost}),
		charts.WithTitleOpts(opts.Title{Title: "Valid samples per bin"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Range (m)", NameLocation: "middle", NameGap: 25}),
	)
	bar.SetXAxis(x).AddSeries("samples", samples)

	page := components.NewPage()
	page.PageTitle = title
	page.SetAssetsHost(EChartsAssetsHost)
	page.AddCharts(line, bar)
	return page.Render(w)
}
