package replay

import (
	"fmt"
	"io"
	"sort"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/dartsense/dartsense/internal/fsutil"
)

// filesystem is swapped for an in-memory implementation in tests.
var filesystem fsutil.FileSystem = fsutil.OSFileSystem{}

// viridis palette shared by the scatter visual maps.
var viridisColors = []string{
	"#440154", "#482777", "#3e4989", "#31688e", "#26828e",
	"#1f9e89", "#35b779", "#6ece58", "#b5de2b", "#fde725",
}

// WriteReport renders an HTML report for one replay run: the fused board
// positions coloured by confidence, the method distribution, and the
// confidence histogram.
func WriteReport(w io.Writer, comps []Comparison, stats RunStatistics) error {
	page := components.NewPage()
	page.PageTitle = "Replay Report"
	page.AddCharts(
		boardScatterChart(comps),
		methodBarChart(stats),
		confidenceHistChart(stats),
	)
	if err := page.Render(w); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	return nil
}

// SaveReport writes the HTML report to a file.
func SaveReport(path string, comps []Comparison, stats RunStatistics) error {
	f, err := filesystem.Create(path)
	if err != nil {
		return fmt.Errorf("create report file: %w", err)
	}
	defer f.Close()
	return WriteReport(f, comps, stats)
}

// boardScatterChart plots the replayed board positions in normalized board
// space, coloured by confidence. The axis range is fixed at the off-board
// cutoff so runs are visually comparable.
func boardScatterChart(comps []Comparison) *charts.Scatter {
	data := make([]opts.ScatterData, 0, len(comps))
	for i := range comps {
		res := comps[i].Replayed
		if res == nil {
			continue
		}
		data = append(data, opts.ScatterData{Value: []interface{}{res.X, res.Y, res.Confidence}})
	}

	const pad = 1.3
	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "700px", Height: "700px"}),
		charts.WithTitleOpts(opts.Title{Title: "Fused Positions", Subtitle: fmt.Sprintf("throws=%d", len(data))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: -pad, Max: pad, Name: "X", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: -pad, Max: pad, Name: "Y", NameLocation: "middle", NameGap: 30}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        0,
			Max:        1,
			Dimension:  "2",
			InRange:    &opts.VisualMapInRange{Color: viridisColors},
		}),
	)
	scatter.AddSeries("throws", data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 8}))
	return scatter
}

func methodBarChart(stats RunStatistics) *charts.Bar {
	methods := make([]string, 0, len(stats.MethodCounts))
	for m := range stats.MethodCounts {
		methods = append(methods, m)
	}
	sort.Strings(methods)

	y := make([]opts.BarData, 0, len(methods))
	for _, m := range methods {
		y = append(y, opts.BarData{Value: stats.MethodCounts[m]})
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "900px", Height: "400px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Method Distribution",
			Subtitle: fmt.Sprintf("score accuracy %.1f%%", stats.ScoreAccuracy()*100),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(methods).
		AddSeries("methods", y,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		)
	return bar
}

func confidenceHistChart(stats RunStatistics) *charts.Bar {
	x := make([]string, 0, len(stats.ConfidenceBuckets))
	y := make([]opts.BarData, 0, len(stats.ConfidenceBuckets))
	for i, n := range stats.ConfidenceBuckets {
		x = append(x, fmt.Sprintf("%.1f", float64(i)/10))
		y = append(y, opts.BarData{Value: n})
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "900px", Height: "400px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Confidence Histogram",
			Subtitle: fmt.Sprintf("mean %.3f", stats.MeanConfidence),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(x).AddSeries("confidence", y)
	return bar
}
