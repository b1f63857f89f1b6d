package monitor

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/barpath/internal/vision/pipeline"
)

// RenderChart writes an HTML page with three charts: bar height over
// time, the path over the frame, and tracked points per frame.
func RenderChart(w io.Writer, a *pipeline.Analysis) error {
	if len(a.Path) == 0 {
		return ErrEmptyRun
	}

	page := components.NewPage()
	page.PageTitle = "Bar path " + shortID(a.RunID)
	page.AddCharts(heightChart(a), pathChart(a), pointsChart(a))
	if err := page.Render(w); err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	return nil
}

// heightChart plots bar height above its lowest position against time.
func heightChart(a *pipeline.Analysis) *charts.Line {
	lowest := a.Path[0].Y
	for _, p := range a.Path {
		lowest = max(lowest, p.Y)
	}
	xs := make([]string, len(a.Path))
	height := make([]opts.LineData, len(a.Path))
	for i, p := range a.Path {
		xs[i] = fmt.Sprintf("%.0f", p.TimestampMs)
		height[i] = opts.LineData{Value: lowest - p.Y}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "900px", Height: "400px"}),
		charts.WithTitleOpts(opts.Title{Title: "Bar height", Subtitle: fmt.Sprintf("run=%s engine=%s", a.RunID, a.Engine)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "t (ms)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "height (px)", NameLocation: "middle", NameGap: 35}),
	)
	line.SetXAxis(xs).AddSeries("height", height,
		charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true)}))
	return line
}

// pathChart scatters raw points and the path in frame coordinates, with
// y flipped so the plot reads like the image.
func pathChart(a *pipeline.Analysis) *charts.Scatter {
	raw := make([]opts.ScatterData, 0, len(a.Raw))
	for _, p := range a.Raw {
		raw = append(raw, opts.ScatterData{Value: []interface{}{p.X, -p.Y, p.Frame}})
	}
	path := make([]opts.ScatterData, 0, len(a.Path))
	for _, p := range a.Path {
		path = append(path, opts.ScatterData{Value: []interface{}{p.X, -p.Y, p.Frame}})
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "900px", Height: "700px"}),
		charts.WithTitleOpts(opts.Title{Title: "Bar path", Subtitle: fmt.Sprintf("%dx%d, %d tracked points", a.Width, a.Height, len(a.Raw))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: 0, Max: a.Width, Name: "X (px)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: -a.Height, Max: 0, Name: "-Y (px)", NameLocation: "middle", NameGap: 35}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
	)
	scatter.AddSeries("tracked points", raw, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 3}))
	scatter.AddSeries("bar path", path, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 8}))
	return scatter
}

// pointsChart shows how many points survived in each frame.
func pointsChart(a *pipeline.Analysis) *charts.Bar {
	xs := make([]int, len(a.Frames))
	counts := make([]opts.BarData, len(a.Frames))
	for i, f := range a.Frames {
		xs[i] = f.Frame
		counts[i] = opts.BarData{Value: f.Points}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "900px", Height: "300px"}),
		charts.WithTitleOpts(opts.Title{Title: "Tracked points", Subtitle: fmt.Sprintf("%d frame errors", len(a.FrameErrors))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(xs).AddSeries("points", counts)
	return bar
}
