// Package monitor renders analysis runs for humans: a PNG plot of the
// bar path over the frame and an HTML chart page of the run.
package monitor

import (
	"errors"
	"fmt"
	"image/color"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/barpath/internal/vision/pipeline"
)

// ErrEmptyRun is returned when a run has no path to draw.
var ErrEmptyRun = errors.New("run has no path points")

var (
	rawColour  = color.RGBA{R: 160, G: 160, B: 160, A: 255}
	pathColour = color.RGBA{R: 220, G: 50, B: 47, A: 255}
)

// PlotPath saves the raw tracked points and the reconstructed path of a
// run in frame coordinates. The y axis points down as in the image. The
// format follows the file extension (png, svg, pdf, ...).
func PlotPath(a *pipeline.Analysis, file string) error {
	if len(a.Path) == 0 {
		return ErrEmptyRun
	}
	if filepath.Ext(file) == "" {
		return fmt.Errorf("plot file %q has no extension", file)
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Bar path (%s, %d frames)", shortID(a.RunID), len(a.Path))
	p.X.Label.Text = "X (px)"
	p.Y.Label.Text = "Y (px)"
	p.Y.Scale = plot.InvertedScale{Normalizer: plot.LinearScale{}}
	if a.Width > 0 && a.Height > 0 {
		p.X.Min, p.X.Max = 0, float64(a.Width)
		p.Y.Min, p.Y.Max = 0, float64(a.Height)
	}
	p.Add(plotter.NewGrid())

	if len(a.Raw) > 0 {
		rawPts := make(plotter.XYs, len(a.Raw))
		for i, pt := range a.Raw {
			rawPts[i] = plotter.XY{X: pt.X, Y: pt.Y}
		}
		raw, err := plotter.NewScatter(rawPts)
		if err != nil {
			return fmt.Errorf("raw scatter: %w", err)
		}
		raw.Color = rawColour
		raw.Radius = vg.Points(1)
		p.Add(raw)
		p.Legend.Add("tracked points", raw)
	}

	pathPts := make(plotter.XYs, len(a.Path))
	for i, pt := range a.Path {
		pathPts[i] = plotter.XY{X: pt.X, Y: pt.Y}
	}
	line, points, err := plotter.NewLinePoints(pathPts)
	if err != nil {
		return fmt.Errorf("path line: %w", err)
	}
	line.Color = pathColour
	line.Width = vg.Points(1.5)
	points.Color = pathColour
	points.Radius = vg.Points(2)
	p.Add(line, points)
	p.Legend.Add("bar path", line, points)
	p.Legend.Top = true

	if err := p.Save(6*vg.Inch, 6*vg.Inch, file); err != nil {
		return fmt.Errorf("save plot %s: %w", file, err)
	}
	return nil
}

func shortID(id string) string {
	if i := strings.IndexByte(id, '-'); i > 0 {
		return id[:i]
	}
	return id
}
