package monitor

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/barpath/internal/vision"
	"github.com/banshee-data/barpath/internal/vision/pipeline"
)

func sampleRun() *pipeline.Analysis {
	a := &pipeline.Analysis{
		RunID:  "3f2a9c1e-0000-4000-8000-000000000000",
		Engine: "native",
		Width:  320, Height: 240, TotalFrames: 10,
	}
	for i := 0; i < 10; i++ {
		ts := float64(i) * 66.7
		a.Frames = append(a.Frames, pipeline.FrameResult{Frame: i, TimestampMs: ts, Points: 4})
		for c := 0; c < 4; c++ {
			a.Raw = append(a.Raw, vision.TrackedPoint{
				X: 140 + float64(c%2)*40, Y: 160 - 3*float64(i) + float64(c/2)*40,
				Frame: i, TimestampMs: ts,
			})
		}
		a.Path = append(a.Path, vision.PathPoint{X: 160, Y: 180 - 3*float64(i), Frame: i, TimestampMs: ts})
	}
	return a
}

func TestPlotPath(t *testing.T) {
	file := filepath.Join(t.TempDir(), "path.png")
	require.NoError(t, PlotPath(sampleRun(), file))

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	require.Greater(t, len(data), 8)
	assert.Equal(t, "\x89PNG", string(data[:4]))
}

func TestPlotPath_Errors(t *testing.T) {
	dir := t.TempDir()
	assert.ErrorIs(t, PlotPath(&pipeline.Analysis{}, filepath.Join(dir, "empty.png")), ErrEmptyRun)
	assert.Error(t, PlotPath(sampleRun(), filepath.Join(dir, "noext")))
}

func TestRenderChart(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderChart(&buf, sampleRun()))

	html := buf.String()
	assert.Contains(t, html, "<html")
	assert.Contains(t, html, "Bar height")
	assert.Contains(t, html, "bar path")
	assert.Contains(t, html, "Tracked points")
}

func TestRenderChart_Empty(t *testing.T) {
	var buf bytes.Buffer
	assert.ErrorIs(t, RenderChart(&buf, &pipeline.Analysis{}), ErrEmptyRun)
	assert.Zero(t, buf.Len())
}

func TestShortID(t *testing.T) {
	assert.Equal(t, "3f2a9c1e", shortID("3f2a9c1e-0000-4000-8000-000000000000"))
	assert.Equal(t, "plain", shortID("plain"))
	assert.Equal(t, "", shortID(""))
}
