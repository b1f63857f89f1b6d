package pipeline

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/barpath/internal/vision"
	"github.com/banshee-data/barpath/internal/vision/engine"
	"github.com/banshee-data/barpath/internal/vision/synth"
)

const flakyEngine = "pipeline-test-flaky"

// flaky wraps the native engine and fails frame 3.
type flaky struct{ *engine.Native }

func (f flaky) Name() string { return flakyEngine }

func (f flaky) Track(prev, curr *vision.Frame, pts []vision.TrackedPoint, frame int, ts float64) ([]vision.TrackedPoint, error) {
	if frame == 3 {
		return nil, errors.New("synthetic failure")
	}
	return f.Native.Track(prev, curr, pts, frame, ts)
}

func init() {
	engine.Register(flakyEngine, func(cfg engine.Config) (engine.Engine, error) {
		n, err := engine.NewNative(cfg)
		if err != nil {
			return nil, err
		}
		return flaky{n}, nil
	})
}

func demoSource(t *testing.T, mutate func(*synth.Scene)) *synth.Source {
	t.Helper()
	scene := synth.DemoScene()
	if mutate != nil {
		mutate(&scene)
	}
	src, err := synth.NewSource(scene)
	require.NoError(t, err)
	return src
}

func TestAnalyse_MovingSquare(t *testing.T) {
	src := demoSource(t, nil)
	scene := src.Scene()

	a, err := Analyse(context.Background(), src, DefaultConfig())
	require.NoError(t, err)

	assert.NotEmpty(t, a.RunID)
	assert.Equal(t, engine.NativeName, a.Engine)
	assert.Equal(t, 320, a.Width)
	assert.Equal(t, 240, a.Height)
	assert.Equal(t, 30, a.TotalFrames)
	assert.Empty(t, a.FrameErrors)
	assert.Empty(t, a.Warnings)
	require.Len(t, a.Frames, 30)
	for i, fr := range a.Frames {
		assert.Equal(t, i, fr.Frame)
		assert.InDelta(t, float64(i)*1000/15, fr.TimestampMs, 1e-6)
	}

	require.Len(t, a.Path, 30)
	for i, p := range a.Path {
		cx, cy := scene.Centre(i)
		assert.Equal(t, i, p.Frame)
		assert.InDelta(t, cx, p.X, 15, "frame %d x", i)
		assert.InDelta(t, cy, p.Y, 15, "frame %d y", i)
	}
	rise := a.Path[0].Y - a.Path[len(a.Path)-1].Y
	assert.InDelta(t, 87, rise, 10)
}

func TestAnalyse_UnknownDurationFallsBack(t *testing.T) {
	src := demoSource(t, func(s *synth.Scene) { s.UnknownDuration = true })

	var warned []error
	cfg := DefaultConfig()
	cfg.Extract.OnWarning = func(w error) { warned = append(warned, w) }

	a, err := Analyse(context.Background(), src, cfg)
	require.NoError(t, err)
	assert.Equal(t, 30, a.TotalFrames)
	require.Len(t, a.Warnings, 1)
	require.Len(t, warned, 1)
	var dd *vision.DegenerateDurationWarning
	assert.ErrorAs(t, warned[0], &dd)
	assert.Len(t, a.Path, 30)
}

func TestAnalyse_FrameErrorsAreRecorded(t *testing.T) {
	src := demoSource(t, func(s *synth.Scene) { s.Frames = 8 })
	cfg := DefaultConfig()
	cfg.Engine = flakyEngine

	a, err := Analyse(context.Background(), src, cfg)
	require.NoError(t, err)
	assert.Equal(t, flakyEngine, a.Engine)
	require.Len(t, a.FrameErrors, 1)
	assert.Equal(t, 3, a.FrameErrors[0].Frame)
	assert.Equal(t, "synthetic failure", a.FrameErrors[0].Message)
	assert.Len(t, a.Frames, 7)
	assert.Len(t, a.Path, 7)
}

func TestAnalyse_Region(t *testing.T) {
	src := demoSource(t, nil)
	cfg := DefaultConfig()
	// Nothing to track in the top-left corner.
	cfg.Region = &vision.Rect{X: 0, Y: 0, Width: 40, Height: 40}
	cfg.Session.RegionPadding = 0

	_, err := Analyse(context.Background(), src, cfg)
	assert.ErrorIs(t, err, vision.ErrNoFeatures)
}

func TestAnalyse_FlatSourceHasNoFeatures(t *testing.T) {
	src := demoSource(t, func(s *synth.Scene) { s.Foreground = s.Background })

	_, err := Analyse(context.Background(), src, DefaultConfig())
	assert.ErrorIs(t, err, vision.ErrNoFeatures)
}

func TestAnalyse_Errors(t *testing.T) {
	t.Run("unknown engine", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Engine = "missing"
		_, err := Analyse(context.Background(), demoSource(t, nil), cfg)
		assert.ErrorIs(t, err, vision.ErrUnknownEngine)
	})
	t.Run("invalid settings", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Settings.MaxPoints = 0
		_, err := Analyse(context.Background(), demoSource(t, nil), cfg)
		assert.Error(t, err)
	})
	t.Run("empty region", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Region = &vision.Rect{Width: 0, Height: 10}
		_, err := Analyse(context.Background(), demoSource(t, nil), cfg)
		assert.Error(t, err)
	})
	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := Analyse(ctx, demoSource(t, nil), DefaultConfig())
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestConfigFromTuning(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, engine.NativeName, cfg.Engine)
	assert.Equal(t, 15.0, cfg.Extract.TargetFPS)
	assert.Equal(t, 720, cfg.Extract.MaxWidth)
	assert.Equal(t, 50, cfg.Settings.MaxPoints)
	assert.Nil(t, cfg.Session.Engine)
	assert.False(t, math.IsNaN(cfg.Path.ClusterDistance))
	assert.NoError(t, cfg.Validate())
}
