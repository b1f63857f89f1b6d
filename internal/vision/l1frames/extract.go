package l1frames

import (
	"context"
	"fmt"
	"image"
	"math"
	"time"

	"github.com/banshee-data/barpath/internal/config"
	"github.com/banshee-data/barpath/internal/vision"
)

// Source is a seekable video-like input.
type Source interface {
	Width() int
	Height() int
	// Duration in seconds. May be NaN, infinite, zero or negative when
	// the container has not been finalised.
	Duration() float64
	// Position is the current playback position in seconds. After Image
	// it is the position of the returned frame, which may differ from the
	// last Seek target.
	Position() float64
	// Seek moves to seconds and returns once the source has settled there.
	Seek(ctx context.Context, seconds float64) error
	// Image returns the raster content at the current position.
	Image() (image.Image, error)
}

// FrameFunc receives each extracted frame. Returning an error stops
// extraction and Extract returns that error.
type FrameFunc func(f *vision.Frame, timestampMs float64, frameIndex, totalFrames int) error

// Options controls extraction.
type Options struct {
	TargetFPS      float64
	MaxWidth       int
	MaxHeight      int
	FallbackFrames int           // frame count used when the duration is unusable
	FallbackStep   time.Duration // position increment used when the duration is unusable
	KeepColor      bool          // retain an RGBA copy in Frame.Color

	// OnWarning receives non-fatal conditions such as
	// *vision.DegenerateDurationWarning.
	OnWarning func(error)
}

// DefaultOptions returns Options loaded from the canonical tuning defaults
// file (config/tuning.defaults.json).
// Panics if the file cannot be found; intended for tests.
func DefaultOptions() Options {
	return OptionsFromTuning(config.MustLoadDefaultConfig())
}

// OptionsFromTuning builds Options from a loaded TuningConfig.
func OptionsFromTuning(cfg *config.TuningConfig) Options {
	return Options{
		TargetFPS:      cfg.GetTargetFPS(),
		MaxWidth:       cfg.GetMaxWidth(),
		MaxHeight:      cfg.GetMaxHeight(),
		FallbackFrames: cfg.GetFallbackFrames(),
		FallbackStep:   cfg.GetFallbackStep(),
	}
}

func (o Options) validate() error {
	if !(o.TargetFPS > 0) || math.IsInf(o.TargetFPS, 0) {
		return fmt.Errorf("target fps must be positive, got %v", o.TargetFPS)
	}
	if o.FallbackFrames < 1 {
		return fmt.Errorf("fallback frames must be >= 1, got %d", o.FallbackFrames)
	}
	if o.FallbackStep <= 0 {
		return fmt.Errorf("fallback step must be positive, got %v", o.FallbackStep)
	}
	return nil
}

// TotalFrames returns the number of frames extraction will request for a
// source of the given duration, and whether the duration was usable.
func TotalFrames(duration float64, o Options) (int, bool) {
	if math.IsNaN(duration) || math.IsInf(duration, 0) || duration <= 0 {
		return o.FallbackFrames, false
	}
	// The epsilon keeps exact multiples such as 2.0s*15fps at 30.
	return int(math.Ceil(duration*o.TargetFPS - 1e-9)), true
}

// Extract seeks through src and calls onFrame once per frame, in index
// order, waiting for each callback to return before seeking again.
// Extraction stops after the computed frame count or when the target
// position reaches the source duration, whichever comes first.
func Extract(ctx context.Context, src Source, onFrame FrameFunc, o Options) error {
	if err := o.validate(); err != nil {
		return err
	}
	w, h := src.Width(), src.Height()
	if w <= 0 || h <= 0 {
		return &vision.NoDimensionsError{Width: w, Height: h}
	}
	outW, outH := FitSize(w, h, o.MaxWidth, o.MaxHeight)

	duration := src.Duration()
	total, valid := TotalFrames(duration, o)
	if !valid {
		warn := &vision.DegenerateDurationWarning{
			Duration:       duration,
			FallbackFrames: o.FallbackFrames,
			Step:           o.FallbackStep,
		}
		opsf("%v", warn)
		if o.OnWarning != nil {
			o.OnWarning(warn)
		}
	}
	diagf("extracting %d frames at %.1ffps, %dx%d -> %dx%d", total, o.TargetFPS, w, h, outW, outH)

	for idx := 0; idx < total; idx++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		var pos float64
		if valid {
			pos = float64(idx) / o.TargetFPS
			if pos >= duration {
				diagf("position %.3fs reached duration after %d frames", pos, idx)
				break
			}
		} else {
			pos = float64(idx) * o.FallbackStep.Seconds()
		}

		if err := src.Seek(ctx, pos); err != nil {
			return fmt.Errorf("seek to %.3fs: %w", pos, err)
		}
		img, err := src.Image()
		if err != nil {
			return fmt.Errorf("read frame %d: %w", idx, err)
		}
		f := vision.FromImage(Resize(img, outW, outH), o.KeepColor)
		if err := f.Validate(); err != nil {
			return err
		}

		ts := src.Position() * 1000
		if math.IsNaN(ts) || ts < 0 {
			ts = pos * 1000
		}
		tracef("frame %d/%d at %.1fms", idx, total, ts)
		if err := onFrame(f, ts, idx, total); err != nil {
			return err
		}
	}
	return nil
}
