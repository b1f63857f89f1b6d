//go:build gocv

package cvengine

import (
	"context"
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"github.com/banshee-data/barpath/internal/vision"
	"github.com/banshee-data/barpath/internal/vision/engine"
	"github.com/banshee-data/barpath/internal/vision/l2features"
)

// Name is the registry name of the OpenCV engine.
const Name = "opencv"

func init() {
	engine.Register(Name, func(cfg engine.Config) (engine.Engine, error) { return New(cfg) })
}

// Engine runs goodFeaturesToTrack and calcOpticalFlowPyrLK. It keeps the
// previous frame's Mat so consecutive Track calls convert each frame
// once.
type Engine struct {
	cfg engine.Config

	last    *vision.Frame
	lastMat gocv.Mat
}

// New returns an OpenCV engine.
func New(cfg engine.Config) (*Engine, error) {
	if err := cfg.Flow.Validate(); err != nil {
		return nil, err
	}
	return &Engine{cfg: cfg, lastMat: gocv.NewMat()}, nil
}

func (e *Engine) Name() string { return Name }

// Warmup runs one detection on a blank frame so OpenCV loads its
// kernels before the first real request.
func (e *Engine) Warmup(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m := gocv.NewMatWithSize(32, 32, gocv.MatTypeCV8U)
	defer m.Close()
	corners := gocv.NewMat()
	defer corners.Close()
	gocv.GoodFeaturesToTrack(m, &corners, 1, 0.01, 1)
	return ctx.Err()
}

func (e *Engine) Detect(f *vision.Frame, s vision.Settings, opts l2features.Options) ([]vision.TrackedPoint, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	src, err := toMat(f)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	roi := src
	var ox, oy int
	if opts.Region != nil {
		x0, y0, x1, y1 := opts.Region.Bounds(f.Width, f.Height)
		if x1 <= x0 || y1 <= y0 {
			return []vision.TrackedPoint{}, nil
		}
		roi = src.Region(image.Rect(x0, y0, x1, y1))
		defer roi.Close()
		ox, oy = x0, y0
	}

	corners := gocv.NewMat()
	defer corners.Close()
	gocv.GoodFeaturesToTrack(roi, &corners, s.MaxPoints, s.QualityLevel, s.MinDistance)

	out := make([]vision.TrackedPoint, 0, corners.Rows())
	for i := 0; i < corners.Rows(); i++ {
		cx, cy := pointAt(corners, i)
		x, y := cx+float64(ox), cy+float64(oy)
		if opts.Mask != nil && opts.Mask[int(y)*f.Width+int(x)] == 0 {
			continue
		}
		out = append(out, vision.TrackedPoint{X: x, Y: y})
	}
	return out, nil
}

func (e *Engine) Track(prev, curr *vision.Frame, pts []vision.TrackedPoint, frame int, timestampMs float64) ([]vision.TrackedPoint, error) {
	if err := prev.Validate(); err != nil {
		return nil, err
	}
	if err := curr.Validate(); err != nil {
		return nil, err
	}
	if !prev.SameSize(curr) {
		return nil, &vision.InvalidFrameError{Width: curr.Width, Height: curr.Height, Reason: "size differs from previous frame"}
	}
	if len(pts) == 0 {
		return []vision.TrackedPoint{}, nil
	}

	prevMat, err := e.matFor(prev)
	if err != nil {
		return nil, err
	}
	currMat, err := toMat(curr)
	if err != nil {
		return nil, err
	}

	prevPts := gocv.NewMatWithSize(len(pts), 2, gocv.MatTypeCV32F)
	defer prevPts.Close()
	for i, p := range pts {
		prevPts.SetFloatAt(i, 0, float32(p.X))
		prevPts.SetFloatAt(i, 1, float32(p.Y))
	}
	nextPts := gocv.NewMat()
	defer nextPts.Close()
	status := gocv.NewMat()
	defer status.Close()
	errMat := gocv.NewMat()
	defer errMat.Close()

	gocv.CalcOpticalFlowPyrLK(prevMat, currMat, prevPts, nextPts, &status, &errMat)

	margin := float64(e.cfg.Flow.EdgeMargin)
	maxX, maxY := float64(curr.Width)-margin, float64(curr.Height)-margin
	out := make([]vision.TrackedPoint, 0, len(pts))
	for i := 0; i < status.Rows(); i++ {
		if status.GetUCharAt(i, 0) != 1 {
			continue
		}
		x, y := pointAt(nextPts, i)
		if x < margin || y < margin || x >= maxX || y >= maxY {
			continue
		}
		out = append(out, vision.TrackedPoint{X: x, Y: y, Frame: frame, TimestampMs: timestampMs})
	}

	e.remember(curr, currMat)
	return out, nil
}

// matFor returns the Mat of f, reusing the one kept from the previous
// Track call when f is that frame.
func (e *Engine) matFor(f *vision.Frame) (gocv.Mat, error) {
	if e.last == f && !e.lastMat.Empty() {
		return e.lastMat, nil
	}
	m, err := toMat(f)
	if err != nil {
		return gocv.Mat{}, err
	}
	e.remember(f, m)
	return m, nil
}

func (e *Engine) remember(f *vision.Frame, m gocv.Mat) {
	if e.lastMat.Ptr() != m.Ptr() {
		e.lastMat.Close()
	}
	e.last, e.lastMat = f, m
}

func (e *Engine) Close() error {
	e.last = nil
	return e.lastMat.Close()
}

// pointAt reads row i of a point Mat stored either as N×1 two-channel or
// N×2 single-channel floats.
func pointAt(m gocv.Mat, i int) (x, y float64) {
	if m.Channels() == 2 {
		v := m.GetVecfAt(i, 0)
		return float64(v[0]), float64(v[1])
	}
	return float64(m.GetFloatAt(i, 0)), float64(m.GetFloatAt(i, 1))
}

func toMat(f *vision.Frame) (gocv.Mat, error) {
	m, err := gocv.NewMatFromBytes(f.Height, f.Width, gocv.MatTypeCV8U, f.Gray)
	if err != nil {
		return gocv.Mat{}, fmt.Errorf("frame to mat: %w", err)
	}
	return m, nil
}
