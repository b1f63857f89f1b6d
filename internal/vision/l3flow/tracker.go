package l3flow

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/banshee-data/barpath/internal/vision"
)

// Drop reasons, reported on the trace stream.
const (
	dropBounds   = "out of bounds"
	dropEigen    = "low texture"
	dropSolve    = "singular gradient matrix"
	dropResidual = "residual above max error"
	dropDiverged = "diverged"
)

// Tracker follows points between consecutive frames with pyramidal
// Lucas-Kanade optical flow. A Tracker caches the pyramid of the last
// frame it saw, so it is not safe for concurrent use.
type Tracker struct {
	cfg  Config
	last *pyramid
}

// NewTracker returns a tracker with the given configuration.
func NewTracker(cfg Config) (*Tracker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("flow config: %w", err)
	}
	return &Tracker{cfg: cfg}, nil
}

// Config returns the tracker configuration.
func (t *Tracker) Config() Config { return t.cfg }

// Track moves each point in prevPoints from prev to curr. Points that
// leave the frame, sit on untextured patches, or match poorly are
// dropped, so the result never holds more points than the input. Output
// points carry frame and timestampMs rather than the input's values.
func (t *Tracker) Track(prev, curr *vision.Frame, prevPoints []vision.TrackedPoint, frame int, timestampMs float64) ([]vision.TrackedPoint, error) {
	if err := prev.Validate(); err != nil {
		return nil, err
	}
	if err := curr.Validate(); err != nil {
		return nil, err
	}
	if !prev.SameSize(curr) {
		return nil, &vision.InvalidFrameError{
			Width:  curr.Width,
			Height: curr.Height,
			Reason: fmt.Sprintf("dimensions differ from previous frame %dx%d", prev.Width, prev.Height),
		}
	}
	out := make([]vision.TrackedPoint, 0, len(prevPoints))
	if len(prevPoints) == 0 {
		return out, nil
	}

	pp := t.pyramidFor(prev)
	cp := buildPyramid(curr, t.cfg.Levels)
	t.last = cp

	for _, p := range prevPoints {
		x, y, reason := t.trackPoint(pp, cp, p.X, p.Y)
		if reason != "" {
			tracef("frame %d: drop (%.1f,%.1f): %s", frame, p.X, p.Y, reason)
			continue
		}
		out = append(out, vision.TrackedPoint{X: x, Y: y, Frame: frame, TimestampMs: timestampMs})
	}
	if len(out) == 0 {
		diagf("frame %d: all %d points lost", frame, len(prevPoints))
	}
	return out, nil
}

// pyramidFor reuses the cached pyramid when f is the frame last passed
// as curr.
func (t *Tracker) pyramidFor(f *vision.Frame) *pyramid {
	if t.last != nil && t.last.src == f {
		return t.last
	}
	return buildPyramid(f, t.cfg.Levels)
}

// trackPoint runs coarse-to-fine LK for one point. It returns the new
// position, or a non-empty drop reason.
func (t *Tracker) trackPoint(prev, curr *pyramid, px, py float64) (float64, float64, string) {
	half := t.cfg.WindowSize / 2
	n := t.cfg.WindowSize * t.cfg.WindowSize
	ival := make([]float32, n)
	ix := make([]float32, n)
	iy := make([]float32, n)

	top := len(prev.levels) - 1
	var gx, gy float64 // guess carried down the pyramid
	for l := top; l >= 0; l-- {
		scale := math.Ldexp(1, -l)
		lx, ly := px*scale, py*scale
		pl, cl := &prev.levels[l], &curr.levels[l]

		var a, b, c float64
		k := 0
		for wy := -half; wy <= half; wy++ {
			for wx := -half; wx <= half; wx++ {
				sx, sy := lx+float64(wx), ly+float64(wy)
				ival[k] = pl.img.sample(sx, sy)
				ix[k] = pl.dx.sample(sx, sy)
				iy[k] = pl.dy.sample(sx, sy)
				a += float64(ix[k]) * float64(ix[k])
				b += float64(ix[k]) * float64(iy[k])
				c += float64(iy[k]) * float64(iy[k])
				k++
			}
		}

		// Normalised to unit grey range and window area.
		half2 := (a - c) / 2
		minEig := ((a+c)/2 - math.Sqrt(half2*half2+b*b)) / (float64(n) * 255 * 255)
		if minEig < t.cfg.MinEigenThreshold {
			return 0, 0, dropEigen
		}

		g := mat.NewSymDense(2, []float64{a, b, b, c})
		var chol mat.Cholesky
		if ok := chol.Factorize(g); !ok {
			return 0, 0, dropSolve
		}

		var vx, vy float64
		mis := mat.NewVecDense(2, nil)
		eta := mat.NewVecDense(2, nil)
		for iter := 0; iter < t.cfg.MaxIterations; iter++ {
			var bx, by float64
			k = 0
			for wy := -half; wy <= half; wy++ {
				for wx := -half; wx <= half; wx++ {
					j := cl.img.sample(lx+gx+vx+float64(wx), ly+gy+vy+float64(wy))
					diff := float64(ival[k] - j)
					bx += diff * float64(ix[k])
					by += diff * float64(iy[k])
					k++
				}
			}
			mis.SetVec(0, bx)
			mis.SetVec(1, by)
			if err := chol.SolveVecTo(eta, mis); err != nil {
				return 0, 0, dropSolve
			}
			vx += eta.AtVec(0)
			vy += eta.AtVec(1)
			if math.Hypot(eta.AtVec(0), eta.AtVec(1)) < t.cfg.Epsilon {
				break
			}
		}
		if math.IsNaN(vx) || math.IsNaN(vy) || math.IsInf(vx, 0) || math.IsInf(vy, 0) {
			return 0, 0, dropDiverged
		}

		if l > 0 {
			gx, gy = 2*(gx+vx), 2*(gy+vy)
		} else {
			gx, gy = gx+vx, gy+vy
		}
	}

	nx, ny := px+gx, py+gy
	w, h := float64(prev.src.Width), float64(prev.src.Height)
	m := t.cfg.EdgeMargin
	if nx < m || ny < m || nx > w-1-m || ny > h-1-m {
		return 0, 0, dropBounds
	}

	if t.cfg.MaxError > 0 {
		base := &prev.levels[0]
		cur := &curr.levels[0]
		var sum float64
		for wy := -half; wy <= half; wy++ {
			for wx := -half; wx <= half; wx++ {
				i := base.img.sample(px+float64(wx), py+float64(wy))
				j := cur.img.sample(nx+float64(wx), ny+float64(wy))
				sum += math.Abs(float64(i - j))
			}
		}
		if sum/float64(n) > t.cfg.MaxError {
			return 0, 0, dropResidual
		}
	}
	return nx, ny, ""
}
