package l4path

import (
	"math"
	"sort"

	"github.com/banshee-data/barpath/internal/vision"
)

// Reconstruct turns the full tracked-point log into one path point per
// frame that has points, ascending by frame. Each frame's candidate comes
// from Candidate; a candidate further than JumpThreshold from the
// previous emitted point is pulled back to
// previous + (candidate - previous) * JumpDamping.
// The emitted timestamp is that of the frame's first point in input order.
// Output is deterministic for a given input.
func Reconstruct(points []vision.TrackedPoint, p Params) []vision.PathPoint {
	out := []vision.PathPoint{}
	if len(points) == 0 {
		return out
	}

	byFrame := make(map[int][]vision.TrackedPoint)
	for _, pt := range points {
		byFrame[pt.Frame] = append(byFrame[pt.Frame], pt)
	}
	frames := make([]int, 0, len(byFrame))
	for f := range byFrame {
		frames = append(frames, f)
	}
	sort.Ints(frames)

	smoothed := 0
	for _, f := range frames {
		pts := byFrame[f]
		x, y, ok := Candidate(pts, p)
		if !ok {
			continue
		}
		if n := len(out); n > 0 {
			prev := out[n-1]
			if d := math.Hypot(x-prev.X, y-prev.Y); d > p.JumpThreshold {
				x = prev.X + (x-prev.X)*p.JumpDamping
				y = prev.Y + (y-prev.Y)*p.JumpDamping
				smoothed++
				tracef("frame %d: %.0fpx jump damped", f, d)
			}
		}
		out = append(out, vision.PathPoint{X: x, Y: y, Frame: f, TimestampMs: pts[0].TimestampMs})
	}
	diagf("reconstructed %d path points from %d tracked points (%d frames damped)", len(out), len(points), smoothed)
	return out
}
