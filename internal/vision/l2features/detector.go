package l2features

import (
	"fmt"
	"math"
	"sort"

	"github.com/banshee-data/barpath/internal/vision"
)

// Options narrows where Detect may place corners.
type Options struct {
	// Region restricts the search to a rectangle. Coordinates of returned
	// points are still in full-frame space.
	Region *vision.Rect

	// Mask, when non-nil, must hold Width*Height entries; pixels whose
	// entry is zero are never selected.
	Mask []uint8
}

// candidate is a local maximum of the corner response.
type candidate struct {
	x, y int
	resp float32
}

// Detect selects up to s.MaxPoints corners in f. Corners are ranked by
// corner response, filtered by QualityLevel relative to the strongest
// response in the searched area, and greedily thinned so no two are
// closer than MinDistance. Detect is deterministic and has no side effects.
func Detect(f *vision.Frame, s vision.Settings, region *vision.Rect) ([]vision.TrackedPoint, error) {
	return DetectWithOptions(f, s, Options{Region: region})
}

// DetectWithOptions is Detect with an optional weighting mask.
func DetectWithOptions(f *vision.Frame, s vision.Settings, opts Options) ([]vision.TrackedPoint, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("detector settings: %w", err)
	}
	if opts.Mask != nil && len(opts.Mask) != f.Width*f.Height {
		return nil, &vision.InvalidFrameError{Width: f.Width, Height: f.Height, Reason: "mask size mismatch"}
	}
	s = s.WithDefaults()

	x0, y0, x1, y1 := 0, 0, f.Width, f.Height
	if opts.Region != nil {
		x0, y0, x1, y1 = opts.Region.Bounds(f.Width, f.Height)
		if x1 <= x0 || y1 <= y0 {
			diagf("region %+v lies outside %dx%d frame", *opts.Region, f.Width, f.Height)
			return []vision.TrackedPoint{}, nil
		}
	}

	resp := cornerResponse(f, s, x0, y0, x1, y1)
	w := f.Width

	var maxResp float32
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			if opts.Mask != nil && opts.Mask[y*w+x] == 0 {
				continue
			}
			if r := resp[y*w+x]; r > maxResp {
				maxResp = r
			}
		}
	}
	if maxResp <= 0 {
		diagf("no corner response in search area (%d,%d)-(%d,%d)", x0, y0, x1, y1)
		return []vision.TrackedPoint{}, nil
	}
	threshold := float32(s.QualityLevel) * maxResp

	var cands []candidate
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			r := resp[y*w+x]
			if r < threshold || r <= 0 {
				continue
			}
			if opts.Mask != nil && opts.Mask[y*w+x] == 0 {
				continue
			}
			if !isLocalMax(resp, w, f.Height, x, y, r) {
				continue
			}
			cands = append(cands, candidate{x: x, y: y, resp: r})
		}
	}
	// Raster order is kept for equal responses, so ties are deterministic.
	sort.SliceStable(cands, func(i, j int) bool { return cands[i].resp > cands[j].resp })

	pts := selectSeparated(cands, s.MaxPoints, s.MinDistance)
	tracef("%d candidates above %.4g, %d selected", len(cands), threshold, len(pts))
	return pts, nil
}

// isLocalMax reports whether r is the maximum of its 3x3 neighbourhood.
func isLocalMax(resp []float32, w, h, x, y int, r float32) bool {
	for dy := -1; dy <= 1; dy++ {
		yy := y + dy
		if yy < 0 || yy >= h {
			continue
		}
		for dx := -1; dx <= 1; dx++ {
			xx := x + dx
			if xx < 0 || xx >= w || (dx == 0 && dy == 0) {
				continue
			}
			if resp[yy*w+xx] > r {
				return false
			}
		}
	}
	return true
}

// selectSeparated walks candidates strongest first and keeps those at
// least minDist away from every kept corner. A grid with cell size
// minDist limits each check to the 3x3 neighbouring cells.
func selectSeparated(cands []candidate, maxPoints int, minDist float64) []vision.TrackedPoint {
	out := make([]vision.TrackedPoint, 0, min(maxPoints, len(cands)))
	grid := make(map[[2]int][]int)
	minDist2 := minDist * minDist

	for _, c := range cands {
		if len(out) >= maxPoints {
			break
		}
		cx := int(math.Floor(float64(c.x) / minDist))
		cy := int(math.Floor(float64(c.y) / minDist))

		ok := true
	search:
		for gy := cy - 1; gy <= cy+1; gy++ {
			for gx := cx - 1; gx <= cx+1; gx++ {
				for _, idx := range grid[[2]int{gx, gy}] {
					dx := out[idx].X - float64(c.x)
					dy := out[idx].Y - float64(c.y)
					if dx*dx+dy*dy < minDist2 {
						ok = false
						break search
					}
				}
			}
		}
		if !ok {
			continue
		}
		grid[[2]int{cx, cy}] = append(grid[[2]int{cx, cy}], len(out))
		out = append(out, vision.TrackedPoint{X: float64(c.x), Y: float64(c.y)})
	}
	return out
}
