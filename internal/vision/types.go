package vision

import (
	"fmt"
	"math"
)

// TrackedPoint is one feature position in one frame. Points are values and
// are never mutated once produced.
type TrackedPoint struct {
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Frame       int     `json:"frame"`
	TimestampMs float64 `json:"timestamp_ms"`
}

// PathPoint is the reconstructed barbell position for one frame.
type PathPoint struct {
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Frame       int     `json:"frame"`
	TimestampMs float64 `json:"timestamp_ms"`
}

// Dist returns the Euclidean distance between two tracked points.
func (p TrackedPoint) Dist(q TrackedPoint) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// Rect is an axis-aligned region in frame pixel coordinates.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Empty reports whether the rectangle covers no area.
func (r Rect) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Pad grows the rectangle by d pixels on every side.
func (r Rect) Pad(d float64) Rect {
	return Rect{X: r.X - d, Y: r.Y - d, Width: r.Width + 2*d, Height: r.Height + 2*d}
}

// Bounds clips the rectangle to a w×h frame and returns integer pixel
// bounds [x0,x1) × [y0,y1). The result may be empty.
func (r Rect) Bounds(w, h int) (x0, y0, x1, y1 int) {
	x0 = clampInt(int(math.Floor(r.X)), 0, w)
	y0 = clampInt(int(math.Floor(r.Y)), 0, h)
	x1 = clampInt(int(math.Ceil(r.X+r.Width)), 0, w)
	y1 = clampInt(int(math.Ceil(r.Y+r.Height)), 0, h)
	return x0, y0, x1, y1
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Fixed corner-response constants.
const (
	DefaultBlockSize = 3
	DefaultHarrisK   = 0.04
)

// Settings configures corner detection for a session. Settings are supplied
// once at initialisation and treated as immutable afterwards.
type Settings struct {
	MaxPoints    int     `json:"max_points"`
	QualityLevel float64 `json:"quality_level"`
	MinDistance  float64 `json:"min_distance"`
	BlockSize    int     `json:"block_size"`
	UseHarris    bool    `json:"use_harris"`
	HarrisK      float64 `json:"harris_k"`
}

// DefaultSettings returns the detector settings used when the caller does
// not supply any.
func DefaultSettings() Settings {
	return Settings{
		MaxPoints:    50,
		QualityLevel: 0.01,
		MinDistance:  10,
		BlockSize:    DefaultBlockSize,
		HarrisK:      DefaultHarrisK,
	}
}

// Validate checks the settings invariants.
func (s Settings) Validate() error {
	if s.MaxPoints <= 0 {
		return fmt.Errorf("max_points must be positive, got %d", s.MaxPoints)
	}
	if !(s.QualityLevel > 0 && s.QualityLevel <= 1) {
		return fmt.Errorf("quality_level must be in (0,1], got %f", s.QualityLevel)
	}
	if !(s.MinDistance > 0) {
		return fmt.Errorf("min_distance must be positive, got %f", s.MinDistance)
	}
	if s.BlockSize != 0 && (s.BlockSize < 3 || s.BlockSize%2 == 0) {
		return fmt.Errorf("block_size must be odd and >= 3, got %d", s.BlockSize)
	}
	return nil
}

// WithDefaults fills zero-valued fixed constants.
func (s Settings) WithDefaults() Settings {
	if s.BlockSize == 0 {
		s.BlockSize = DefaultBlockSize
	}
	if s.HarrisK == 0 {
		s.HarrisK = DefaultHarrisK
	}
	return s
}
