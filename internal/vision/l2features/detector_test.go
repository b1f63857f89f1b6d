package l2features

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/barpath/internal/vision"
)

// squares paints filled white squares (x, y, side) on a black frame.
func squares(w, h int, sq ...[3]int) *vision.Frame {
	f := vision.NewFrame(w, h)
	for _, s := range sq {
		for y := s[1]; y < s[1]+s[2]; y++ {
			for x := s[0]; x < s[0]+s[2]; x++ {
				if x >= 0 && x < w && y >= 0 && y < h {
					f.Gray[y*w+x] = 255
				}
			}
		}
	}
	return f
}

func TestDetect_FlatFrameHasNoCorners(t *testing.T) {
	t.Parallel()
	f := vision.NewFrame(64, 48)
	for i := range f.Gray {
		f.Gray[i] = 128
	}
	pts, err := Detect(f, vision.DefaultSettings(), nil)
	require.NoError(t, err)
	assert.Empty(t, pts)
	assert.NotNil(t, pts)
}

func TestDetect_SquareCorners(t *testing.T) {
	t.Parallel()
	f := squares(100, 100, [3]int{30, 30, 40})

	pts, err := Detect(f, vision.DefaultSettings(), nil)
	require.NoError(t, err)
	require.NotEmpty(t, pts)

	corners := [][2]float64{{30, 30}, {69, 30}, {30, 69}, {69, 69}}
	for _, c := range corners {
		found := false
		for _, p := range pts {
			if abs(p.X-c[0]) <= 2 && abs(p.Y-c[1]) <= 2 {
				found = true
				break
			}
		}
		assert.True(t, found, "no detection near corner %v in %v", c, pts)
	}
	for _, p := range pts {
		assert.Zero(t, p.Frame)
		assert.Zero(t, p.TimestampMs)
	}
}

func TestDetect_Deterministic(t *testing.T) {
	t.Parallel()
	f := squares(120, 90, [3]int{10, 10, 20}, [3]int{60, 40, 25}, [3]int{90, 5, 12})
	s := vision.DefaultSettings()

	a, err := Detect(f, s, nil)
	require.NoError(t, err)
	b, err := Detect(f, s, nil)
	require.NoError(t, err)
	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("Detect not deterministic (-got +want):\n%s", diff)
	}
}

func TestDetect_MaxPointsAndSeparation(t *testing.T) {
	t.Parallel()
	f := squares(200, 200,
		[3]int{10, 10, 20}, [3]int{60, 10, 20}, [3]int{110, 10, 20},
		[3]int{10, 80, 20}, [3]int{60, 80, 20}, [3]int{110, 80, 20},
	)

	tests := []struct {
		name    string
		max     int
		minDist float64
	}{
		{"cap three", 3, 5},
		{"cap many", 100, 5},
		{"wide spacing", 100, 30},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := vision.DefaultSettings()
			s.MaxPoints = tt.max
			s.MinDistance = tt.minDist

			pts, err := Detect(f, s, nil)
			require.NoError(t, err)
			assert.LessOrEqual(t, len(pts), tt.max)
			require.NotEmpty(t, pts)
			for i := range pts {
				for j := i + 1; j < len(pts); j++ {
					assert.GreaterOrEqual(t, pts[i].Dist(pts[j]), tt.minDist,
						"points %v and %v too close", pts[i], pts[j])
				}
			}
		})
	}
}

func TestDetect_RegionRestricts(t *testing.T) {
	t.Parallel()
	f := squares(200, 100, [3]int{20, 20, 30}, [3]int{130, 30, 30})
	region := &vision.Rect{X: 100, Y: 0, Width: 100, Height: 100}

	pts, err := Detect(f, vision.DefaultSettings(), region)
	require.NoError(t, err)
	require.NotEmpty(t, pts)
	for _, p := range pts {
		assert.GreaterOrEqual(t, p.X, 100.0)
		assert.Less(t, p.X, 200.0)
	}
}

func TestDetect_RegionOutsideFrame(t *testing.T) {
	t.Parallel()
	f := squares(50, 50, [3]int{10, 10, 20})
	pts, err := Detect(f, vision.DefaultSettings(), &vision.Rect{X: 500, Y: 500, Width: 10, Height: 10})
	require.NoError(t, err)
	assert.Empty(t, pts)
}

func TestDetect_Harris(t *testing.T) {
	t.Parallel()
	f := squares(100, 100, [3]int{30, 30, 40})
	s := vision.DefaultSettings()
	s.UseHarris = true

	pts, err := Detect(f, s, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, pts)
}

func TestDetect_Errors(t *testing.T) {
	t.Parallel()

	var invalid *vision.InvalidFrameError
	_, err := Detect(&vision.Frame{}, vision.DefaultSettings(), nil)
	assert.True(t, errors.As(err, &invalid))

	f := squares(20, 20)
	s := vision.DefaultSettings()
	s.MaxPoints = 0
	_, err = Detect(f, s, nil)
	assert.Error(t, err)

	_, err = DetectWithOptions(f, vision.DefaultSettings(), Options{Mask: make([]uint8, 3)})
	assert.True(t, errors.As(err, &invalid))
}

func TestDetectWithOptions_Mask(t *testing.T) {
	t.Parallel()
	f := squares(200, 100, [3]int{20, 20, 30}, [3]int{130, 30, 30})
	mask := make([]uint8, 200*100)
	for y := 0; y < 100; y++ {
		for x := 0; x < 100; x++ {
			mask[y*200+x] = 1
		}
	}

	pts, err := DetectWithOptions(f, vision.DefaultSettings(), Options{Mask: mask})
	require.NoError(t, err)
	require.NotEmpty(t, pts)
	for _, p := range pts {
		assert.Less(t, p.X, 100.0)
	}
}

func TestCentreFocusMask(t *testing.T) {
	t.Parallel()
	m := CentreFocusMask(100, 80)
	require.Len(t, m, 100*80)
	assert.Equal(t, uint8(255), m[40*100+50])
	assert.Zero(t, m[0])
	assert.Zero(t, m[40*100+5], "outside horizontal radius")
	assert.Greater(t, m[40*100+50], m[40*100+70])
	assert.Nil(t, CentreFocusMask(0, 10))
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
