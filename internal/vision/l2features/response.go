package l2features

import (
	"math"

	"github.com/banshee-data/barpath/internal/vision"
)

// cornerResponse returns a Width*Height response map. Only pixels inside
// [x0,x1)×[y0,y1) are populated; the rest stay zero. Gradients are Sobel
// with replicated borders, summed over a BlockSize box into the structure
// tensor [a b; b c].
func cornerResponse(f *vision.Frame, s vision.Settings, x0, y0, x1, y1 int) []float32 {
	w, h := f.Width, f.Height
	r := s.BlockSize / 2

	// Gradient support extends r pixels beyond the region.
	gx0, gy0 := max(x0-r, 0), max(y0-r, 0)
	gx1, gy1 := min(x1+r, w), min(y1+r, h)
	gw, gh := gx1-gx0, gy1-gy0

	ixx := make([]float32, gw*gh)
	iyy := make([]float32, gw*gh)
	ixy := make([]float32, gw*gh)
	for y := gy0; y < gy1; y++ {
		for x := gx0; x < gx1; x++ {
			dx, dy := sobel(f, x, y)
			i := (y-gy0)*gw + (x - gx0)
			ixx[i] = dx * dx
			iyy[i] = dy * dy
			ixy[i] = dx * dy
		}
	}

	// Normalise so responses stay in a comparable range across block sizes.
	norm := float32(1.0 / (255.0 * 4 * float64(s.BlockSize)))
	norm *= norm

	resp := make([]float32, w*h)
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			var a, b, c float32
			for by := y - r; by <= y+r; by++ {
				yy := clamp(by, gy0, gy1-1) - gy0
				for bx := x - r; bx <= x+r; bx++ {
					i := yy*gw + clamp(bx, gx0, gx1-1) - gx0
					a += ixx[i]
					b += ixy[i]
					c += iyy[i]
				}
			}
			a *= norm
			b *= norm
			c *= norm
			if s.UseHarris {
				det := a*c - b*b
				tr := a + c
				resp[y*w+x] = det - float32(s.HarrisK)*tr*tr
			} else {
				resp[y*w+x] = minEigen(a, b, c)
			}
		}
	}
	return resp
}

// minEigen is the smaller eigenvalue of the symmetric matrix [a b; b c].
func minEigen(a, b, c float32) float32 {
	half := (a - c) / 2
	return (a+c)/2 - float32(math.Sqrt(float64(half*half+b*b)))
}

// sobel returns the 3x3 Sobel derivatives at (x, y).
func sobel(f *vision.Frame, x, y int) (float32, float32) {
	p := func(dx, dy int) float32 { return float32(f.At(x+dx, y+dy)) }
	gx := (p(1, -1) + 2*p(1, 0) + p(1, 1)) - (p(-1, -1) + 2*p(-1, 0) + p(-1, 1))
	gy := (p(-1, 1) + 2*p(0, 1) + p(1, 1)) - (p(-1, -1) + 2*p(0, -1) + p(1, -1))
	return gx, gy
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
