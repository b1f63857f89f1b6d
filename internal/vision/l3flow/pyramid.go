package l3flow

import (
	"math"

	"github.com/banshee-data/barpath/internal/vision"
)

// minLevelSide stops pyramid construction once a level gets this small.
const minLevelSide = 8

// plane is a single-channel float image.
type plane struct {
	w, h int
	pix  []float32
}

func (p *plane) at(x, y int) float32 {
	if x < 0 {
		x = 0
	} else if x >= p.w {
		x = p.w - 1
	}
	if y < 0 {
		y = 0
	} else if y >= p.h {
		y = p.h - 1
	}
	return p.pix[y*p.w+x]
}

// sample reads the plane at a sub-pixel position with bilinear
// interpolation and replicated borders.
func (p *plane) sample(x, y float64) float32 {
	x0f, y0f := math.Floor(x), math.Floor(y)
	ax, ay := float32(x-x0f), float32(y-y0f)
	x0, y0 := int(x0f), int(y0f)
	a := p.at(x0, y0)
	b := p.at(x0+1, y0)
	c := p.at(x0, y0+1)
	d := p.at(x0+1, y0+1)
	return (1-ay)*((1-ax)*a+ax*b) + ay*((1-ax)*c+ax*d)
}

// level is one pyramid level with its Scharr derivatives.
type level struct {
	img, dx, dy plane
}

// pyramid is a Gaussian pyramid; levels[0] is full resolution.
type pyramid struct {
	src    *vision.Frame
	levels []level
}

func buildPyramid(f *vision.Frame, maxLevels int) *pyramid {
	base := plane{w: f.Width, h: f.Height, pix: make([]float32, len(f.Gray))}
	for i, v := range f.Gray {
		base.pix[i] = float32(v)
	}
	p := &pyramid{src: f}
	cur := base
	for l := 0; l < maxLevels; l++ {
		dx, dy := scharr(&cur)
		p.levels = append(p.levels, level{img: cur, dx: dx, dy: dy})
		if cur.w/2 < minLevelSide || cur.h/2 < minLevelSide {
			break
		}
		cur = downsample(&cur)
	}
	return p
}

// downsample blurs with the 5-tap binomial kernel and halves each side.
func downsample(src *plane) plane {
	k := [5]float32{1, 4, 6, 4, 1}

	tmp := plane{w: src.w, h: src.h, pix: make([]float32, len(src.pix))}
	for y := 0; y < src.h; y++ {
		for x := 0; x < src.w; x++ {
			var s float32
			for i := -2; i <= 2; i++ {
				s += k[i+2] * src.at(x+i, y)
			}
			tmp.pix[y*src.w+x] = s / 16
		}
	}

	dst := plane{w: (src.w + 1) / 2, h: (src.h + 1) / 2}
	dst.pix = make([]float32, dst.w*dst.h)
	for y := 0; y < dst.h; y++ {
		for x := 0; x < dst.w; x++ {
			var s float32
			for i := -2; i <= 2; i++ {
				s += k[i+2] * tmp.at(2*x, 2*y+i)
			}
			dst.pix[y*dst.w+x] = s / 16
		}
	}
	return dst
}

// scharr returns the normalised Scharr derivatives of p, in grey levels
// per pixel.
func scharr(p *plane) (plane, plane) {
	dx := plane{w: p.w, h: p.h, pix: make([]float32, len(p.pix))}
	dy := plane{w: p.w, h: p.h, pix: make([]float32, len(p.pix))}
	for y := 0; y < p.h; y++ {
		for x := 0; x < p.w; x++ {
			gx := 3*(p.at(x+1, y-1)-p.at(x-1, y-1)) +
				10*(p.at(x+1, y)-p.at(x-1, y)) +
				3*(p.at(x+1, y+1)-p.at(x-1, y+1))
			gy := 3*(p.at(x-1, y+1)-p.at(x-1, y-1)) +
				10*(p.at(x, y+1)-p.at(x, y-1)) +
				3*(p.at(x+1, y+1)-p.at(x+1, y-1))
			dx.pix[y*p.w+x] = gx / 32
			dy.pix[y*p.w+x] = gy / 32
		}
	}
	return dx, dy
}
