package l1frames

import (
	"image"
	"math"

	"golang.org/x/image/draw"
)

// FitSize scales w×h to fit inside maxW×maxH preserving aspect ratio.
// Frames are never upscaled. A non-positive limit leaves that axis
// unconstrained.
func FitSize(w, h, maxW, maxH int) (int, int) {
	scale := 1.0
	if maxW > 0 {
		scale = math.Min(scale, float64(maxW)/float64(w))
	}
	if maxH > 0 {
		scale = math.Min(scale, float64(maxH)/float64(h))
	}
	if scale >= 1 {
		return w, h
	}
	return max(1, int(math.Round(float64(w)*scale))), max(1, int(math.Round(float64(h)*scale)))
}

// Resize returns img scaled to exactly w×h with Catmull-Rom resampling.
// img is returned unchanged when it already has that size.
func Resize(img image.Image, w, h int) image.Image {
	b := img.Bounds()
	if b.Dx() == w && b.Dy() == h {
		return img
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Rect, img, b, draw.Src, nil)
	return dst
}
