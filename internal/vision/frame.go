package vision

import (
	"image"
	"image/color"
	"image/draw"
)

// Frame is a width×height grid of 8-bit luma values, row-major. Color keeps
// an optional RGBA copy for callers that want to display the frame; the
// tracker only reads Gray.
//
// A Frame is immutable once produced. Stages that need to hand a frame
// across a goroutine boundary call Clone.
type Frame struct {
	Width  int
	Height int
	Gray   []uint8
	Color  *image.RGBA
}

// NewFrame allocates a black frame.
func NewFrame(w, h int) *Frame {
	if w < 0 {
		w = 0
	}
	if h < 0 {
		h = 0
	}
	return &Frame{Width: w, Height: h, Gray: make([]uint8, w*h)}
}

// Validate returns an *InvalidFrameError when the frame cannot be processed.
func (f *Frame) Validate() error {
	if f == nil {
		return &InvalidFrameError{Reason: "nil frame"}
	}
	if f.Width < 1 || f.Height < 1 {
		return &InvalidFrameError{Width: f.Width, Height: f.Height, Reason: "zero dimension"}
	}
	if len(f.Gray) != f.Width*f.Height {
		return &InvalidFrameError{Width: f.Width, Height: f.Height, Reason: "pixel buffer size mismatch"}
	}
	return nil
}

// At returns the luma value at (x, y). Coordinates are clamped to the frame.
func (f *Frame) At(x, y int) uint8 {
	if x < 0 {
		x = 0
	} else if x >= f.Width {
		x = f.Width - 1
	}
	if y < 0 {
		y = 0
	} else if y >= f.Height {
		y = f.Height - 1
	}
	return f.Gray[y*f.Width+x]
}

// Clone returns a deep copy of the frame.
func (f *Frame) Clone() *Frame {
	if f == nil {
		return nil
	}
	c := &Frame{Width: f.Width, Height: f.Height}
	c.Gray = append([]uint8(nil), f.Gray...)
	if f.Color != nil {
		rgba := image.NewRGBA(f.Color.Rect)
		copy(rgba.Pix, f.Color.Pix)
		c.Color = rgba
	}
	return c
}

// SameSize reports whether two frames share dimensions.
func (f *Frame) SameSize(o *Frame) bool {
	return f != nil && o != nil && f.Width == o.Width && f.Height == o.Height
}

// FromImage converts an image to a Frame using Rec.601 luma weights.
// When keepColor is true an RGBA copy is retained in Frame.Color.
func FromImage(img image.Image, keepColor bool) *Frame {
	b := img.Bounds()
	f := NewFrame(b.Dx(), b.Dy())

	switch src := img.(type) {
	case *image.Gray:
		for y := 0; y < f.Height; y++ {
			off := src.PixOffset(b.Min.X, b.Min.Y+y)
			copy(f.Gray[y*f.Width:(y+1)*f.Width], src.Pix[off:off+f.Width])
		}
	case *image.YCbCr:
		for y := 0; y < f.Height; y++ {
			for x := 0; x < f.Width; x++ {
				f.Gray[y*f.Width+x] = src.Y[src.YOffset(b.Min.X+x, b.Min.Y+y)]
			}
		}
	case *image.RGBA:
		for y := 0; y < f.Height; y++ {
			off := src.PixOffset(b.Min.X, b.Min.Y+y)
			for x := 0; x < f.Width; x++ {
				p := src.Pix[off+4*x : off+4*x+3]
				f.Gray[y*f.Width+x] = luma(uint32(p[0]), uint32(p[1]), uint32(p[2]))
			}
		}
	default:
		for y := 0; y < f.Height; y++ {
			for x := 0; x < f.Width; x++ {
				g := color.GrayModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray)
				f.Gray[y*f.Width+x] = g.Y
			}
		}
	}

	if keepColor {
		rgba, ok := img.(*image.RGBA)
		if !ok || rgba.Rect.Min != (image.Point{}) {
			rgba = image.NewRGBA(image.Rect(0, 0, f.Width, f.Height))
			draw.Draw(rgba, rgba.Rect, img, b.Min, draw.Src)
		} else {
			cp := image.NewRGBA(rgba.Rect)
			copy(cp.Pix, rgba.Pix)
			rgba = cp
		}
		f.Color = rgba
	}
	return f
}

// GrayImage exposes the luma plane as an *image.Gray sharing no memory
// with the frame.
func (f *Frame) GrayImage() *image.Gray {
	g := image.NewGray(image.Rect(0, 0, f.Width, f.Height))
	copy(g.Pix, f.Gray)
	return g
}

// luma matches the RGBA→GRAY weights used by common vision libraries.
func luma(r, g, b uint32) uint8 {
	return uint8((299*r + 587*g + 114*b + 500) / 1000)
}
