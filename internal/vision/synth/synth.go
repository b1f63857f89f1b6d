// Package synth renders deterministic synthetic scenes: a bright square
// moving at constant velocity over a flat background. It implements
// l1frames.Source so the whole pipeline can run without video files.
package synth

import (
	"context"
	"fmt"
	"image"
	"math"

	"github.com/banshee-data/barpath/internal/vision"
)

// Scene describes the synthetic video.
type Scene struct {
	Width, Height int
	FPS           float64
	Frames        int

	Size           float64 // square side in pixels
	StartX, StartY float64 // top-left corner at frame 0
	VX, VY         float64 // pixels per frame

	Background, Foreground uint8

	// UnknownDuration makes Duration report NaN, like a recording whose
	// container was never finalised.
	UnknownDuration bool
}

// DemoScene is a 320×240 two-second lift: a 40px plate rising 3px per
// frame at 15fps.
func DemoScene() Scene {
	return Scene{
		Width: 320, Height: 240,
		FPS: 15, Frames: 30,
		Size:   40,
		StartX: 140, StartY: 160,
		VX: 0, VY: -3,
		Background: 30, Foreground: 220,
	}
}

// Validate reports scenes that cannot be rendered.
func (s Scene) Validate() error {
	switch {
	case s.Width < 1 || s.Height < 1:
		return fmt.Errorf("synth: invalid size %dx%d", s.Width, s.Height)
	case !(s.FPS > 0):
		return fmt.Errorf("synth: fps must be positive, got %v", s.FPS)
	case s.Frames < 1:
		return fmt.Errorf("synth: frames must be >= 1, got %d", s.Frames)
	case !(s.Size > 0):
		return fmt.Errorf("synth: square size must be positive, got %v", s.Size)
	}
	return nil
}

// Centre returns the square centre at frame i.
func (s Scene) Centre(i int) (x, y float64) {
	x0, y0 := s.corner(i)
	return x0 + s.Size/2, y0 + s.Size/2
}

func (s Scene) corner(i int) (x, y float64) {
	return s.StartX + s.VX*float64(i), s.StartY + s.VY*float64(i)
}

// Gray renders frame i. Edge pixels carry the square's fractional
// coverage so motion is sub-pixel accurate.
func (s Scene) Gray(i int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, s.Width, s.Height))
	x0, y0 := s.corner(i)
	x1, y1 := x0+s.Size, y0+s.Size
	bg, fg := float64(s.Background), float64(s.Foreground)

	covX := make([]float64, s.Width)
	for x := range covX {
		covX[x] = overlap(float64(x), float64(x+1), x0, x1)
	}
	for y := 0; y < s.Height; y++ {
		cy := overlap(float64(y), float64(y+1), y0, y1)
		row := img.Pix[y*img.Stride : y*img.Stride+s.Width]
		for x := range row {
			row[x] = uint8(math.Round(bg + (fg-bg)*cy*covX[x]))
		}
	}
	return img
}

// Frame renders frame i directly as a vision.Frame.
func (s Scene) Frame(i int) *vision.Frame {
	return vision.FromImage(s.Gray(i), false)
}

func overlap(a0, a1, b0, b1 float64) float64 {
	return math.Max(0, math.Min(a1, b1)-math.Max(a0, b0))
}

// Source plays a Scene. It is not safe for concurrent use.
type Source struct {
	scene Scene
	pos   float64
}

// NewSource returns a Source positioned at the start of the scene.
func NewSource(s Scene) (*Source, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &Source{scene: s}, nil
}

func (s *Source) Width() int  { return s.scene.Width }
func (s *Source) Height() int { return s.scene.Height }

func (s *Source) Duration() float64 {
	if s.scene.UnknownDuration {
		return math.NaN()
	}
	return float64(s.scene.Frames) / s.scene.FPS
}

func (s *Source) Position() float64 { return s.pos }

func (s *Source) Seek(ctx context.Context, seconds float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if math.IsNaN(seconds) || seconds < 0 {
		seconds = 0
	}
	s.pos = seconds
	return nil
}

// Image renders the frame nearest the current position.
func (s *Source) Image() (image.Image, error) {
	return s.scene.Gray(s.Index()), nil
}

// Index is the scene frame shown at the current position.
func (s *Source) Index() int {
	i := int(math.Round(s.pos * s.scene.FPS))
	return max(0, min(i, s.scene.Frames-1))
}

// Scene returns the scene being played.
func (s *Source) Scene() Scene { return s.scene }
