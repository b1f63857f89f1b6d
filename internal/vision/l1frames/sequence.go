package l1frames

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg" // register decoders
	_ "image/png"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// unknownRateFPS maps seek positions to files when a sequence has no
// declared frame rate. It matches the 100ms fallback step.
const unknownRateFPS = 10

var sequenceExts = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true,
	".bmp": true, ".tif": true, ".tiff": true, ".webp": true,
}

// ImageSequence is a Source over a directory of still images, one file
// per frame, ordered by file name.
type ImageSequence struct {
	files  []string
	fps    float64
	width  int
	height int
	pos    float64
}

// NewImageSequence opens dir. fps is the rate the files were captured
// at; zero or negative means unknown, and the sequence then reports a NaN
// duration.
func NewImageSequence(dir string, fps float64) (*ImageSequence, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read frame dir: %w", err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !sequenceExts[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no image files in %s", dir)
	}
	sort.Strings(files)

	cfg, err := decodeConfig(files[0])
	if err != nil {
		return nil, err
	}
	diagf("image sequence %s: %d files, %dx%d", dir, len(files), cfg.Width, cfg.Height)
	return &ImageSequence{files: files, fps: fps, width: cfg.Width, height: cfg.Height}, nil
}

func decodeConfig(path string) (image.Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return image.Config{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return image.Config{}, fmt.Errorf("decode %s: %w", path, err)
	}
	return cfg, nil
}

// Len returns the number of frames in the sequence.
func (s *ImageSequence) Len() int { return len(s.files) }

func (s *ImageSequence) Width() int  { return s.width }
func (s *ImageSequence) Height() int { return s.height }

// Duration returns NaN when the frame rate is unknown.
func (s *ImageSequence) Duration() float64 {
	if s.fps <= 0 {
		return math.NaN()
	}
	return float64(len(s.files)) / s.fps
}

func (s *ImageSequence) Position() float64 { return s.pos }

// Seek clamps seconds to the sequence.
func (s *ImageSequence) Seek(ctx context.Context, seconds float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if math.IsNaN(seconds) || seconds < 0 {
		seconds = 0
	}
	s.pos = seconds
	return nil
}

// Image decodes the file at the current position.
func (s *ImageSequence) Image() (image.Image, error) {
	path := s.files[s.index()]
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return img, nil
}

func (s *ImageSequence) index() int {
	rate := s.fps
	if rate <= 0 {
		rate = unknownRateFPS
	}
	i := int(math.Floor(s.pos*rate + 1e-9))
	return max(0, min(i, len(s.files)-1))
}
