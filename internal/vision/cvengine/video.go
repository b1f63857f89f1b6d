//go:build gocv

package cvengine

import (
	"context"
	"fmt"
	"image"
	"math"

	"gocv.io/x/gocv"
)

// VideoSource reads a video file through OpenCV. It implements
// l1frames.Source and is not safe for concurrent use.
type VideoSource struct {
	cap     *gocv.VideoCapture
	frame   gocv.Mat
	width   int
	height  int
	fps     float64
	frames  float64
	pos     float64
	decoded float64 // position of the Mat in frame, or NaN
}

// OpenVideo opens a video file or stream URL.
func OpenVideo(path string) (*VideoSource, error) {
	cap, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return nil, fmt.Errorf("open video %s: %w", path, err)
	}
	if !cap.IsOpened() {
		cap.Close()
		return nil, fmt.Errorf("open video %s: not opened", path)
	}
	return &VideoSource{
		cap:     cap,
		frame:   gocv.NewMat(),
		width:   int(cap.Get(gocv.VideoCaptureFrameWidth)),
		height:  int(cap.Get(gocv.VideoCaptureFrameHeight)),
		fps:     cap.Get(gocv.VideoCaptureFPS),
		frames:  cap.Get(gocv.VideoCaptureFrameCount),
		decoded: math.NaN(),
	}, nil
}

func (v *VideoSource) Width() int  { return v.width }
func (v *VideoSource) Height() int { return v.height }

// Duration is derived from the container's frame count and rate. Live
// streams and unfinalised files report NaN.
func (v *VideoSource) Duration() float64 {
	if !(v.fps > 0) || !(v.frames > 0) {
		return math.NaN()
	}
	return v.frames / v.fps
}

func (v *VideoSource) Position() float64 { return v.pos }

// Seek positions the capture at seconds. Decoding happens lazily in
// Image.
func (v *VideoSource) Seek(ctx context.Context, seconds float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if math.IsNaN(seconds) || seconds < 0 {
		seconds = 0
	}
	v.pos = seconds
	return nil
}

// Image decodes the frame at the current position.
func (v *VideoSource) Image() (image.Image, error) {
	if v.decoded != v.pos {
		v.cap.Set(gocv.VideoCapturePosMsec, v.pos*1000)
		tracef("decode at %.3fs", v.pos)
		if ok := v.cap.Read(&v.frame); !ok || v.frame.Empty() {
			return nil, fmt.Errorf("read frame at %.3fs: end of stream", v.pos)
		}
		// Seeks land on the nearest decodable frame.
		if ms := v.cap.Get(gocv.VideoCapturePosMsec); ms >= 0 && !math.IsNaN(ms) {
			v.pos = ms / 1000
		}
		v.decoded = v.pos
	}
	img, err := v.frame.ToImage()
	if err != nil {
		return nil, fmt.Errorf("convert frame at %.3fs: %w", v.pos, err)
	}
	return img, nil
}

// Close releases the capture.
func (v *VideoSource) Close() error {
	v.frame.Close()
	return v.cap.Close()
}
