package vision

import (
	"errors"
	"fmt"
	"time"
)

// Session and engine sentinels.
var (
	// ErrNotInitialized is returned when a frame is submitted before a
	// successful Initialize (or after Reset).
	ErrNotInitialized = errors.New("tracking session not initialized")
	// ErrDisposed is returned by every call made after Dispose.
	ErrDisposed = errors.New("tracking session disposed")
	// ErrBusy is returned when Initialize is called while another
	// initialisation or frame processing is in progress.
	ErrBusy = errors.New("tracking session busy")
	// ErrSuperseded is returned by an Initialize overtaken by Reset or
	// by a newer Initialize.
	ErrSuperseded = errors.New("tracking session initialization superseded")
	// ErrFrameOrder is returned when frame indices decrease.
	ErrFrameOrder = errors.New("frame index out of order")
	// ErrNoFeatures is returned when seeding finds no trackable corners.
	ErrNoFeatures = errors.New("no trackable features detected")
	// ErrInitTimeout matches any *InitializationTimeoutError via errors.Is.
	ErrInitTimeout = errors.New("tracker initialization timed out")
	// ErrUnknownEngine is returned when an engine name is not registered.
	ErrUnknownEngine = errors.New("unknown tracking engine")
)

// InvalidFrameError reports a zero-dimension or malformed frame.
type InvalidFrameError struct {
	Width, Height int
	Reason        string
}

func (e *InvalidFrameError) Error() string {
	return fmt.Sprintf("invalid frame %dx%d: %s", e.Width, e.Height, e.Reason)
}

// NoDimensionsError reports a source without usable width or height.
type NoDimensionsError struct {
	Width, Height int
}

func (e *NoDimensionsError) Error() string {
	return fmt.Sprintf("source has no dimensions (%dx%d)", e.Width, e.Height)
}

// DegenerateDurationWarning is non-fatal: the source reported a missing or
// invalid duration and extraction fell back to a fixed frame count.
type DegenerateDurationWarning struct {
	Duration       float64
	FallbackFrames int
	Step           time.Duration
}

func (w *DegenerateDurationWarning) Error() string {
	return fmt.Sprintf("source duration %v is not usable; extracting %d frames at %v steps",
		w.Duration, w.FallbackFrames, w.Step)
}

// InitializationTimeoutError reports that the background worker did not
// signal readiness in time.
type InitializationTimeoutError struct {
	Timeout time.Duration
}

func (e *InitializationTimeoutError) Error() string {
	return fmt.Sprintf("tracker worker not ready after %v", e.Timeout)
}

// Is lets errors.Is(err, ErrInitTimeout) match.
func (e *InitializationTimeoutError) Is(target error) bool {
	return target == ErrInitTimeout
}

// TrackingFrameError reports that one frame's tracking step failed. The
// session stays usable; the frame simply contributes no points.
type TrackingFrameError struct {
	Frame int
	Err   error
}

func (e *TrackingFrameError) Error() string {
	return fmt.Sprintf("tracking frame %d: %v", e.Frame, e.Err)
}

func (e *TrackingFrameError) Unwrap() error { return e.Err }
