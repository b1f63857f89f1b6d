package vision

import (
	"errors"
	"testing"
	"time"
)

func TestSettingsValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Settings)
		wantErr bool
	}{
		{"defaults", func(*Settings) {}, false},
		{"zero max points", func(s *Settings) { s.MaxPoints = 0 }, true},
		{"quality zero", func(s *Settings) { s.QualityLevel = 0 }, true},
		{"quality one", func(s *Settings) { s.QualityLevel = 1 }, false},
		{"quality above one", func(s *Settings) { s.QualityLevel = 1.5 }, true},
		{"negative distance", func(s *Settings) { s.MinDistance = -1 }, true},
		{"even block", func(s *Settings) { s.BlockSize = 4 }, true},
		{"unset block", func(s *Settings) { s.BlockSize = 0 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultSettings()
			tt.mutate(&s)
			err := s.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSettingsWithDefaults(t *testing.T) {
	s := Settings{MaxPoints: 10, QualityLevel: 0.1, MinDistance: 5}.WithDefaults()
	if s.BlockSize != DefaultBlockSize || s.HarrisK != DefaultHarrisK {
		t.Errorf("WithDefaults() = %+v", s)
	}
}

func TestRectBounds(t *testing.T) {
	r := Rect{X: -5, Y: 10.5, Width: 20, Height: 100}
	x0, y0, x1, y1 := r.Bounds(50, 40)
	if x0 != 0 || y0 != 10 || x1 != 15 || y1 != 40 {
		t.Errorf("Bounds = (%d,%d,%d,%d)", x0, y0, x1, y1)
	}
	if !(Rect{Width: 0, Height: 3}).Empty() {
		t.Error("zero-width rect should be empty")
	}
	p := Rect{X: 10, Y: 10, Width: 5, Height: 5}.Pad(2)
	if p.X != 8 || p.Width != 9 {
		t.Errorf("Pad = %+v", p)
	}
}

func TestErrorTaxonomy(t *testing.T) {
	var err error = &InitializationTimeoutError{Timeout: time.Second}
	if !errors.Is(err, ErrInitTimeout) {
		t.Error("InitializationTimeoutError should match ErrInitTimeout")
	}

	inner := errors.New("solver blew up")
	err = &TrackingFrameError{Frame: 7, Err: inner}
	if !errors.Is(err, inner) {
		t.Error("TrackingFrameError should unwrap to its cause")
	}

	w := &DegenerateDurationWarning{FallbackFrames: 30, Step: 100 * time.Millisecond}
	if w.Error() == "" {
		t.Error("warning should describe itself")
	}
}
