package engine

import (
	"context"

	"github.com/banshee-data/barpath/internal/vision"
	"github.com/banshee-data/barpath/internal/vision/l2features"
	"github.com/banshee-data/barpath/internal/vision/l3flow"
)

// NativeName is the name of the pure-Go engine.
const NativeName = "native"

func init() {
	Register(NativeName, func(cfg Config) (Engine, error) { return NewNative(cfg) })
}

// Native runs the pure-Go detector and pyramidal LK tracker.
type Native struct {
	tracker *l3flow.Tracker
}

// NewNative returns the pure-Go engine.
func NewNative(cfg Config) (*Native, error) {
	tr, err := l3flow.NewTracker(cfg.Flow)
	if err != nil {
		return nil, err
	}
	return &Native{tracker: tr}, nil
}

func (n *Native) Name() string { return NativeName }

// Warmup has nothing to load.
func (n *Native) Warmup(ctx context.Context) error { return ctx.Err() }

func (n *Native) Detect(f *vision.Frame, s vision.Settings, opts l2features.Options) ([]vision.TrackedPoint, error) {
	return l2features.DetectWithOptions(f, s, opts)
}

func (n *Native) Track(prev, curr *vision.Frame, pts []vision.TrackedPoint, frame int, timestampMs float64) ([]vision.TrackedPoint, error) {
	return n.tracker.Track(prev, curr, pts, frame, timestampMs)
}

func (n *Native) Close() error { return nil }
